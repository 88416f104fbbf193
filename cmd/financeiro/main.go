package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/lfreitas/financeiro/internal/finance"
	"github.com/lfreitas/financeiro/internal/receipt"
	"github.com/lfreitas/financeiro/internal/recognition"
	"github.com/lfreitas/financeiro/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("financeiro")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "financeiro.db", "Database file path")
		bucketPath     = fs.StringLong("bucket", "./comprovantes", "Receipt bucket directory path")
		baseURL        = fs.StringLong("base-url", "http://localhost:8080", "Externally visible base URL for signed links")
		signSecret     = fs.StringLong("sign-secret", "", "HMAC secret for signed receipt URLs (or set FINANCEIRO_SIGN_SECRET)")
		userID         = fs.StringLong("user", "", "Stable user identifier owning stored receipts")
		recognizerType = fs.StringLong("recognizer", "gemini", "Recognizer type: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		language       = fs.StringLong("lang", "por", "Expected receipt language hint for recognition")
		maxWidth       = fs.IntLong("max-width", receipt.DefaultMaxWidth, "Maximum stored receipt width in pixels")
		quality        = fs.Float64Long("quality", receipt.DefaultQuality, "JPEG re-encoding quality in (0,1]")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("FINANCEIRO"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *signSecret == "" {
		slog.Error("Signing secret is required. Set --sign-secret flag or FINANCEIRO_SIGN_SECRET environment variable")
		os.Exit(1)
	}
	if *userID == "" {
		slog.Error("User identifier is required. Set --user flag or FINANCEIRO_USER environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := finance.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing receipt bucket...")
	bucket, err := receipt.NewLocalObjectStorage(*bucketPath, *baseURL, []byte(*signSecret))
	if err != nil {
		slog.Error("Failed to initialize receipt bucket", "error", err)
		os.Exit(1)
	}

	var recognizer recognition.Recognizer
	switch *recognizerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini recognizer...", "model", *geminiModel)
		recognizer, err = recognition.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", *ollamaURL, "model", *ollamaModel)
		recognizer, err = recognition.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer recognizer.Close()

	compressor := receipt.NewCompressor(*maxWidth, *quality)
	uploader := receipt.NewUploader(receipt.StaticIdentity(*userID), bucket, compressor)
	financeService := finance.NewService(db, bucket)

	srv := server.NewServer(server.Config{
		Finance:    financeService,
		Uploader:   uploader,
		Recognizer: recognizer,
		Objects:    bucket,
		BasicAuth: server.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
		Language: *language,
	})

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
