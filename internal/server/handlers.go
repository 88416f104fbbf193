package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lfreitas/financeiro/internal/finance"
	"github.com/lfreitas/financeiro/internal/receipt"
)

// corsError writes an error response with CORS headers set.
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v with the content type set.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes a JSON error body.
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// handleIndex serves the HTML interface.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// receiptResponse is returned after a successful receipt upload.
type receiptResponse struct {
	URL    string                    `json:"url"`
	Key    string                    `json:"key"`
	Fields *receipt.ExtractedReceipt `json:"fields"`
}

// handleUploadReceipt runs the full receipt pipeline: recognize the text,
// extract fields, then compress and store the image under a signed URL.
// Recognition is best effort; a recognizer failure still stores the receipt,
// just without extracted fields.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	// Max 50MB to handle high-resolution phone photos.
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromName(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	var rawText string
	if s.recognizer != nil {
		s.progress.Start()
		rawText, err = s.recognizer.Recognize(r.Context(), data, s.language, s.progress.Update)
		s.progress.Finish()
		if err != nil {
			slog.Warn("Receipt recognition failed, storing without fields",
				"filename", header.Filename,
				"error", err,
			)
			rawText = ""
		}
	}
	fields := receipt.Extract(rawText)

	result, err := s.uploader.Upload(data, contentType, rawText)
	if err != nil {
		jsonError(w, "Could not store receipt", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, receiptResponse{
		URL:    result.URL,
		Key:    result.Key,
		Fields: fields,
	})
}

// handleReceiptProgress reports the in-flight recognition state.
func (s *Server) handleReceiptProgress(w http.ResponseWriter, r *http.Request) {
	running, fraction := s.progress.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"running":  running,
		"fraction": fraction,
	})
}

// handleGetObject serves a stored receipt after verifying the signed query.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		corsError(w, "Object key required", http.StatusBadRequest)
		return
	}
	if !s.objects.VerifySignedQuery(key, r.URL.Query()) {
		corsError(w, "Invalid or expired signature", http.StatusForbidden)
		return
	}

	data, err := s.objects.Get(key)
	if err != nil {
		corsError(w, "Object not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// handleListCategories returns all categories.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.finance.ListCategories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleCreateCategory creates a category.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category finance.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := s.finance.CreateCategory(category)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateCategory replaces a category.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var category finance.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	category.ID = r.PathValue("id")
	if err := s.finance.UpdateCategory(category); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, finance.ErrNotFound) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// handleDeleteCategory deletes a category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.DeleteCategory(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting category", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAccounts returns all accounts.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.finance.ListAccounts()
	if err != nil {
		slog.Error("Error listing accounts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// handleCreateAccount creates an account.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var account finance.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := s.finance.CreateAccount(account)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateAccount replaces an account.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var account finance.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	account.ID = r.PathValue("id")
	if err := s.finance.UpdateAccount(account); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, finance.ErrNotFound) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// handleDeleteAccount deletes an account.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.DeleteAccount(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting account", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccountBalance returns the current balance of an account.
func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.finance.AccountBalance(r.PathValue("id"))
	if err != nil {
		corsError(w, "Account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": balance})
}

// handleListEntries returns entries, optionally filtered by month and year.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []*finance.Entry
		err     error
	)
	month, monthErr := strconv.Atoi(r.URL.Query().Get("month"))
	year, yearErr := strconv.Atoi(r.URL.Query().Get("year"))
	if monthErr == nil && yearErr == nil {
		entries, err = s.finance.EntriesForMonth(month, year)
	} else {
		entries, err = s.finance.ListEntries()
	}
	if err != nil {
		slog.Error("Error listing entries", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetEntry returns a single entry.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.finance.GetEntry(r.PathValue("id"))
	if err != nil {
		corsError(w, "Entry not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleCreateEntry creates an entry.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry finance.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := s.finance.CreateEntry(entry)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateEntry replaces an entry.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var entry finance.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	entry.ID = r.PathValue("id")
	if err := s.finance.UpdateEntry(entry); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, finance.ErrNotFound) {
			status = http.StatusNotFound
		}
		jsonError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleDeleteEntry deletes an entry and its stored receipt.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.DeleteEntry(r.PathValue("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, finance.ErrNotFound) {
			status = http.StatusNotFound
		}
		corsError(w, "Error deleting entry", status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMonthlySummary aggregates one calendar month.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		corsError(w, "Invalid month", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		corsError(w, "Invalid year", http.StatusBadRequest)
		return
	}
	summary, err := s.finance.MonthlySummary(month, year)
	if err != nil {
		slog.Error("Error building monthly summary", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleAnnualSummary aggregates one year.
func (s *Server) handleAnnualSummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		corsError(w, "Invalid year", http.StatusBadRequest)
		return
	}
	summary, err := s.finance.AnnualSummary(year)
	if err != nil {
		slog.Error("Error building annual summary", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleExportEntries streams an XLSX workbook of entries.
func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		corsError(w, "Invalid from date", http.StatusBadRequest)
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		corsError(w, "Invalid to date", http.StatusBadRequest)
		return
	}

	data, err := s.finance.ExportEntriesXLSX(from, to)
	if err != nil {
		slog.Error("Error exporting entries", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="lancamentos.xlsx"`)
	w.Write(data)
}

// parseDateParam parses an optional YYYY-MM-DD query value.
func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// contentTypeFromName guesses a MIME type from the filename extension for
// clients that omit one.
func contentTypeFromName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
