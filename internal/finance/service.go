package finance

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for finance records.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates UUID v4 identifiers.
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time.
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ObjectRemover deletes stored receipt objects. Satisfied by the receipt
// object storage.
type ObjectRemover interface {
	Remove(key string) error
}

// Service handles finance operations: categories, accounts, entries and
// their aggregations.
type Service struct {
	db         DB
	objects    ObjectRemover
	idGen      IDGenerator
	timeSource TimeSource
}

// NewService creates a Service with UUID IDs and the real clock. objects may
// be nil when receipt cleanup is not wanted.
func NewService(db DB, objects ObjectRemover) *Service {
	return NewServiceWithDeps(db, objects, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, objects ObjectRemover, idGen IDGenerator, timeSource TimeSource) *Service {
	return &Service{
		db:         db,
		objects:    objects,
		idGen:      idGen,
		timeSource: timeSource,
	}
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(category Category) (*Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if !category.Kind.Valid() {
		return nil, fmt.Errorf("invalid category kind %q", category.Kind)
	}

	category.ID = s.idGen.Generate()
	if err := s.db.SaveCategory(&category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	return &category, nil
}

// UpdateCategory replaces an existing category.
func (s *Service) UpdateCategory(category Category) error {
	if _, err := s.db.GetCategory(category.ID); err != nil {
		return fmt.Errorf("getting category for update: %w", err)
	}
	if !category.Kind.Valid() {
		return fmt.Errorf("invalid category kind %q", category.Kind)
	}
	if err := s.db.SaveCategory(&category); err != nil {
		return fmt.Errorf("saving category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(id string) error {
	if err := s.db.DeleteCategory(id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}

// ListCategories returns all categories sorted by name.
func (s *Service) ListCategories() ([]*Category, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// CreateAccount validates and stores a new account.
func (s *Service) CreateAccount(account Account) (*Account, error) {
	if strings.TrimSpace(account.Name) == "" {
		return nil, fmt.Errorf("account name is required")
	}

	account.ID = s.idGen.Generate()
	if err := s.db.SaveAccount(&account); err != nil {
		return nil, fmt.Errorf("saving account: %w", err)
	}
	return &account, nil
}

// UpdateAccount replaces an existing account.
func (s *Service) UpdateAccount(account Account) error {
	if _, err := s.db.GetAccount(account.ID); err != nil {
		return fmt.Errorf("getting account for update: %w", err)
	}
	if err := s.db.SaveAccount(&account); err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

// DeleteAccount removes an account.
func (s *Service) DeleteAccount(id string) error {
	if err := s.db.DeleteAccount(id); err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// ListAccounts returns all accounts sorted by name.
func (s *Service) ListAccounts() ([]*Account, error) {
	accounts, err := s.db.ListAccounts()
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// CreateEntry validates and stores a new entry. Month, year and kind are
// derived when absent: month/year from the date, kind from the amount sign.
func (s *Service) CreateEntry(entry Entry) (*Entry, error) {
	if strings.TrimSpace(entry.Description) == "" {
		return nil, fmt.Errorf("entry description is required")
	}
	if entry.AmountCents == 0 {
		return nil, fmt.Errorf("entry amount must be non-zero")
	}
	if entry.Date.IsZero() {
		entry.Date = s.timeSource.Now()
	}
	if entry.Month == 0 {
		entry.Month = int(entry.Date.Month())
	}
	if entry.Year == 0 {
		entry.Year = entry.Date.Year()
	}
	if entry.Kind == "" {
		if entry.AmountCents > 0 {
			entry.Kind = KindIncome
		} else {
			entry.Kind = KindExpense
		}
	}
	if !entry.Kind.Valid() {
		return nil, fmt.Errorf("invalid entry kind %q", entry.Kind)
	}

	now := s.timeSource.Now()
	entry.ID = s.idGen.Generate()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := s.db.SaveEntry(&entry); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	return &entry, nil
}

// UpdateEntry replaces an existing entry, preserving its creation time.
func (s *Service) UpdateEntry(entry Entry) error {
	existing, err := s.db.GetEntry(entry.ID)
	if err != nil {
		return fmt.Errorf("getting entry for update: %w", err)
	}
	if !entry.Kind.Valid() {
		return fmt.Errorf("invalid entry kind %q", entry.Kind)
	}

	entry.CreatedAt = existing.CreatedAt
	entry.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveEntry(&entry); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return nil
}

// DeleteEntry removes an entry and, best effort, its stored receipt object.
func (s *Service) DeleteEntry(id string) error {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return fmt.Errorf("getting entry for deletion: %w", err)
	}

	if err := s.db.DeleteEntry(id); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	if entry.ReceiptURL != "" && s.objects != nil {
		key, err := objectKeyFromURL(entry.ReceiptURL)
		if err != nil {
			slog.Warn("cannot derive receipt key", "url", entry.ReceiptURL, "error", err)
			return nil
		}
		if err := s.objects.Remove(key); err != nil {
			slog.Warn("failed to remove receipt object", "key", key, "error", err)
		}
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (s *Service) GetEntry(id string) (*Entry, error) {
	entry, err := s.db.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns all entries sorted by date, newest first.
func (s *Service) ListEntries() ([]*Entry, error) {
	entries, err := s.db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.After(entries[j].Date) })
	return entries, nil
}

// EntriesForMonth returns the entries recorded against a calendar month.
func (s *Service) EntriesForMonth(month, year int) ([]*Entry, error) {
	entries, err := s.ListEntries()
	if err != nil {
		return nil, err
	}
	filtered := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Month == month && entry.Year == year {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// MonthlySummary aggregates income and expense totals for one month.
func (s *Service) MonthlySummary(month, year int) (*MonthlySummary, error) {
	entries, err := s.EntriesForMonth(month, year)
	if err != nil {
		return nil, err
	}
	summary := &MonthlySummary{Month: month, Year: year}
	for _, entry := range entries {
		if entry.AmountCents > 0 {
			summary.IncomeCents += entry.AmountCents
		} else {
			summary.ExpenseCents += entry.AmountCents
		}
	}
	summary.BalanceCents = summary.IncomeCents + summary.ExpenseCents
	return summary, nil
}

// AnnualSummary aggregates a year with a twelve-month breakdown.
func (s *Service) AnnualSummary(year int) (*AnnualSummary, error) {
	annual := &AnnualSummary{Year: year, Months: make([]MonthlySummary, 0, 12)}
	for month := 1; month <= 12; month++ {
		monthly, err := s.MonthlySummary(month, year)
		if err != nil {
			return nil, err
		}
		annual.Months = append(annual.Months, *monthly)
		annual.IncomeCents += monthly.IncomeCents
		annual.ExpenseCents += monthly.ExpenseCents
	}
	annual.BalanceCents = annual.IncomeCents + annual.ExpenseCents
	annual.MeanIncomeCents = annual.IncomeCents / 12
	annual.MeanExpenseCents = annual.ExpenseCents / 12
	return annual, nil
}

// AccountBalance is the opening balance plus all movement on the account.
func (s *Service) AccountBalance(accountID string) (int64, error) {
	account, err := s.db.GetAccount(accountID)
	if err != nil {
		return 0, fmt.Errorf("getting account: %w", err)
	}

	entries, err := s.db.ListEntries()
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}

	balance := account.OpeningBalanceCents
	for _, entry := range entries {
		if entry.AccountID == accountID {
			balance += entry.AmountCents
		}
	}
	return balance, nil
}

// objectKeyFromURL recovers the storage key ({userID}/{timestamp}.jpg) from
// a signed receipt URL: the last two path segments.
func objectKeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing receipt URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("receipt URL %q has no object key", rawURL)
	}
	return strings.Join(parts[len(parts)-2:], "/"), nil
}
