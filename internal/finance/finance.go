package finance

import "time"

// EntryKind distinguishes income from expense for categories and entries.
type EntryKind string

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
)

// Valid reports whether the kind is one of the two known values.
func (k EntryKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Category classifies entries, e.g. "Alimentação" or "Salário".
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        EntryKind `json:"kind"`
	Description string    `json:"description,omitempty"`
}

// Account is a money source or destination: checking account, credit card,
// cash, and so on.
type Account struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	Institution         string `json:"institution"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
}

// Entry is a single income or expense record. Amounts are signed integer
// centavos: income positive, expense negative.
type Entry struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	CategoryID     string    `json:"category_id"`
	AccountID      string    `json:"account_id"`
	AmountCents    int64     `json:"amount_cents"`
	Kind           EntryKind `json:"kind"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	Notes          string    `json:"notes,omitempty"`
	ReceiptURL     string    `json:"receipt_url,omitempty"`
	ReceiptOCRText string    `json:"receipt_ocr_text,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MonthlySummary aggregates one calendar month. ExpenseCents is negative,
// so Balance = Income + Expense.
type MonthlySummary struct {
	Month        int   `json:"month"`
	Year         int   `json:"year"`
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	BalanceCents int64 `json:"balance_cents"`
}

// AnnualSummary aggregates a whole year with a per-month breakdown.
type AnnualSummary struct {
	Year             int              `json:"year"`
	IncomeCents      int64            `json:"income_cents"`
	ExpenseCents     int64            `json:"expense_cents"`
	BalanceCents     int64            `json:"balance_cents"`
	MeanIncomeCents  int64            `json:"mean_income_cents"`
	MeanExpenseCents int64            `json:"mean_expense_cents"`
	Months           []MonthlySummary `json:"months"`
}
