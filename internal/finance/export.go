package finance

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportEntriesXLSX returns an XLSX workbook with the entries inside the
// [from, to] date window (inclusive, date-only). A nil bound leaves that
// side open.
func (s *Service) ExportEntriesXLSX(from, to *time.Time) ([]byte, error) {
	entries, err := s.ListEntries()
	if err != nil {
		return nil, err
	}

	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	accounts, err := s.db.ListAccounts()
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Lancamentos"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	headers := []string{"Date", "Description", "Category", "Account", "Amount", "Notes", "Receipt URL"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	row := 2
	for _, entry := range entries {
		if !inWindow(entry.Date, from, to) {
			continue
		}
		values := []any{
			entry.Date.Format("2006-01-02"),
			entry.Description,
			categoryNames[entry.CategoryID],
			accountNames[entry.AccountID],
			float64(entry.AmountCents) / 100,
			entry.Notes,
			entry.ReceiptURL,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// inWindow checks the date against an optional inclusive date-only window.
func inWindow(date time.Time, from, to *time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		if day.Before(f) {
			return false
		}
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		if day.After(t) {
			return false
		}
	}
	return true
}
