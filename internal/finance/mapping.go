package finance

import (
	"fmt"
	"time"
)

// Stored documents keep the backend's original field naming: snake_case
// Portuguese columns. The functions below are the only place that naming
// crosses into the domain types; they are pure and tested independently.

type categoryDoc struct {
	ID        string `json:"id"`
	Nome      string `json:"nome"`
	Tipo      string `json:"tipo"`
	Descricao string `json:"descricao,omitempty"`
}

type accountDoc struct {
	ID           string `json:"id"`
	Nome         string `json:"nome"`
	Tipo         string `json:"tipo"`
	Instituicao  string `json:"instituicao"`
	SaldoInicial int64  `json:"saldo_inicial"`
}

type entryDoc struct {
	ID                  string `json:"id"`
	Data                string `json:"data"`
	Descricao           string `json:"descricao"`
	CategoriaID         string `json:"categoria_id"`
	ContaID             string `json:"conta_id"`
	Valor               int64  `json:"valor"`
	Tipo                string `json:"tipo"`
	Mes                 int    `json:"mes"`
	Ano                 int    `json:"ano"`
	Observacoes         string `json:"observacoes,omitempty"`
	ComprovanteURL      string `json:"comprovante_url,omitempty"`
	ComprovanteTextoOCR string `json:"comprovante_texto_ocr,omitempty"`
	CriadoEm            string `json:"criado_em"`
	AtualizadoEm        string `json:"atualizado_em"`
}

const (
	docKindIncome  = "Receita"
	docKindExpense = "Despesa"
)

func kindToDoc(k EntryKind) string {
	if k == KindIncome {
		return docKindIncome
	}
	return docKindExpense
}

func kindFromDoc(s string) (EntryKind, error) {
	switch s {
	case docKindIncome:
		return KindIncome, nil
	case docKindExpense:
		return KindExpense, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

func categoryToDoc(c *Category) *categoryDoc {
	return &categoryDoc{
		ID:        c.ID,
		Nome:      c.Name,
		Tipo:      kindToDoc(c.Kind),
		Descricao: c.Description,
	}
}

func categoryFromDoc(d *categoryDoc) (*Category, error) {
	kind, err := kindFromDoc(d.Tipo)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", d.ID, err)
	}
	return &Category{
		ID:          d.ID,
		Name:        d.Nome,
		Kind:        kind,
		Description: d.Descricao,
	}, nil
}

func accountToDoc(a *Account) *accountDoc {
	return &accountDoc{
		ID:           a.ID,
		Nome:         a.Name,
		Tipo:         a.Kind,
		Instituicao:  a.Institution,
		SaldoInicial: a.OpeningBalanceCents,
	}
}

func accountFromDoc(d *accountDoc) *Account {
	return &Account{
		ID:                  d.ID,
		Name:                d.Nome,
		Kind:                d.Tipo,
		Institution:         d.Instituicao,
		OpeningBalanceCents: d.SaldoInicial,
	}
}

func entryToDoc(e *Entry) *entryDoc {
	return &entryDoc{
		ID:                  e.ID,
		Data:                e.Date.Format(time.RFC3339),
		Descricao:           e.Description,
		CategoriaID:         e.CategoryID,
		ContaID:             e.AccountID,
		Valor:               e.AmountCents,
		Tipo:                kindToDoc(e.Kind),
		Mes:                 e.Month,
		Ano:                 e.Year,
		Observacoes:         e.Notes,
		ComprovanteURL:      e.ReceiptURL,
		ComprovanteTextoOCR: e.ReceiptOCRText,
		CriadoEm:            e.CreatedAt.Format(time.RFC3339),
		AtualizadoEm:        e.UpdatedAt.Format(time.RFC3339),
	}
}

func entryFromDoc(d *entryDoc) (*Entry, error) {
	kind, err := kindFromDoc(d.Tipo)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", d.ID, err)
	}
	date, err := time.Parse(time.RFC3339, d.Data)
	if err != nil {
		return nil, fmt.Errorf("entry %s: parsing date: %w", d.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339, d.CriadoEm)
	if err != nil {
		return nil, fmt.Errorf("entry %s: parsing criado_em: %w", d.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, d.AtualizadoEm)
	if err != nil {
		return nil, fmt.Errorf("entry %s: parsing atualizado_em: %w", d.ID, err)
	}
	return &Entry{
		ID:             d.ID,
		Date:           date,
		Description:    d.Descricao,
		CategoryID:     d.CategoriaID,
		AccountID:      d.ContaID,
		AmountCents:    d.Valor,
		Kind:           kind,
		Month:          d.Mes,
		Year:           d.Ano,
		Notes:          d.Observacoes,
		ReceiptURL:     d.ComprovanteURL,
		ReceiptOCRText: d.ComprovanteTextoOCR,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}
