package finance

import (
	"bytes"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = ginkgo.Describe("ExportEntriesXLSX", func() {
	var (
		service *Service
		from    *time.Time
		to      *time.Time
		rows    [][]string
	)

	ginkgo.BeforeEach(func() {
		db := newMockDB()
		service = NewServiceWithDeps(db, nil, &mockIDGenerator{}, &mockClock{now: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)})
		from = nil
		to = nil

		category, err := service.CreateCategory(Category{Name: "Alimentação", Kind: KindExpense})
		Expect(err).ToNot(HaveOccurred())
		account, err := service.CreateAccount(Account{Name: "Corrente"})
		Expect(err).ToNot(HaveOccurred())

		_, err = service.CreateEntry(Entry{
			Description: "Mercado",
			AmountCents: -12345,
			CategoryID:  category.ID,
			AccountID:   account.ID,
			Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			ReceiptURL:  "http://localhost:8080/files/user1/1.jpg",
		})
		Expect(err).ToNot(HaveOccurred())
		_, err = service.CreateEntry(Entry{
			Description: "Salário",
			AmountCents: 500000,
			AccountID:   account.ID,
			Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		Expect(err).ToNot(HaveOccurred())
	})

	ginkgo.JustBeforeEach(func() {
		data, err := service.ExportEntriesXLSX(from, to)
		Expect(err).ToNot(HaveOccurred())

		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()

		rows, err = f.GetRows("Lancamentos")
		Expect(err).ToNot(HaveOccurred())
	})

	ginkgo.When("no window is set", func() {
		ginkgo.It("should write a header row plus one row per entry", func() {
			Expect(rows).To(HaveLen(3))
			Expect(rows[0]).To(Equal([]string{"Date", "Description", "Category", "Account", "Amount", "Notes", "Receipt URL"}))
		})

		ginkgo.It("should resolve category and account names", func() {
			Expect(rows[1][1]).To(Equal("Mercado"))
			Expect(rows[1][2]).To(Equal("Alimentação"))
			Expect(rows[1][3]).To(Equal("Corrente"))
		})

		ginkgo.It("should write amounts in whole currency units", func() {
			Expect(rows[1][4]).To(Equal("-123.45"))
		})

		ginkgo.It("should write entries newest first", func() {
			Expect(rows[1][0]).To(Equal("2024-03-10"))
			Expect(rows[2][0]).To(Equal("2024-01-01"))
		})
	})

	ginkgo.When("a date window is set", func() {
		ginkgo.BeforeEach(func() {
			f := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
			t := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
			from, to = &f, &t
		})

		ginkgo.It("should only include entries inside the window", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][1]).To(Equal("Mercado"))
		})
	})

	ginkgo.When("the window boundary equals the entry date", func() {
		ginkgo.BeforeEach(func() {
			f := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
			from = &f
		})

		ginkgo.It("should include the boundary date", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[1][0]).To(Equal("2024-03-10"))
		})
	})
})
