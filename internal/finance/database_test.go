package finance

import (
	"path/filepath"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("BoltDB", func() {
	var db *BoltDB

	ginkgo.BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(ginkgo.GinkgoT().TempDir(), "test.db"))
		Expect(err).ToNot(HaveOccurred())
	})

	ginkgo.AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	ginkgo.Describe("categories", func() {
		var category *Category

		ginkgo.BeforeEach(func() {
			category = &Category{ID: "cat-1", Name: "Alimentação", Kind: KindExpense}
			Expect(db.SaveCategory(category)).To(Succeed())
		})

		ginkgo.It("should round-trip through storage", func() {
			got, err := db.GetCategory("cat-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(category))
		})

		ginkgo.It("should list saved categories", func() {
			Expect(db.SaveCategory(&Category{ID: "cat-2", Name: "Salário", Kind: KindIncome})).To(Succeed())

			categories, err := db.ListCategories()
			Expect(err).ToNot(HaveOccurred())
			Expect(categories).To(HaveLen(2))
		})

		ginkgo.It("should delete a category", func() {
			Expect(db.DeleteCategory("cat-1")).To(Succeed())
			_, err := db.GetCategory("cat-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		ginkgo.It("should report a missing category", func() {
			_, err := db.GetCategory("nope")
			Expect(err).To(MatchError(ErrNotFound))
		})

		ginkgo.It("should overwrite on save with the same ID", func() {
			category.Name = "Restaurantes"
			Expect(db.SaveCategory(category)).To(Succeed())

			got, err := db.GetCategory("cat-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Name).To(Equal("Restaurantes"))
		})
	})

	ginkgo.Describe("accounts", func() {
		var account *Account

		ginkgo.BeforeEach(func() {
			account = &Account{
				ID:                  "acc-1",
				Name:                "Conta Corrente",
				Kind:                "corrente",
				Institution:         "Nubank",
				OpeningBalanceCents: 100000,
			}
			Expect(db.SaveAccount(account)).To(Succeed())
		})

		ginkgo.It("should round-trip through storage", func() {
			got, err := db.GetAccount("acc-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(account))
		})

		ginkgo.It("should list saved accounts", func() {
			accounts, err := db.ListAccounts()
			Expect(err).ToNot(HaveOccurred())
			Expect(accounts).To(HaveLen(1))
		})

		ginkgo.It("should delete an account", func() {
			Expect(db.DeleteAccount("acc-1")).To(Succeed())
			_, err := db.GetAccount("acc-1")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	ginkgo.Describe("entries", func() {
		var entry *Entry

		ginkgo.BeforeEach(func() {
			entry = &Entry{
				ID:          "ent-1",
				Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
				Description: "Mercado",
				CategoryID:  "cat-1",
				AccountID:   "acc-1",
				AmountCents: -12345,
				Kind:        KindExpense,
				Month:       3,
				Year:        2024,
				CreatedAt:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
				UpdatedAt:   time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
			}
			Expect(db.SaveEntry(entry)).To(Succeed())
		})

		ginkgo.It("should round-trip through storage", func() {
			got, err := db.GetEntry("ent-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(entry))
		})

		ginkgo.It("should list saved entries", func() {
			entries, err := db.ListEntries()
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		ginkgo.It("should delete an entry", func() {
			Expect(db.DeleteEntry("ent-1")).To(Succeed())
			_, err := db.GetEntry("ent-1")
			Expect(err).To(MatchError(ErrNotFound))
		})

		ginkgo.It("should report a missing entry", func() {
			_, err := db.GetEntry("nope")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	ginkgo.Describe("persistence across reopen", func() {
		ginkgo.It("should keep records after closing and reopening", func() {
			path := filepath.Join(ginkgo.GinkgoT().TempDir(), "persist.db")

			first, err := NewBoltDB(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(first.SaveCategory(&Category{ID: "cat-1", Name: "Transporte", Kind: KindExpense})).To(Succeed())
			Expect(first.Close()).To(Succeed())

			second, err := NewBoltDB(path)
			Expect(err).ToNot(HaveOccurred())
			defer second.Close()

			got, err := second.GetCategory("cat-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Name).To(Equal("Transporte"))
		})
	})
})
