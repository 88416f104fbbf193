package finance

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	categoryBucketName = "categorias"
	accountBucketName  = "contas"
	entryBucketName    = "lancamentos"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB defines the interface for finance persistence.
type DB interface {
	SaveCategory(category *Category) error
	GetCategory(id string) (*Category, error)
	ListCategories() ([]*Category, error)
	DeleteCategory(id string) error

	SaveAccount(account *Account) error
	GetAccount(id string) (*Account, error)
	ListAccounts() ([]*Account, error)
	DeleteAccount(id string) error

	SaveEntry(entry *Entry) error
	GetEntry(id string) (*Entry, error)
	ListEntries() ([]*Entry, error)
	DeleteEntry(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Records are stored as
// documents in the backend's original snake_case naming; mapping.go owns the
// translation.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{categoryBucketName, accountBucketName, entryBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// put marshals a document into the named bucket.
func (b *BoltDB) put(bucketName, id string, doc any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(id), data)
	})
}

// get unmarshals a document from the named bucket into doc.
func (b *BoltDB) get(bucketName, id string, doc any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, doc)
	})
}

// delete removes a record from the named bucket.
func (b *BoltDB) delete(bucketName, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(id))
	})
}

// SaveCategory saves a category to the database.
func (b *BoltDB) SaveCategory(category *Category) error {
	return b.put(categoryBucketName, category.ID, categoryToDoc(category))
}

// GetCategory retrieves a category by ID.
func (b *BoltDB) GetCategory(id string) (*Category, error) {
	var doc categoryDoc
	if err := b.get(categoryBucketName, id, &doc); err != nil {
		return nil, err
	}
	return categoryFromDoc(&doc)
}

// ListCategories returns all categories.
func (b *BoltDB) ListCategories() ([]*Category, error) {
	categories := make([]*Category, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(categoryBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc categoryDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling category: %w", err)
			}
			category, err := categoryFromDoc(&doc)
			if err != nil {
				return err
			}
			categories = append(categories, category)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteCategory removes a category from the database.
func (b *BoltDB) DeleteCategory(id string) error {
	return b.delete(categoryBucketName, id)
}

// SaveAccount saves an account to the database.
func (b *BoltDB) SaveAccount(account *Account) error {
	return b.put(accountBucketName, account.ID, accountToDoc(account))
}

// GetAccount retrieves an account by ID.
func (b *BoltDB) GetAccount(id string) (*Account, error) {
	var doc accountDoc
	if err := b.get(accountBucketName, id, &doc); err != nil {
		return nil, err
	}
	return accountFromDoc(&doc), nil
}

// ListAccounts returns all accounts.
func (b *BoltDB) ListAccounts() ([]*Account, error) {
	accounts := make([]*Account, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc accountDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling account: %w", err)
			}
			accounts = append(accounts, accountFromDoc(&doc))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteAccount removes an account from the database.
func (b *BoltDB) DeleteAccount(id string) error {
	return b.delete(accountBucketName, id)
}

// SaveEntry saves an entry to the database.
func (b *BoltDB) SaveEntry(entry *Entry) error {
	return b.put(entryBucketName, entry.ID, entryToDoc(entry))
}

// GetEntry retrieves an entry by ID.
func (b *BoltDB) GetEntry(id string) (*Entry, error) {
	var doc entryDoc
	if err := b.get(entryBucketName, id, &doc); err != nil {
		return nil, err
	}
	return entryFromDoc(&doc)
}

// ListEntries returns all entries.
func (b *BoltDB) ListEntries() ([]*Entry, error) {
	entries := make([]*Entry, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entryBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var doc entryDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling entry: %w", err)
			}
			entry, err := entryFromDoc(&doc)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteEntry removes an entry from the database.
func (b *BoltDB) DeleteEntry(id string) error {
	return b.delete(entryBucketName, id)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
