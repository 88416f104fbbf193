package receipt

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalObjectStorage", func() {
	var (
		dir     string
		storage *LocalObjectStorage
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		storage, err = NewLocalObjectStorage(dir, "http://localhost:8080/", []byte("test-secret"))
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("NewLocalObjectStorage", func() {
		When("the secret is empty", func() {
			It("should return an error", func() {
				_, err := NewLocalObjectStorage(dir, "http://localhost:8080", nil)
				Expect(err).To(HaveOccurred())
			})
		})

		When("the bucket directory does not exist", func() {
			It("should create it", func() {
				nested := filepath.Join(dir, "a", "b")
				_, err := NewLocalObjectStorage(nested, "http://localhost:8080", []byte("s"))
				Expect(err).ToNot(HaveOccurred())
				Expect(nested).To(BeADirectory())
			})
		})
	})

	Describe("Put and Get", func() {
		It("should round-trip an object", func() {
			Expect(storage.Put("user1/123.jpg", []byte("image bytes"), "image/jpeg", false)).To(Succeed())

			data, err := storage.Get("user1/123.jpg")
			Expect(err).ToNot(HaveOccurred())
			Expect(data).To(Equal([]byte("image bytes")))
		})

		When("the key already exists and overwrite is false", func() {
			It("should refuse to clobber the object", func() {
				Expect(storage.Put("user1/123.jpg", []byte("first"), "image/jpeg", false)).To(Succeed())
				Expect(storage.Put("user1/123.jpg", []byte("second"), "image/jpeg", false)).To(HaveOccurred())

				data, err := storage.Get("user1/123.jpg")
				Expect(err).ToNot(HaveOccurred())
				Expect(data).To(Equal([]byte("first")))
			})
		})

		When("the key already exists and overwrite is true", func() {
			It("should replace the object", func() {
				Expect(storage.Put("user1/123.jpg", []byte("first"), "image/jpeg", false)).To(Succeed())
				Expect(storage.Put("user1/123.jpg", []byte("second"), "image/jpeg", true)).To(Succeed())

				data, err := storage.Get("user1/123.jpg")
				Expect(err).ToNot(HaveOccurred())
				Expect(data).To(Equal([]byte("second")))
			})
		})

		When("the key attempts path traversal", func() {
			It("should be rejected everywhere", func() {
				Expect(storage.Put("../escape.jpg", []byte("x"), "image/jpeg", false)).To(HaveOccurred())
				_, err := storage.Get("../escape.jpg")
				Expect(err).To(HaveOccurred())
				Expect(storage.Remove("../escape.jpg")).To(HaveOccurred())
				_, err = storage.SignedURL("/abs.jpg", time.Hour)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Remove", func() {
		It("should delete the object", func() {
			Expect(storage.Put("user1/123.jpg", []byte("x"), "image/jpeg", false)).To(Succeed())
			Expect(storage.Remove("user1/123.jpg")).To(Succeed())

			_, err := os.Stat(filepath.Join(dir, "user1", "123.jpg"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		When("the object does not exist", func() {
			It("should return an error", func() {
				Expect(storage.Remove("user1/missing.jpg")).To(HaveOccurred())
			})
		})
	})

	Describe("SignedURL", func() {
		It("should issue a URL under the trimmed base", func() {
			signed, err := storage.SignedURL("user1/123.jpg", time.Hour)
			Expect(err).ToNot(HaveOccurred())
			Expect(signed).To(HavePrefix("http://localhost:8080/files/user1/123.jpg?"))
		})

		It("should verify against its own query parameters", func() {
			signed, err := storage.SignedURL("user1/123.jpg", time.Hour)
			Expect(err).ToNot(HaveOccurred())

			parsed, err := url.Parse(signed)
			Expect(err).ToNot(HaveOccurred())
			Expect(storage.VerifySignedQuery("user1/123.jpg", parsed.Query())).To(BeTrue())
		})
	})

	Describe("VerifySignedQuery", func() {
		var query url.Values

		BeforeEach(func() {
			signed, err := storage.SignedURL("user1/123.jpg", time.Hour)
			Expect(err).ToNot(HaveOccurred())
			parsed, err := url.Parse(signed)
			Expect(err).ToNot(HaveOccurred())
			query = parsed.Query()
		})

		When("the signature covers a different key", func() {
			It("should reject", func() {
				Expect(storage.VerifySignedQuery("user2/123.jpg", query)).To(BeFalse())
			})
		})

		When("the signature is tampered with", func() {
			It("should reject", func() {
				query.Set("sig", "deadbeef")
				Expect(storage.VerifySignedQuery("user1/123.jpg", query)).To(BeFalse())
			})
		})

		When("the expiry is tampered with", func() {
			It("should reject", func() {
				query.Set("exp", "99999999999")
				Expect(storage.VerifySignedQuery("user1/123.jpg", query)).To(BeFalse())
			})
		})

		When("the expiry is missing", func() {
			It("should reject", func() {
				query.Del("exp")
				Expect(storage.VerifySignedQuery("user1/123.jpg", query)).To(BeFalse())
			})
		})

		When("the URL has expired", func() {
			It("should reject", func() {
				storage.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
				Expect(storage.VerifySignedQuery("user1/123.jpg", query)).To(BeFalse())
			})
		})
	})
})
