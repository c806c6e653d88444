package document

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		db  *BoltDB
		err error
	)

	BeforeEach(func() {
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "arkiv.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	newRecord := func(id string) *Record {
		return &Record{
			ID:         id,
			Dir:        "/archive/20240131-154502",
			PageCount:  3,
			BackendID:  "office",
			Mode:       "ADF single sided",
			Resolution: 300,
			CreatedAt:  time.Date(2024, 1, 31, 15, 45, 2, 0, time.UTC),
		}
	}

	Describe("SaveDocument and GetDocument", func() {
		It("should round-trip a record", func() {
			record := newRecord("doc-1")
			Expect(db.SaveDocument(record)).To(Succeed())

			got, getErr := db.GetDocument("doc-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(record.ID))
			Expect(got.Dir).To(Equal(record.Dir))
			Expect(got.PageCount).To(Equal(record.PageCount))
			Expect(got.BackendID).To(Equal(record.BackendID))
			Expect(got.Mode).To(Equal(record.Mode))
			Expect(got.Resolution).To(Equal(record.Resolution))
			Expect(got.CreatedAt.Equal(record.CreatedAt)).To(BeTrue())
		})

		It("should overwrite an existing record with the same ID", func() {
			record := newRecord("doc-1")
			Expect(db.SaveDocument(record)).To(Succeed())

			record.PageCount = 5
			Expect(db.SaveDocument(record)).To(Succeed())

			got, getErr := db.GetDocument("doc-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(got.PageCount).To(Equal(5))
		})

		It("should return an error for an unknown ID", func() {
			_, getErr := db.GetDocument("missing")
			Expect(getErr).To(HaveOccurred())
		})
	})

	Describe("ListDocuments", func() {
		It("should return an empty list for a fresh catalog", func() {
			records, listErr := db.ListDocuments()
			Expect(listErr).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("should return all saved records", func() {
			Expect(db.SaveDocument(newRecord("doc-1"))).To(Succeed())
			Expect(db.SaveDocument(newRecord("doc-2"))).To(Succeed())

			records, listErr := db.ListDocuments()
			Expect(listErr).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})
	})
})
