package document

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/janvolk/arkiv/internal/scanner"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("SaveDocument", func() {
		var (
			pages    []scanner.Page
			savedDir string
			err      error
		)

		BeforeEach(func() {
			pages = []scanner.Page{
				{Data: []byte("first page")},
				{Data: []byte("second page")},
			}
		})

		JustBeforeEach(func() {
			savedDir, err = storage.SaveDocument("20240131-154502", pages)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the document directory", func() {
				Expect(savedDir).To(Equal(filepath.Join(tmpDir, "20240131-154502")))
				Expect(savedDir).To(BeADirectory())
			})

			It("should number the pages from 1000", func() {
				first, readErr := os.ReadFile(filepath.Join(savedDir, "1000.tif"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(string(first)).To(Equal("first page"))

				second, readErr := os.ReadFile(filepath.Join(savedDir, "1001.tif"))
				Expect(readErr).NotTo(HaveOccurred())
				Expect(string(second)).To(Equal("second page"))
			})
		})

		When("the directory already exists", func() {
			BeforeEach(func() {
				Expect(os.Mkdir(filepath.Join(tmpDir, "20240131-154502"), 0755)).To(Succeed())
			})

			It("should return an error instead of merging", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		It("should remove the document directory", func() {
			dir, err := storage.SaveDocument("doc", []scanner.Page{{Data: []byte("x")}})
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(BeADirectory())

			Expect(storage.Delete("doc")).To(Succeed())
			Expect(dir).NotTo(BeADirectory())
		})

		It("should tolerate deleting a missing directory", func() {
			Expect(storage.Delete("missing")).To(Succeed())
		})
	})
})
