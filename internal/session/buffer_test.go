package session

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/janvolk/arkiv/internal/scanner"
)

var _ = Describe("PageBuffer", func() {
	var buffer *PageBuffer

	BeforeEach(func() {
		buffer = NewPageBuffer()
	})

	Describe("Append", func() {
		It("should preserve insertion order and stamp sequence indexes", func() {
			buffer.Append(scanner.Page{Data: []byte("a")})
			buffer.Append(scanner.Page{Data: []byte("b")})
			buffer.Append(scanner.Page{Data: []byte("c")})

			pages := buffer.Finalize()
			Expect(pages).To(HaveLen(3))
			Expect(string(pages[0].Data)).To(Equal("a"))
			Expect(string(pages[1].Data)).To(Equal("b"))
			Expect(string(pages[2].Data)).To(Equal("c"))
			Expect(pages[0].Sequence).To(Equal(0))
			Expect(pages[1].Sequence).To(Equal(1))
			Expect(pages[2].Sequence).To(Equal(2))
		})
	})

	Describe("RemoveLast", func() {
		When("the buffer holds pages", func() {
			BeforeEach(func() {
				buffer.Append(scanner.Page{Data: []byte("a")})
				buffer.Append(scanner.Page{Data: []byte("b")})
			})

			It("should remove only the most recent page", func() {
				removed, ok := buffer.RemoveLast()
				Expect(ok).To(BeTrue())
				Expect(string(removed.Data)).To(Equal("b"))
				Expect(buffer.Len()).To(Equal(1))
			})

			It("should reuse the freed sequence index on the next append", func() {
				buffer.RemoveLast()
				buffer.Append(scanner.Page{Data: []byte("b2")})

				pages := buffer.Finalize()
				Expect(pages).To(HaveLen(2))
				Expect(string(pages[1].Data)).To(Equal("b2"))
				Expect(pages[1].Sequence).To(Equal(1))
			})
		})

		When("the buffer is empty", func() {
			It("should be a no-op, not an error", func() {
				_, ok := buffer.RemoveLast()
				Expect(ok).To(BeFalse())
				Expect(buffer.Len()).To(Equal(0))
			})
		})
	})

	Describe("Finalize", func() {
		It("should return an empty sequence for an empty buffer", func() {
			Expect(buffer.Finalize()).To(BeEmpty())
		})

		It("should panic when finalized twice", func() {
			buffer.Finalize()
			Expect(func() { buffer.Finalize() }).To(Panic())
		})

		It("should panic on append after finalize", func() {
			buffer.Finalize()
			Expect(func() { buffer.Append(scanner.Page{}) }).To(Panic())
		})
	})
})
