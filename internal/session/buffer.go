package session

import "github.com/janvolk/arkiv/internal/scanner"

// PageBuffer is the ordered collection of pages captured so far. Insertion
// order equals capture order equals final page order; the only permitted
// mutation besides append is undoing the most recent capture.
type PageBuffer struct {
	pages     []scanner.Page
	finalized bool
}

// NewPageBuffer creates an empty buffer.
func NewPageBuffer() *PageBuffer {
	return &PageBuffer{}
}

// Append adds a page to the end of the buffer and stamps its sequence index.
func (b *PageBuffer) Append(page scanner.Page) {
	if b.finalized {
		panic("session: append to finalized page buffer")
	}
	page.Sequence = len(b.pages)
	b.pages = append(b.pages, page)
}

// RemoveLast undoes the most recent capture. Returns false when the buffer
// is empty; having nothing to undo is a valid state, not an error.
func (b *PageBuffer) RemoveLast() (scanner.Page, bool) {
	if b.finalized {
		panic("session: remove from finalized page buffer")
	}
	if len(b.pages) == 0 {
		return scanner.Page{}, false
	}
	last := b.pages[len(b.pages)-1]
	b.pages = b.pages[:len(b.pages)-1]
	return last, true
}

// Len returns the number of buffered pages.
func (b *PageBuffer) Len() int {
	return len(b.pages)
}

// Finalize consumes the buffer and returns the pages in capture order. The
// buffer must not be used afterwards; finalizing twice is an internal
// consistency fault and panics.
func (b *PageBuffer) Finalize() []scanner.Page {
	if b.finalized {
		panic("session: page buffer finalized twice")
	}
	b.finalized = true
	pages := b.pages
	b.pages = nil
	return pages
}
