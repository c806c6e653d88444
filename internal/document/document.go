package document

import (
	"time"

	"github.com/janvolk/arkiv/internal/scanner"
)

// Document is the finished output of a scan session: the ordered page
// sequence plus session metadata. Immutable once emitted; page order equals
// acquisition order.
type Document struct {
	ID         string
	BackendID  string
	Mode       string
	Resolution int
	Pages      []scanner.Page
	CreatedAt  time.Time
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Record is the catalog entry kept for an archived document. The page
// payloads themselves live on disk under Dir.
type Record struct {
	ID         string    `json:"id"`
	Dir        string    `json:"dir"`
	PageCount  int       `json:"page_count"`
	BackendID  string    `json:"backend_id"`
	Mode       string    `json:"mode"`
	Resolution int       `json:"resolution"`
	CreatedAt  time.Time `json:"created_at"`
}
