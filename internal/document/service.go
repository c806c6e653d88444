package document

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// dirTimestampLayout names document directories after their archive time,
// e.g. 20240131-154502. Downstream postprocessing picks documents up by
// directory.
const dirTimestampLayout = "20060102-150405"

// IDGenerator generates unique IDs for archived documents
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates IDs using random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service is the handoff collaborator for finished documents: it persists
// the page sequence to storage and records the document in the catalog.
// From the moment Archive returns, the service owns the document.
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Archive persists a finished document and records it in the catalog. The
// written directory is rolled back if the catalog write fails, so storage
// and catalog never disagree about which documents exist.
func (s *Service) Archive(doc *Document) (*Record, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	name := now.Format(dirTimestampLayout)
	dir, err := s.storage.SaveDocument(name, doc.Pages)
	if err != nil {
		// Two documents archived within the same second collide on the
		// timestamp name; retry once with the ID appended.
		name = fmt.Sprintf("%s-%.8s", name, id)
		dir, err = s.storage.SaveDocument(name, doc.Pages)
		if err != nil {
			return nil, fmt.Errorf("saving document pages: %w", err)
		}
	}

	record := &Record{
		ID:         id,
		Dir:        dir,
		PageCount:  len(doc.Pages),
		BackendID:  doc.BackendID,
		Mode:       doc.Mode,
		Resolution: doc.Resolution,
		CreatedAt:  now,
	}

	if err := s.db.SaveDocument(record); err != nil {
		// Clean up the written pages if the catalog write fails
		if delErr := s.storage.Delete(name); delErr != nil {
			slog.Warn("Failed to roll back document directory", "dir", dir, "error", delErr)
		}
		return nil, fmt.Errorf("saving document record: %w", err)
	}

	slog.Info("Archived document", "id", id, "dir", dir, "pages", len(doc.Pages))
	return record, nil
}

// Get retrieves a document record by ID
func (s *Service) Get(id string) (*Record, error) {
	record, err := s.db.GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return record, nil
}

// List returns all archived document records
func (s *Service) List() ([]*Record, error) {
	records, err := s.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return records, nil
}
