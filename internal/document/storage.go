package document

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/janvolk/arkiv/internal/scanner"
)

// pageNumberBase is the number of the first page file in a document
// directory, so downstream tools can rely on a fixed, sortable naming
// scheme (1000.tif, 1001.tif, ...).
const pageNumberBase = 1000

// Storage defines the interface for persisting document pages
type Storage interface {
	// SaveDocument writes the pages into a new directory with the given
	// name and returns the directory path
	SaveDocument(name string, pages []scanner.Page) (string, error)

	// Delete removes a stored document directory
	Delete(name string) error
}

// LocalStorage implements the Storage interface using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// SaveDocument writes each page as a numbered TIFF into a fresh directory.
// The directory must not exist yet; a name collision is reported to the
// caller rather than merged into.
func (l *LocalStorage) SaveDocument(name string, pages []scanner.Page) (string, error) {
	dir := filepath.Join(l.basePath, name)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("creating document directory: %w", err)
	}

	for i, page := range pages {
		path := filepath.Join(dir, fmt.Sprintf("%d.tif", pageNumberBase+i))
		if err := os.WriteFile(path, page.Data, 0644); err != nil {
			return "", fmt.Errorf("writing page %d: %w", i+1, err)
		}
	}
	return dir, nil
}

// Delete removes a document directory and its pages
func (l *LocalStorage) Delete(name string) error {
	if err := os.RemoveAll(filepath.Join(l.basePath, name)); err != nil {
		return fmt.Errorf("deleting document directory: %w", err)
	}
	return nil
}
