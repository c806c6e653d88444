package scanner

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	"golang.org/x/image/tiff"
)

// FakeBackendID is the backend identifier reported for fixture pages.
const FakeBackendID = "fake"

// Fake replays a fixed, ordered list of fixture images instead of driving
// hardware. Fixtures are loaded and normalized to TIFF once at construction,
// so repeated sessions over a fresh Fake yield bit-identical page payloads.
type Fake struct {
	fixtures []fixturePage

	mu     sync.Mutex
	cursor int
}

type fixturePage struct {
	name   string
	data   []byte
	width  int
	height int
}

// NewFake creates a fake backend from the image files in fixtureDir. The
// directory must exist; a missing or empty fixture directory is a
// configuration error, never a silent fallback to real hardware.
//
// Supported fixture formats: TIFF (used as-is), PNG/JPEG/GIF/HEIC
// (re-encoded to TIFF) and PDF (each PDF page becomes one fixture page).
// Files are ordered lexically by name; that order is the acquisition order.
func NewFake(fixtureDir string) (*Fake, error) {
	info, err := os.Stat(fixtureDir)
	if err != nil {
		return nil, fmt.Errorf("fixture directory %s: %w", fixtureDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture path %s is not a directory", fixtureDir)
	}

	entries, err := os.ReadDir(fixtureDir)
	if err != nil {
		return nil, fmt.Errorf("reading fixture directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && isFixtureFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var fixtures []fixturePage
	for _, name := range names {
		pages, err := loadFixture(filepath.Join(fixtureDir, name))
		if err != nil {
			return nil, fmt.Errorf("loading fixture %s: %w", name, err)
		}
		fixtures = append(fixtures, pages...)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("fixture directory %s contains no usable page images", fixtureDir)
	}

	slog.Debug("Loaded scan fixtures", "dir", fixtureDir, "pages", len(fixtures))
	return &Fake{fixtures: fixtures}, nil
}

// ID returns the fake backend identifier.
func (f *Fake) ID() string {
	return FakeBackendID
}

// Capabilities reports full support so any mode can be exercised against
// fixtures.
func (f *Fake) Capabilities() Capabilities {
	return Capabilities{ADFSingle: true, ADFDuplex: true, Flatbed: true}
}

// Acquire returns the next fixture page, or ErrFixtureExhausted once the
// list is consumed.
func (f *Fake) Acquire(ctx context.Context, opts AcquireOptions) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor >= len(f.fixtures) {
		return nil, ErrFixtureExhausted
	}
	fx := f.fixtures[f.cursor]
	f.cursor++

	return &Page{
		Data:       fx.data,
		Width:      fx.width,
		Height:     fx.height,
		DPI:        int(opts.Resolution),
		BackendID:  FakeBackendID,
		CapturedAt: time.Now(),
	}, nil
}

// Reset rewinds the fixture cursor to the first page.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = 0
}

// Remaining returns how many fixture pages are left.
func (f *Fake) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fixtures) - f.cursor
}

// Close releases nothing; fixtures live in memory.
func (f *Fake) Close() error {
	return nil
}

func isFixtureFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff", ".png", ".jpg", ".jpeg", ".gif", ".pdf", ".heic", ".heif":
		return true
	default:
		return false
	}
}

// loadFixture reads one fixture file and converts it into one or more
// TIFF-encoded fixture pages.
func loadFixture(path string) ([]fixturePage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".pdf" {
		return pdfFixturePages(name, data)
	}

	if ext == ".tif" || ext == ".tiff" {
		cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding TIFF: %w", err)
		}
		return []fixturePage{{name: name, data: data, width: cfg.Width, height: cfg.Height}}, nil
	}

	var img image.Image
	if isHEICData(data) || ext == ".heic" || ext == ".heif" {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	page, err := encodeFixturePage(name, img)
	if err != nil {
		return nil, err
	}
	return []fixturePage{page}, nil
}

// pdfFixturePages renders every page of a PDF fixture to a TIFF page image.
func pdfFixturePages(name string, data []byte) ([]fixturePage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]fixturePage, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		page, err := encodeFixturePage(fmt.Sprintf("%s#%d", name, i+1), img)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func encodeFixturePage(name string, img image.Image) (fixturePage, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.LZW}); err != nil {
		return fixturePage{}, fmt.Errorf("encoding TIFF: %w", err)
	}
	bounds := img.Bounds()
	return fixturePage{
		name:   name,
		data:   buf.Bytes(),
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}, nil
}

// isHEICData checks the ftyp box for HEIC/HEIF brands. Go's standard image
// registry cannot decode these, so they are routed to the heic decoder.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	default:
		return false
	}
}
