package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Mode selects how pages are fed into the device.
type Mode int

const (
	// ADFSingleSided feeds pages through the document feeder, front side only.
	ADFSingleSided Mode = iota
	// ADFDuplex feeds pages through the document feeder, scanning both sides.
	ADFDuplex
	// FlatbedMulti captures one manually placed page per acquire.
	FlatbedMulti
)

func (m Mode) String() string {
	switch m {
	case ADFSingleSided:
		return "ADF single sided"
	case ADFDuplex:
		return "ADF duplex"
	case FlatbedMulti:
		return "Flatbed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// IsADF reports whether the mode runs unattended off the document feeder.
func (m Mode) IsADF() bool {
	return m == ADFSingleSided || m == ADFDuplex
}

// Resolution is the scan resolution in DPI.
type Resolution int

const (
	ResolutionNormal Resolution = 300
	ResolutionHigh   Resolution = 600
)

// Capabilities describes which feed sources a backend supports.
type Capabilities struct {
	ADFSingle bool
	ADFDuplex bool
	Flatbed   bool
}

// Supports reports whether the capability set covers the given mode.
func (c Capabilities) Supports(mode Mode) bool {
	switch mode {
	case ADFSingleSided:
		return c.ADFSingle
	case ADFDuplex:
		return c.ADFDuplex
	case FlatbedMulti:
		return c.Flatbed
	default:
		return false
	}
}

// Modes returns the supported modes in a fixed presentation order.
func (c Capabilities) Modes() []Mode {
	var modes []Mode
	if c.ADFSingle {
		modes = append(modes, ADFSingleSided)
	}
	if c.ADFDuplex {
		modes = append(modes, ADFDuplex)
	}
	if c.Flatbed {
		modes = append(modes, FlatbedMulti)
	}
	return modes
}

// Page is a single captured page image. Immutable once created.
type Page struct {
	// Data is the TIFF-encoded page payload.
	Data []byte
	// Width and Height are the pixel dimensions of the page.
	Width  int
	Height int
	// DPI is the resolution the page was captured at.
	DPI int
	// BackendID identifies the backend that captured the page.
	BackendID string
	// CapturedAt is the capture timestamp.
	CapturedAt time.Time
	// Sequence is the zero-based capture index within the document.
	// Assigned when the page is appended to a page buffer.
	Sequence int
}

// AcquireOptions carries per-acquire settings.
type AcquireOptions struct {
	Mode       Mode
	Resolution Resolution
}

// Backend is the capability a scan session drives: a device (or a stand-in)
// that can report what it supports and produce one page per acquire call.
type Backend interface {
	// ID returns a stable identifier for the backend.
	ID() string

	// Capabilities reports the supported feed sources. Pure query.
	Capabilities() Capabilities

	// Acquire captures exactly one new page. It blocks until the device
	// produces the page or fails; any device-level timeout is owned by the
	// backend. End of input is signaled with an error matching ErrFeedEmpty.
	Acquire(ctx context.Context, opts AcquireOptions) (*Page, error)

	// Close releases device resources.
	Close() error
}

var (
	// ErrFeedEmpty signals that the feed has no more pages. This is the
	// normal end-of-input condition for ADF scans, not a failure.
	ErrFeedEmpty = errors.New("document feed empty")

	// ErrFixtureExhausted is the fake backend's end-of-input signal. It
	// wraps ErrFeedEmpty so the session treats both identically.
	ErrFixtureExhausted = fmt.Errorf("fixture list exhausted: %w", ErrFeedEmpty)

	// ErrDeviceJam signals a paper jam. Never auto-retried.
	ErrDeviceJam = errors.New("paper jam")

	// ErrDeviceUnavailable signals a transient device failure (unreachable,
	// busy, powered off). Retried once before the operator is asked.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrUnsupportedMode is returned when a mode is selected that the
	// backend's capability set does not cover.
	ErrUnsupportedMode = errors.New("mode not supported by backend")

	// ErrBackendBusy is returned when a session is started against a
	// backend that already has an active session.
	ErrBackendBusy = errors.New("backend busy")
)
