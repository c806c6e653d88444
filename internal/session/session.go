package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/janvolk/arkiv/internal/document"
	"github.com/janvolk/arkiv/internal/scanner"
)

// State is the scan session's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateModeSelected
	StateAcquiring
	StateAwaitingDecision
	StateFinalizing
	StateFinished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateModeSelected:
		return "mode selected"
	case StateAcquiring:
		return "acquiring"
	case StateAwaitingDecision:
		return "awaiting decision"
	case StateFinalizing:
		return "finalizing"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prompter is the operator interaction port consumed by the session. The
// concrete terminal implementation lives elsewhere; the session only needs
// answers.
type Prompter interface {
	// AskYesNo asks a yes/no question and blocks until the operator answers.
	AskYesNo(prompt string) (bool, error)

	// AskChoice presents options and returns the selected index.
	AskChoice(prompt string, options []string) (int, error)
}

var (
	// ErrEmptyDocument reports that a session finished without capturing any
	// pages. The session still reaches the finished state; the caller
	// decides whether an empty result is acceptable.
	ErrEmptyDocument = errors.New("document contains no pages")

	// ErrAborted reports that the operator chose to abort the session.
	ErrAborted = errors.New("scan aborted by operator")
)

// AbortError is returned when a session terminates without producing a
// document. Salvaged holds the already-captured pages when the operator
// chose to keep them for inspection.
type AbortError struct {
	Cause    error
	Salvaged []scanner.Page
}

func (e *AbortError) Error() string {
	if len(e.Salvaged) > 0 {
		return fmt.Sprintf("session aborted with %d page(s) salvaged: %v", len(e.Salvaged), e.Cause)
	}
	return fmt.Sprintf("session aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// Session drives one scan-to-document workflow: it owns its page buffer and
// its backend handle from mode selection until a terminal state.
type Session struct {
	backend  scanner.Backend
	prompter Prompter
	buffer   *PageBuffer

	state State
	opts  scanner.AcquireOptions

	releaseOnce sync.Once
	release     func()
}

func newSession(backend scanner.Backend, prompter Prompter) *Session {
	return &Session{
		backend:  backend,
		prompter: prompter,
		buffer:   NewPageBuffer(),
		state:    StateIdle,
		release:  func() {},
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Release gives the backend back to the manager. Run releases on its own
// when it reaches a terminal state; callers that abandon a session before
// running it must release explicitly. Safe to call more than once.
func (s *Session) Release() {
	s.releaseOnce.Do(s.release)
}

// PageCount returns how many pages the session has captured so far.
func (s *Session) PageCount() int {
	return s.buffer.Len()
}

// SelectMode fixes the scan mode and resolution for the session. The mode
// must be covered by the backend's capability set; if not, the session stays
// idle and the operator may choose again.
func (s *Session) SelectMode(mode scanner.Mode, resolution scanner.Resolution) error {
	if s.state != StateIdle {
		return fmt.Errorf("cannot select mode in state %q", s.state)
	}
	if !s.backend.Capabilities().Supports(mode) {
		return fmt.Errorf("backend %s: %s: %w", s.backend.ID(), mode, scanner.ErrUnsupportedMode)
	}
	s.opts = scanner.AcquireOptions{Mode: mode, Resolution: resolution}
	s.state = StateModeSelected
	return nil
}

// Run executes the session to a terminal state. On success it returns the
// finished document; a finished session with zero pages returns the empty
// document together with ErrEmptyDocument. On abort it returns an
// *AbortError carrying any salvaged pages.
func (s *Session) Run(ctx context.Context) (*document.Document, error) {
	if s.state != StateModeSelected {
		return nil, fmt.Errorf("cannot run session in state %q", s.state)
	}
	defer s.releaseOnce.Do(s.release)

	slog.Info("Scan session started", "backend", s.backend.ID(), "mode", s.opts.Mode.String())

	var runErr error
	if s.opts.Mode.IsADF() {
		runErr = s.runADF(ctx)
	} else {
		runErr = s.runFlatbed(ctx)
	}
	if runErr != nil {
		s.state = StateAborted
		slog.Info("Scan session aborted", "backend", s.backend.ID(), "pages", s.buffer.Len())
		return nil, runErr
	}

	return s.finalize()
}

// runADF acquires pages unattended until the feeder reports it is empty.
func (s *Session) runADF(ctx context.Context) error {
	for {
		s.state = StateAcquiring
		page, err := s.acquireWithRetry(ctx)
		if err != nil {
			if errors.Is(err, scanner.ErrFeedEmpty) {
				return nil
			}
			return s.abort(err)
		}
		s.buffer.Append(*page)
		slog.Debug("Captured page", "sequence", s.buffer.Len(), "width", page.Width, "height", page.Height)
	}
}

// runFlatbed acquires one page at a time and lets the operator confirm,
// retry or finish after each capture.
func (s *Session) runFlatbed(ctx context.Context) error {
	for {
		s.state = StateAcquiring
		page, err := s.acquireWithRetry(ctx)
		if err != nil {
			if errors.Is(err, scanner.ErrFeedEmpty) {
				// No more input available; finish with what we have.
				return nil
			}
			return s.abort(err)
		}
		s.buffer.Append(*page)

		s.state = StateAwaitingDecision
		choice, err := s.prompter.AskChoice(
			fmt.Sprintf("Captured page %d. How to proceed?", s.buffer.Len()),
			[]string{"Scan next page", "Retry this page", "Finish document"},
		)
		if err != nil {
			return s.abort(fmt.Errorf("asking operator: %w", err))
		}

		switch choice {
		case 0:
			continue
		case 1:
			if _, ok := s.buffer.RemoveLast(); ok {
				slog.Debug("Discarded last page for retry", "remaining", s.buffer.Len())
			}
		case 2:
			return nil
		default:
			return s.abort(fmt.Errorf("unexpected operator choice %d", choice))
		}
	}
}

// acquireWithRetry acquires one page. A transient device failure is retried
// once automatically; any remaining failure is escalated to the operator,
// who may keep retrying manually or abort. Feed-empty signals pass through
// untouched.
func (s *Session) acquireWithRetry(ctx context.Context) (*scanner.Page, error) {
	for {
		page, err := s.backend.Acquire(ctx, s.opts)
		if err == nil {
			return page, nil
		}
		if errors.Is(err, scanner.ErrFeedEmpty) {
			return nil, err
		}

		if errors.Is(err, scanner.ErrDeviceUnavailable) {
			slog.Warn("Device unavailable, retrying once", "backend", s.backend.ID(), "error", err)
			page, retryErr := s.backend.Acquire(ctx, s.opts)
			if retryErr == nil {
				return page, nil
			}
			if errors.Is(retryErr, scanner.ErrFeedEmpty) {
				return nil, retryErr
			}
			err = retryErr
		}

		s.state = StateAwaitingDecision
		choice, promptErr := s.prompter.AskChoice(
			fmt.Sprintf("Scan failed: %v. How to proceed?", err),
			[]string{"Retry", "Abort"},
		)
		if promptErr != nil {
			return nil, fmt.Errorf("asking operator: %w", promptErr)
		}
		if choice != 0 {
			return nil, fmt.Errorf("%w: %w", ErrAborted, err)
		}
		s.state = StateAcquiring
	}
}

// abort terminates the session without emitting a document. Captured pages
// are never dropped silently: the operator decides whether to keep them for
// inspection, and if that decision cannot be obtained the pages are kept.
func (s *Session) abort(cause error) error {
	abortErr := &AbortError{Cause: cause}

	if n := s.buffer.Len(); n > 0 {
		keep, err := s.prompter.AskYesNo(fmt.Sprintf("Keep the %d captured page(s) for inspection?", n))
		if err != nil {
			slog.Warn("Could not ask operator about captured pages, keeping them", "error", err)
			keep = true
		}
		if keep {
			abortErr.Salvaged = s.buffer.Finalize()
		} else {
			slog.Info("Discarding captured pages at operator request", "pages", n)
		}
	}
	return abortErr
}

// finalize consumes the page buffer into the finished document.
func (s *Session) finalize() (*document.Document, error) {
	s.state = StateFinalizing
	pages := s.buffer.Finalize()

	doc := &document.Document{
		BackendID:  s.backend.ID(),
		Mode:       s.opts.Mode.String(),
		Resolution: int(s.opts.Resolution),
		Pages:      pages,
		CreatedAt:  time.Now(),
	}
	s.state = StateFinished

	if len(pages) == 0 {
		slog.Info("Scan session finished without pages", "backend", s.backend.ID())
		return doc, ErrEmptyDocument
	}
	slog.Info("Scan session finished", "backend", s.backend.ID(), "pages", len(pages))
	return doc, nil
}
