package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/image/tiff"
)

// SANE exit statuses as reported by scanimage.
const (
	saneStatusDeviceBusy = 3
	saneStatusJammed     = 6
	saneStatusNoDocs     = 7
	saneStatusIOError    = 9
)

const defaultDeviceTimeout = 2 * time.Minute

// Sources holds the device-specific source option strings. A scanner might
// call its feeder "ADF" while another calls it "Automatic Document
// Feeder(centrally aligned)", so the strings come from configuration.
type Sources struct {
	ADFSingle string
	ADFDuplex string
	Flatbed   string
}

// SANEDevice describes one configured scanner reachable through scanimage.
type SANEDevice struct {
	ID             string
	DeviceName     string
	AdditionalArgs []string
	Sources        Sources
	Timeout        time.Duration
}

// SANE drives a physical scanner by invoking the scanimage binary once per
// page. Each successful invocation yields one TIFF-encoded page on stdout.
type SANE struct {
	device SANEDevice
	run    runCommandFunc
}

// runCommandFunc executes scanimage and returns stdout, stderr and the exit
// code. Swapped out in tests.
type runCommandFunc func(ctx context.Context, args []string) (stdout, stderr []byte, exitCode int, err error)

// NewSANE creates a backend for the given device.
func NewSANE(device SANEDevice) *SANE {
	if device.Timeout <= 0 {
		device.Timeout = defaultDeviceTimeout
	}
	return &SANE{device: device, run: runScanimage}
}

// ID returns the configured device identifier.
func (s *SANE) ID() string {
	return s.device.ID
}

// Capabilities derives the capability set from the configured sources.
func (s *SANE) Capabilities() Capabilities {
	return Capabilities{
		ADFSingle: s.device.Sources.ADFSingle != "",
		ADFDuplex: s.device.Sources.ADFDuplex != "",
		Flatbed:   s.device.Sources.Flatbed != "",
	}
}

// Acquire captures one page. The device timeout is owned here, not by the
// caller: the context passed to scanimage is bounded by the configured
// per-device timeout in addition to any caller deadline.
func (s *SANE) Acquire(ctx context.Context, opts AcquireOptions) (*Page, error) {
	source, err := s.sourceFor(opts.Mode)
	if err != nil {
		return nil, err
	}

	args := buildScanimageArgs(s.device, source, opts.Resolution)
	slog.Debug("Calling scanimage", "device", s.device.ID, "args", args)

	runCtx, cancel := context.WithTimeout(ctx, s.device.Timeout)
	defer cancel()

	stdout, stderr, exitCode, err := s.run(runCtx, args)
	if err != nil {
		return nil, fmt.Errorf("running scanimage: %w", err)
	}
	if exitCode != 0 {
		return nil, classifyScanError(exitCode, string(stderr))
	}
	if len(stdout) == 0 {
		return nil, fmt.Errorf("scanimage produced no image data: %w", ErrDeviceUnavailable)
	}

	cfg, err := tiff.DecodeConfig(bytes.NewReader(stdout))
	if err != nil {
		return nil, fmt.Errorf("decoding scanned TIFF: %w", err)
	}

	return &Page{
		Data:       stdout,
		Width:      cfg.Width,
		Height:     cfg.Height,
		DPI:        int(opts.Resolution),
		BackendID:  s.device.ID,
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the device. scanimage is invoked per page, so there is no
// persistent handle to tear down.
func (s *SANE) Close() error {
	return nil
}

func (s *SANE) sourceFor(mode Mode) (string, error) {
	var source string
	switch mode {
	case ADFSingleSided:
		source = s.device.Sources.ADFSingle
	case ADFDuplex:
		source = s.device.Sources.ADFDuplex
	case FlatbedMulti:
		source = s.device.Sources.Flatbed
	}
	if source == "" {
		return "", fmt.Errorf("%s not configured for scanner %s: %w", mode, s.device.ID, ErrUnsupportedMode)
	}
	return source, nil
}

// buildScanimageArgs assembles the scanimage argument list for a single-page
// acquire. Page size is fixed to A4; resolution and source vary per call.
func buildScanimageArgs(device SANEDevice, source string, resolution Resolution) []string {
	if resolution == 0 {
		resolution = ResolutionNormal
	}
	args := []string{
		"-d", device.DeviceName,
		"--format=tiff",
		fmt.Sprintf("--resolution=%d", int(resolution)),
		"-x", "210",
		"-y", "297",
		fmt.Sprintf("--source=%s", source),
	}
	args = append(args, device.AdditionalArgs...)
	return args
}

// classifyScanError maps a scanimage failure onto the backend error
// vocabulary. scanimage exits with the SANE status code of the failed
// operation; stderr is consulted for frontend errors that exit with 1.
func classifyScanError(exitCode int, stderr string) error {
	switch exitCode {
	case saneStatusNoDocs:
		return fmt.Errorf("scanimage: %w", ErrFeedEmpty)
	case saneStatusJammed:
		return fmt.Errorf("scanimage: %w", ErrDeviceJam)
	case saneStatusDeviceBusy, saneStatusIOError:
		return fmt.Errorf("scanimage exited with status %d: %w", exitCode, ErrDeviceUnavailable)
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "no documents"), strings.Contains(lower, "out of documents"):
		return fmt.Errorf("scanimage: %w", ErrFeedEmpty)
	case strings.Contains(lower, "jammed"), strings.Contains(lower, "paper jam"):
		return fmt.Errorf("scanimage: %w", ErrDeviceJam)
	case strings.Contains(lower, "no sane devices"),
		strings.Contains(lower, "couldn't open device"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "device busy"):
		return fmt.Errorf("scanimage: %s: %w", strings.TrimSpace(stderr), ErrDeviceUnavailable)
	}

	return fmt.Errorf("scanimage exited with status %d: %s", exitCode, strings.TrimSpace(stderr))
}

// runScanimage executes the real scanimage binary.
func runScanimage(ctx context.Context, args []string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, "scanimage", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
		}
		return nil, nil, -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}
