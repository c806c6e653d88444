package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/janvolk/arkiv/internal/scanner"
)

// Config is the arkiv configuration file, stored as TOML.
type Config struct {
	// Outdir is the directory finished documents are archived into.
	Outdir string `toml:"outdir"`

	// Scanners lists the configured scan devices.
	Scanners []Scanner `toml:"scanners"`
}

// Scanner configures one scan device.
type Scanner struct {
	// ID is a short identifier used in prompts and logs.
	ID string `toml:"id"`

	// DeviceName is the SANE device name
	// (e.g. "airscan:e1:HP ScanJet Flow N7000 snw1").
	DeviceName string `toml:"device_name"`

	// AdditionalArgs are passed through to scanimage verbatim.
	AdditionalArgs []string `toml:"additional_args"`

	// DeviceTimeoutSeconds bounds a single page acquisition. Zero means
	// the backend default.
	DeviceTimeoutSeconds int `toml:"device_timeout_seconds"`

	// Sources configures the device-specific source option strings. One
	// scanner might call its feeder "ADF" while another calls it
	// "Automatic Document Feeder(centrally aligned)".
	Sources Sources `toml:"sources"`
}

// Sources names the scan sources a device offers. Unset sources are
// treated as unsupported.
type Sources struct {
	ADFSingle string `toml:"adf_single"`
	ADFDuplex string `toml:"adf_duplex"`
	Flatbed   string `toml:"flatbed"`
}

// String renders the scanner for selection prompts.
func (s Scanner) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.DeviceName)
}

// Device converts the configured scanner into a SANE backend device.
func (s Scanner) Device() scanner.SANEDevice {
	return scanner.SANEDevice{
		ID:             s.ID,
		DeviceName:     s.DeviceName,
		AdditionalArgs: s.AdditionalArgs,
		Sources: scanner.Sources{
			ADFSingle: s.Sources.ADFSingle,
			ADFDuplex: s.Sources.ADFDuplex,
			Flatbed:   s.Sources.Flatbed,
		},
		Timeout: time.Duration(s.DeviceTimeoutSeconds) * time.Second,
	}
}

// DefaultPath returns the default config file location inside the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determining user config directory: %w", err)
	}
	return filepath.Join(dir, "arkiv", "config.toml"), nil
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist, please create it at %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Outdir == "" {
		return fmt.Errorf("outdir is required")
	}
	seen := make(map[string]bool)
	for i, s := range c.Scanners {
		if s.ID == "" {
			return fmt.Errorf("scanner %d: id is required", i+1)
		}
		if seen[s.ID] {
			return fmt.Errorf("scanner %d: duplicate id %q", i+1, s.ID)
		}
		seen[s.ID] = true
		if s.DeviceName == "" {
			return fmt.Errorf("scanner %q: device_name is required", s.ID)
		}
		if s.Sources == (Sources{}) {
			return fmt.Errorf("scanner %q: at least one source is required", s.ID)
		}
	}
	return nil
}
