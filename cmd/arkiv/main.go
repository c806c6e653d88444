package main

import (
	_ "embed"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/janvolk/arkiv/internal/build"
	"github.com/janvolk/arkiv/internal/config"
	"github.com/janvolk/arkiv/internal/document"
	"github.com/janvolk/arkiv/internal/prompt"
	"github.com/janvolk/arkiv/internal/scanner"
	"github.com/janvolk/arkiv/internal/session"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// Exit codes, kept distinguishable so scripts driving arkiv can tell the
// outcome classes apart.
const (
	exitOK       = 0
	exitError    = 1
	exitConfig   = 2
	exitAborted  = 3
	exitDevice   = 4
	exitEmptyDoc = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return exitOK
		}
	}

	fs := ff.NewFlagSet("arkiv")
	var (
		configPath  = fs.StringLong("config", "", "Config file path (default: <user config dir>/arkiv/config.toml)")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		dbPath      = fs.StringLong("db", "arkiv.db", "Catalog database file path")
		outdir      = fs.StringLong("outdir", "", "Archive directory (overrides config)")
		fakeScan    = fs.BoolLong("fake-scan", "Dev mode: replay fixture images instead of scanning")
		fixtureDir  = fs.StringLong("fixtures", "testdata", "Fixture directory for --fake-scan")
		listDocs    = fs.BoolLong("list", "List archived documents and exit")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ARKIV"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitConfig
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		return exitOK
	}

	initLogging(*logLevel)

	// Load config
	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			slog.Error("Failed to determine config path", "error", err)
			return exitConfig
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return exitConfig
	}

	archiveDir := cfg.Outdir
	if *outdir != "" {
		archiveDir = *outdir
	}

	// Initialize catalog and storage
	db, err := document.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to open document catalog", "error", err)
		return exitError
	}
	defer db.Close()

	store, err := document.NewLocalStorage(archiveDir)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return exitError
	}

	docService := document.NewService(db, store)

	if *listDocs {
		return listDocuments(docService)
	}

	prompter := prompt.NewTerminal()

	// Select backend
	backend, code := selectBackend(cfg, prompter, *fakeScan, *fixtureDir)
	if backend == nil {
		return code
	}
	defer backend.Close()

	// Cancel a blocking acquire on interrupt. Operator prompts remain the
	// regular abort path.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scanDocument(ctx, backend, prompter, docService, store)
}

func initLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func listDocuments(docService *document.Service) int {
	records, err := docService.List()
	if err != nil {
		slog.Error("Failed to list documents", "error", err)
		return exitError
	}
	if len(records) == 0 {
		fmt.Println("No archived documents.")
		return exitOK
	}
	for _, record := range records {
		fmt.Printf("%s  %s  %d page(s)  %s\n",
			record.CreatedAt.Format("2006-01-02 15:04:05"), record.ID, record.PageCount, record.Dir)
	}
	return exitOK
}

// selectBackend picks the fake backend when requested (and permitted) or
// one of the configured scanners. Returns a nil backend and an exit code
// on failure.
func selectBackend(cfg *config.Config, prompter session.Prompter, fakeScan bool, fixtureDir string) (scanner.Backend, int) {
	if fakeScan {
		if !build.Debug {
			slog.Error("--fake-scan is only available in debug builds")
			return nil, exitConfig
		}
		backend, err := scanner.NewFake(fixtureDir)
		if err != nil {
			slog.Error("Failed to initialize fake backend", "error", err)
			return nil, exitConfig
		}
		slog.Info("Using fake scan backend", "fixtures", fixtureDir)
		return backend, exitOK
	}

	if len(cfg.Scanners) == 0 {
		slog.Error("No scanners configured")
		return nil, exitConfig
	}

	selected := cfg.Scanners[0]
	if len(cfg.Scanners) > 1 {
		labels := make([]string, len(cfg.Scanners))
		for i, s := range cfg.Scanners {
			labels[i] = s.String()
		}
		choice, err := prompter.AskChoice("Which device do you want to use?", labels)
		if err != nil {
			slog.Error("Failed to select scanner", "error", err)
			return nil, exitError
		}
		selected = cfg.Scanners[choice]
	}

	slog.Debug("Selected scanner", "id", selected.ID, "device", selected.DeviceName)
	return scanner.NewSANE(selected.Device()), exitOK
}

// scanDocument runs one scan session to completion and archives the result.
func scanDocument(ctx context.Context, backend scanner.Backend, prompter session.Prompter, docService *document.Service, store document.Storage) int {
	manager := session.NewManager()
	sess, err := manager.Begin(backend, prompter)
	if err != nil {
		slog.Error("Failed to start session", "error", err)
		return exitError
	}
	defer sess.Release()

	mode, resolution, code := selectModeAndOptions(backend, prompter)
	if code != exitOK {
		return code
	}

	if err := sess.SelectMode(mode, resolution); err != nil {
		slog.Error("Failed to select mode", "error", err)
		return exitConfig
	}

	doc, err := sess.Run(ctx)
	switch {
	case err == nil:
		record, archiveErr := docService.Archive(doc)
		if archiveErr != nil {
			slog.Error("Failed to archive document", "error", archiveErr)
			return exitError
		}
		fmt.Printf("Archived document %s with %d page(s) in %s\n", record.ID, record.PageCount, record.Dir)
		return exitOK

	case errors.Is(err, session.ErrEmptyDocument):
		fmt.Println("No pages were captured; nothing archived.")
		return exitEmptyDoc

	default:
		return reportAbort(err, store)
	}
}

func selectModeAndOptions(backend scanner.Backend, prompter session.Prompter) (scanner.Mode, scanner.Resolution, int) {
	modes := backend.Capabilities().Modes()
	if len(modes) == 0 {
		slog.Error("Backend supports no scan modes", "backend", backend.ID())
		return 0, 0, exitConfig
	}

	mode := modes[0]
	if len(modes) > 1 {
		labels := make([]string, len(modes))
		for i, m := range modes {
			labels[i] = m.String()
		}
		choice, err := prompter.AskChoice("How to scan?", labels)
		if err != nil {
			slog.Error("Failed to select mode", "error", err)
			return 0, 0, exitError
		}
		mode = modes[choice]
	}

	resolution := scanner.ResolutionNormal
	high, err := prompter.AskYesNo("High resolution (600 dpi instead of 300 dpi)?")
	if err != nil {
		slog.Error("Failed to select resolution", "error", err)
		return 0, 0, exitError
	}
	if high {
		resolution = scanner.ResolutionHigh
	}

	return mode, resolution, exitOK
}

// reportAbort maps a failed session onto an exit code and writes salvaged
// pages to a partial-document directory for inspection.
func reportAbort(err error, store document.Storage) int {
	var abortErr *session.AbortError
	if errors.As(err, &abortErr) && len(abortErr.Salvaged) > 0 {
		name := time.Now().Format("20060102-150405") + "-partial"
		dir, saveErr := store.SaveDocument(name, abortErr.Salvaged)
		if saveErr != nil {
			slog.Error("Failed to save salvaged pages", "error", saveErr)
		} else {
			fmt.Printf("Session aborted; %d salvaged page(s) kept in %s for inspection.\n", len(abortErr.Salvaged), dir)
		}
	}

	if errors.Is(err, session.ErrAborted) {
		slog.Info("Session aborted by operator")
		return exitAborted
	}
	slog.Error("Session failed", "error", err)
	return exitDevice
}
