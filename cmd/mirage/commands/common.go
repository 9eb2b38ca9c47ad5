// Package commands implements the mirage CLI subcommands.
package commands

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mirage/internal/config"
	"git.home.luguber.info/inful/mirage/internal/eventstore"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// EnvLogLevel overrides the log level (debug, info, warn, error).
const EnvLogLevel = "MIRAGE_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile CompileCmd `cmd:"" help:"Compile the site into ./site"`
	Watch   WatchCmd   `cmd:"" help:"Compile, serve the site locally and rebuild on change"`
	Deploy  DeployCmd  `cmd:"" help:"Compile and upload the site to the configured service"`
	Setup   SetupCmd   `cmd:"" help:"Write config.yml interactively"`
	History HistoryCmd `cmd:"" help:"Show recent builds from the build journal"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel honours --verbose first, then MIRAGE_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads path, falling back to defaults when it does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("No configuration file found; using defaults (run `mirage setup` to create one)", logfields.Path(path))
		return config.Default(), nil
	}
	return config.Load(path)
}

// openJournal opens the build journal configured in cfg, or returns nil.
func openJournal(cfg *config.Config) *eventstore.SQLiteStore {
	if cfg.History.Path == "" {
		return nil
	}
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		slog.Warn("Build journal unavailable", logfields.Path(cfg.History.Path), logfields.Error(err))
		return nil
	}
	return store
}

func closeJournal(store *eventstore.SQLiteStore) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close build journal", logfields.Error(err))
	}
}
