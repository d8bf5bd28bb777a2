// Package cli implements the plotline command-line interface.
//
// This package provides commands for analyzing branching stories, tracing
// reader paths, suggesting parents for orphaned cards, navigating a story
// interactively, exporting graph visualizations, and serving the HTTP API.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - analyze: Report structural diagnostics for a story file
//   - path: Trace the ancestry and progress of a card
//   - suggest: Score candidate parents for an orphaned card
//   - navigate: Explore a story interactively with the keyboard
//   - export: Generate DOT or SVG visualizations
//   - serve: Run the HTTP API
//   - cache: Manage the local result cache
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/buildinfo"
	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/story"
)

// appName is the application name used for directories and display.
const appName = "plotline"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger and configuration
// loaded from the standard location.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: LoadConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "plotline",
		Short:        "Plotline keeps branching stories consistent and navigable",
		Long:         `Plotline is a consistency and navigation engine for branching interactive fiction. It finds orphaned cards, dead ends, and incomplete scenes, traces reader paths, and renders the story graph for inspection.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.suggestCommand())
	root.AddCommand(c.navigateCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(noCache), nil, c.Logger)
}

func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory, preferring the configured one and
// falling back to the XDG standard (~/.cache/plotline/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config != nil && c.Config.CacheDir != "" {
		return c.Config.CacheDir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Story Loading
// =============================================================================

// loadStory reads a story file and reports basic stats at debug level.
func (c *CLI) loadStory(path string) (*story.Story, error) {
	s, err := story.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded story", "path", path, "cards", s.CardCount(), "choices", s.ChoiceCount())
	return s, nil
}

// resolveRoot picks the effective root: the explicit flag wins, then the
// story's own first card.
func resolveRoot(flagRoot string, s *story.Story) string {
	if flagRoot != "" {
		return flagRoot
	}
	return s.FirstCardID
}
