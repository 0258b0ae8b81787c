// Package cli implements the pdnroute command-line interface.
//
// # Commands
//
// The main commands are:
//   - route: route, place vias and solve a board, writing a JSON report
//   - check: load and validate a board description
//   - cache: manage the local report cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which adds a
// line per routed segment and per solved net.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pdnroute/pkg/buildinfo"
	"github.com/matzehuels/pdnroute/pkg/cache"
	"github.com/matzehuels/pdnroute/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pdnroute"

	// redisKeyPrefix scopes report keys in a shared Redis.
	redisKeyPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "pdnroute routes power delivery networks on multi-layer boards",
		Long:          `pdnroute routes the power nets of a board description over a layered grid, places vias under every port, and solves each net's resistive network for voltages and currents.`,
		Version:       buildinfo.Read().Version,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.routeCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the report cache backend.
type cacheFlags struct {
	noCache bool
	redis   string
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, f cacheFlags) (*pipeline.Runner, error) {
	if f.redis != "" {
		rc, err := cache.NewRedisCache(ctx, f.redis)
		if err != nil {
			return nil, err
		}
		return pipeline.NewRunner(rc, cache.NewScopedKeyer(nil, redisKeyPrefix), c.Logger), nil
	}
	cc, err := newCache(f.noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pdnroute/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
