// Package cli implements the diagramflow command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/buildinfo"
	"github.com/matzehuels/diagramflow/pkg/cache"
	"github.com/matzehuels/diagramflow/pkg/config"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/layout/dot"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/preset"
	"github.com/matzehuels/diagramflow/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "diagramflow"
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

	configPath string
	cfg        *config.Config
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
		Use:   appName,
		Short: "diagramflow lays out streamed diagrams incrementally",
		Long: `diagramflow assembles diagrams from a streamed JSON payload, laying out
each batch as it arrives and merging it into an existing canvas without
disturbing what is already there.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./"+config.FileName+")")

	root.AddCommand(c.assembleCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.presetCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	path := config.Find(c.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	c.cfg = &cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Runs from the CLI live
// for one process, so sessions are always kept in memory.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Backend = config.BackendNone
	}
	cfg.Session.Backend = config.BackendMemory
	return buildRunner(ctx, cfg, c.Logger)
}

// buildRunner wires the backends named in cfg into a runner.
func buildRunner(ctx context.Context, cfg config.Config, logger *log.Logger) (*pipeline.Runner, error) {
	var rdb redis.UniversalClient
	if cfg.Cache.Backend == config.BackendRedis || cfg.Session.Backend == config.BackendRedis {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	c, err := newCache(cfg, rdb)
	if err != nil {
		return nil, err
	}
	sessions, err := newSessionStore(cfg, rdb)
	if err != nil {
		return nil, err
	}
	presets, err := newPresetStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	x := layout.NewExecutor(cfg.Layout)
	dot.Register(x)
	r := pipeline.NewRunner(sessions, c, merge.NewController(cfg.MergeOptions(), x), logger)
	r.Presets = presets
	// Layouts depend on the engine, so cached passes never cross versions.
	r.Keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.CacheScope())
	r.Options = cfg.Stream
	return r, nil
}

func newCache(cfg config.Config, rdb redis.UniversalClient) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(rdb, cfg.Redis.Prefix+"cache:"), nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

func newSessionStore(cfg config.Config, rdb redis.UniversalClient) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		return session.NewRedisStore(rdb, cfg.Redis.Prefix+"run:"), nil
	case config.BackendFile:
		dir := cfg.Session.Dir
		if dir == "" {
			d, err := dataDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(d, "runs")
		}
		return session.NewFileStore(dir)
	}
	return session.NewMemoryStore(), nil
}

func newPresetStore(ctx context.Context, cfg config.Config) (preset.Store, error) {
	if cfg.Presets.Backend == config.BackendMongo {
		cctx := ctx
		if cfg.Mongo.Timeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, cfg.Mongo.Timeout)
			defer cancel()
		}
		return preset.ConnectMongo(cctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	}
	dir := cfg.Presets.Dir
	if dir == "" {
		d, err := dataDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(d, "presets")
	}
	return preset.NewFileStore(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/diagramflow/).
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

// dataDir returns where presets and file-backed runs are kept
// (~/.local/share/diagramflow/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
