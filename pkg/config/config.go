// Package config loads diagramflow settings from a TOML file.
//
// Every tunable of the engine lives here: the selector thresholds and
// engine spacings ([layout]), container chrome ([compose]), the overlap
// resolver budget ([collide]), stream throttling ([stream]) and the
// storage backends the CLI and server wire up. Missing keys keep their
// defaults, so an empty file is a valid configuration.
//
//	[layout]
//	spacing_x = 120
//
//	[stream]
//	throttle_records = 6
//	session_ttl = "1h"
//
//	[cache]
//	backend = "redis"
//
//	[redis]
//	url = "redis://localhost:6379/0"
//
// A few settings can be overridden from the environment; see [Config.ApplyEnv].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/diagramflow/pkg/collide"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// FileName is the config file looked up by [Find].
const FileName = "diagramflow.toml"

// Backend names.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the whole configuration.
type Config struct {
	Layout  layout.Tuning    `toml:"layout"`
	Compose scene.Chrome     `toml:"compose"`
	Collide collide.Options  `toml:"collide"`
	Merge   MergeConfig      `toml:"merge"`
	Stream  pipeline.Options `toml:"stream"`
	Server  ServerConfig     `toml:"server"`
	Cache   CacheConfig      `toml:"cache"`
	Session SessionConfig    `toml:"session"`
	Presets PresetConfig     `toml:"presets"`
	Redis   RedisConfig      `toml:"redis"`
	Mongo   MongoConfig      `toml:"mongo"`

	// Source is the file the config was read from, if any.
	Source string `toml:"-"`
}

// MergeConfig holds the controller settings not covered by the other
// engine sections.
type MergeConfig struct {
	RunGap float64 `toml:"run_gap" validate:"gte=0"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `toml:"addr" validate:"required"`
	ReadTimeout     time.Duration `toml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `toml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" validate:"gte=0"`
	// MaxChunkBytes bounds a single chunk request body.
	MaxChunkBytes int64 `toml:"max_chunk_bytes" validate:"gte=1"`
	// CleanupInterval is how often expired runs are swept.
	CleanupInterval time.Duration `toml:"cleanup_interval" validate:"gte=0"`
}

// CacheConfig selects the layout cache backend.
type CacheConfig struct {
	Backend string `toml:"backend" validate:"oneof=none file redis"`
	Dir     string `toml:"dir"`
}

// SessionConfig selects where in-flight runs are kept.
type SessionConfig struct {
	Backend string `toml:"backend" validate:"oneof=memory file redis"`
	Dir     string `toml:"dir"`
}

// PresetConfig selects the preset store.
type PresetConfig struct {
	Backend string `toml:"backend" validate:"oneof=file mongo"`
	Dir     string `toml:"dir"`
}

// RedisConfig is shared by the redis cache and session store.
type RedisConfig struct {
	URL    string `toml:"url"`
	Prefix string `toml:"prefix"`
}

// MongoConfig configures the mongo preset store.
type MongoConfig struct {
	URI        string        `toml:"uri"`
	Database   string        `toml:"database"`
	Collection string        `toml:"collection"`
	Timeout    time.Duration `toml:"timeout" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	m := merge.DefaultOptions()
	return Config{
		Layout:  m.Tuning,
		Compose: m.Chrome,
		Collide: m.Collide,
		Merge:   MergeConfig{RunGap: m.RunGap},
		Stream:  pipeline.DefaultOptions(),
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxChunkBytes:   1 << 20,
			CleanupInterval: 5 * time.Minute,
		},
		Cache:   CacheConfig{Backend: BackendFile},
		Session: SessionConfig{Backend: BackendFile},
		Presets: PresetConfig{Backend: BackendFile},
		Redis:   RedisConfig{URL: "redis://localhost:6379/0", Prefix: "diagramflow:"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "diagramflow",
			Collection: "presets",
			Timeout:    10 * time.Second,
		},
	}
}

// MergeOptions assembles the controller settings.
func (c Config) MergeOptions() merge.Options {
	return merge.Options{
		Tuning:  c.Layout,
		Chrome:  c.Compose,
		Collide: c.Collide,
		RunGap:  c.Merge.RunGap,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
		}
		cfg.Source = path
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Find returns the config file to use: explicit if set, otherwise
// diagramflow.toml in the working directory or the user config
// directory. It returns "" when none exists.
func Find(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "diagramflow", FileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Environment overrides.
const (
	EnvAddr     = "DIAGRAMFLOW_ADDR"
	EnvRedisURL = "DIAGRAMFLOW_REDIS_URL"
	EnvMongoURI = "DIAGRAMFLOW_MONGO_URI"
	EnvCache    = "DIAGRAMFLOW_CACHE"
)

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}
	if v := getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
	if v := getenv(EnvCache); v != "" {
		c.Cache.Backend = v
	}
}

// String renders the config as TOML.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
