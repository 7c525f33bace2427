package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/merge"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.Layout.SpacingX != Default().Layout.SpacingX {
		t.Errorf("SpacingX = %v, want the default", cfg.Layout.SpacingX)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[layout]
spacing_x = 140

[collide]
max_iterations = 12

[stream]
throttle_records = 6
session_ttl = "1h"

[merge]
run_gap = 300
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Layout.SpacingX != 140 {
		t.Errorf("SpacingX = %v, want 140", cfg.Layout.SpacingX)
	}
	if cfg.Layout.SpacingY != Default().Layout.SpacingY {
		t.Errorf("SpacingY = %v, want default kept", cfg.Layout.SpacingY)
	}
	if cfg.Collide.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d, want 12", cfg.Collide.MaxIterations)
	}
	if cfg.Stream.ThrottleRecords != 6 || cfg.Stream.SessionTTL != time.Hour {
		t.Errorf("Stream = %+v", cfg.Stream)
	}
	if got := cfg.MergeOptions().RunGap; got != 300 {
		t.Errorf("RunGap = %v, want 300", got)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
}

func TestLoadZeroGroupSpacing(t *testing.T) {
	path := writeConfig(t, `
[layout]
group_spacing_x = 0
group_spacing_y = 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tuning := merge.NewController(cfg.MergeOptions(), nil).Options().Tuning
	if tuning.GroupSpacingX != 0 || tuning.GroupSpacingY != 0 {
		t.Errorf("group spacing = %v/%v, want 0/0", tuning.GroupSpacingX, tuning.GroupSpacingY)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[layout\n", "read config"},
		{"unknown key", "[layout]\nspacing_z = 1\n", "unknown key"},
		{"range", "[layout]\nspacing_x = -5\n", "layout.spacingx must be greater than 0"},
		{"oneof", "[cache]\nbackend = \"s3\"\n", "cache.backend must be one of"},
		{"mongo settings", "[presets]\nbackend = \"mongo\"\n[mongo]\nuri = \"\"\n", "mongo.uri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("code = %s, want INVALID_INPUT", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAddr:     ":9999",
		EnvRedisURL: "redis://cache:6379/1",
		EnvCache:    BackendRedis,
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Server.Addr != ":9999" || cfg.Redis.URL != "redis://cache:6379/1" || cfg.Cache.Backend != BackendRedis {
		t.Errorf("ApplyEnv() = %+v %+v %+v", cfg.Server, cfg.Redis, cfg.Cache)
	}
	if cfg.Mongo.URI != Default().Mongo.URI {
		t.Errorf("unset variable changed Mongo.URI to %q", cfg.Mongo.URI)
	}
}

func TestRedisBackendNeedsURL(t *testing.T) {
	cfg := Default()
	cfg.Session.Backend = BackendRedis
	cfg.Redis.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a redis backend without a url")
	}
}

func TestStringRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Layout.SpacingX = 222
	loaded, err := Load(writeConfig(t, cfg.String()))
	if err != nil {
		t.Fatalf("Load(String()) error = %v", err)
	}
	if loaded.Layout.SpacingX != 222 {
		t.Errorf("SpacingX = %v, want 222", loaded.Layout.SpacingX)
	}
}

func TestFind(t *testing.T) {
	if got := Find("/explicit.toml"); got != "/explicit.toml" {
		t.Errorf("Find(explicit) = %q", got)
	}
}

func TestLoadExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", FileName))
	if err != nil {
		t.Fatalf("Load(example) error = %v", err)
	}
	if cfg.Session.Backend != BackendMemory {
		t.Errorf("Session.Backend = %q, want %q", cfg.Session.Backend, BackendMemory)
	}
	if cfg.Stream.SessionTTL != 30*time.Minute {
		t.Errorf("Stream.SessionTTL = %v, want 30m", cfg.Stream.SessionTTL)
	}
}
