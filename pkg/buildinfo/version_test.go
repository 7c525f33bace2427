package buildinfo

import (
	"strings"
	"testing"
)

func TestCacheScope(t *testing.T) {
	tests := []struct {
		version, commit string
		want            string
	}{
		{"v1.2.0", "abc", "v1.2.0:"},
		{"dev", "none", "dev:"},
		{"dev", "0123456789abcdef", "dev-0123456789ab:"},
	}
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := CacheScope(); got != tt.want {
			t.Errorf("CacheScope() with %s/%s = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}

func TestTemplate(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	Version = "v9.9.9"
	if got := Template(); !strings.Contains(got, "version v9.9.9") {
		t.Errorf("Template() = %q", got)
	}
	if got := Get(); got.Version != "v9.9.9" {
		t.Errorf("Get().Version = %q, want v9.9.9", got.Version)
	}
}
