package errors

import (
	"strings"
	"testing"
)

func TestValidateRunToken(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "g0123456789ab", false},
		{"empty", "", true},
		{"no prefix", "0123456789abc", true},
		{"uppercase", "g0123456789AB", true},
		{"too short", "g0123", true},
		{"too long", "g0123456789abcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRunToken(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRunToken(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePresetID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "onboarding-flow", false},
		{"valid underscore", "team_chart.v2", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"slash", "a/b", true},
		{"traversal", "..", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"control", "a\nb", true},
		{"hidden", ".secret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePresetID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePresetID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("code = %v, want INVALID_INPUT", GetCode(err))
			}
		})
	}
}
