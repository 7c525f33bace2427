package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// runTokenRegex matches tokens minted by ident.NewToken: "g" plus 12 hex digits.
var runTokenRegex = regexp.MustCompile(`^g[0-9a-f]{12}$`)

// ValidateRunToken validates a generation run token received from a client.
func ValidateRunToken(token string) error {
	if token == "" {
		return New(ErrCodeInvalidInput, "run token cannot be empty")
	}
	if !runTokenRegex.MatchString(token) {
		return New(ErrCodeInvalidInput, "invalid run token: %q", token)
	}
	return nil
}

// ValidatePresetID validates a preset identifier for safety.
// Preset ids become file names in the file store and keys in mongo, so the
// rules are conservative:
//   - No empty ids
//   - Maximum length of 128 characters
//   - No control characters
//   - No path separators or traversal sequences
func ValidatePresetID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "preset id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "preset id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "preset id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "preset id contains invalid characters: %q", pattern)
		}
	}

	if strings.HasPrefix(id, ".") {
		return New(ErrCodeInvalidInput, "preset id cannot start with a dot")
	}

	return nil
}
