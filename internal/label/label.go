package label

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidLabel is returned for labels that cannot be turned into a
// filesystem-safe key.
var ErrInvalidLabel = errors.New("label must be non-empty, contain only letters/numbers/spaces/_/-, and not include path separators or traversal")

var (
	spacesAndUnderscores = regexp.MustCompile(`[ _]+`)
	disallowedChars      = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns           = regexp.MustCompile(`-+`)
)

// Normalize converts a user-facing account label into its canonical key:
// lowercase [a-z0-9-]+ with no leading, trailing, or duplicate hyphens.
// Labels containing path separators or "..", and labels that normalize to
// nothing, are rejected rather than silently stripped.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidLabel, raw)
	}

	if strings.Contains(trimmed, "/") || strings.Contains(trimmed, "\\") || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidLabel, raw)
	}

	key := strings.ToLower(trimmed)
	key = spacesAndUnderscores.ReplaceAllString(key, "-")
	key = disallowedChars.ReplaceAllString(key, "-")
	key = hyphenRuns.ReplaceAllString(key, "-")
	key = strings.Trim(key, "-")

	if key == "" {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidLabel, raw)
	}
	return key, nil
}
