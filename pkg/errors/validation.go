package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// tierNameRegex matches the shape of a tier name before it is checked
// against the known tiers. Lowercase ASCII only.
var tierNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// ValidateTierName validates the shape of a tier name taken from user input
// or a URL. Whether the tier exists is decided by the region package.
func ValidateTierName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTier, "tier name cannot be empty")
	}
	if !tierNameRegex.MatchString(name) {
		return New(ErrCodeInvalidTier, "invalid tier name: %q", name)
	}
	return nil
}

// ValidateRegionID validates a region id for safety. Region ids end up in
// log lines, cache keys and asset listings, so control characters and path
// syntax are rejected.
func ValidateRegionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidRegion, "region id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidRegion, "region id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRegion, "region id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidRegion, "region id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a relative asset path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a data source URL. Only http and https are allowed.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
