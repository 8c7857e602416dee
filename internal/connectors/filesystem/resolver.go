package filesystem

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalPath converts a filesystem locator to a local path.
// Handles file:// URIs, "~/" prefixes and bare paths.
func LocalPath(locator string) string {
	if strings.HasPrefix(locator, "file://") {
		p := strings.TrimPrefix(locator, "file://")
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
		return p
	}
	if strings.HasPrefix(locator, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, locator[2:])
		}
	}
	// Bare paths pass through unchanged
	return locator
}

// Locator returns the canonical file:// locator for a local path, so that
// watched files and files ingested by absolute path share a document id.
func Locator(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}
