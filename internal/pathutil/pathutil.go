package pathutil

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts Windows-style separators to the current platform's separator
// and cleans the resulting path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	replaced := strings.ReplaceAll(p, "\\", "/")
	return filepath.Clean(filepath.FromSlash(replaced))
}

// Absolute normalizes p and makes it absolute. An empty path stays empty.
func Absolute(p string) (string, error) {
	normalized := NormalizePath(p)
	if normalized == "" {
		return "", nil
	}
	return filepath.Abs(normalized)
}

// DirectChild reports whether target sits directly inside dir.
func DirectChild(dir, target string) bool {
	base := NormalizePath(dir)
	if base == "" {
		return false
	}
	rel, err := filepath.Rel(base, NormalizePath(target))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != "." && !strings.HasPrefix(rel, "..") && !strings.Contains(rel, "/")
}
