package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns returns the patterns for partial and temporary files.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		".*",           // Hidden files, including in-progress atomic writes
		"~$*",          // Office lock files
	}
}

// FileFilter matches file names against ignore patterns.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a FileFilter. Empty patterns select the defaults.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	return &FileFilter{
		patterns: patterns,
	}
}

// ShouldIgnore reports whether the base name of path matches a pattern.
// Patterns use filepath.Match syntax; a bare extension such as ".tmp"
// matches case-insensitively as a suffix.
func (f *FileFilter) ShouldIgnore(path string) bool {
	filename := filepath.Base(path)

	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, filename); err == nil && matched {
			return true
		}

		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[") {
			if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(pattern)) {
				return true
			}
		}
	}
	return false
}

// GetPatterns returns a copy of the ignore patterns.
func (f *FileFilter) GetPatterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}

// ValidatePattern reports whether pattern is well-formed glob syntax.
func ValidatePattern(pattern string) error {
	_, err := filepath.Match(pattern, "")
	return err
}
