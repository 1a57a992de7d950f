package organizer

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// duplicatePattern matches filenames with _duplicate or _duplicate_N suffix before extension
var duplicatePattern = regexp.MustCompile(`^(.+)_duplicate(?:_(\d+))?(\.[^.]+)?$`)

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GenerateDuplicateName returns a name in destDir that no existing file uses.
// A taken name gets "_duplicate" before the extension, then "_duplicate_2",
// "_duplicate_3" and so on.
//
// Examples:
//   - "export_clean.csv" -> "export_clean_duplicate.csv"
//   - "export_clean_duplicate.csv" -> "export_clean_duplicate_2.csv"
func GenerateDuplicateName(destDir, filename string) string {
	return freeName(filename, func(name string) bool {
		return FileExists(filepath.Join(destDir, name))
	})
}

// freeName returns filename or the first duplicate-marked variant of it that
// taken rejects.
func freeName(filename string, taken func(name string) bool) string {
	if !taken(filename) {
		return filename
	}

	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filename, ext)
	nextNum := 0

	if matches := duplicatePattern.FindStringSubmatch(filename); matches != nil {
		baseName, ext = matches[1], matches[3]
		nextNum = 2
		if matches[2] != "" {
			num, _ := strconv.Atoi(matches[2])
			nextNum = num + 1
		}
	}

	if nextNum == 0 {
		candidate := baseName + "_duplicate" + ext
		if !taken(candidate) {
			return candidate
		}
		nextNum = 2
	}

	for n := nextNum; ; n++ {
		candidate := baseName + "_duplicate_" + strconv.Itoa(n) + ext
		if !taken(candidate) {
			return candidate
		}
	}
}

// stripDuplicateSuffix removes a _duplicate or _duplicate_N marker.
func stripDuplicateSuffix(filename string) string {
	if matches := duplicatePattern.FindStringSubmatch(filename); matches != nil {
		return matches[1] + matches[3]
	}
	return filename
}
