// Package organizer decides where cleaned survey exports are written.
package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix is appended to the input stem to name the cleaned file.
const DefaultSuffix = "_clean"

// PlacementErrorType represents the type of placement error.
type PlacementErrorType string

const (
	// PermissionDenied indicates the output directory could not be created.
	PermissionDenied PlacementErrorType = "PERMISSION_DENIED"
	// DestinationIsSource indicates the output would replace its own input.
	DestinationIsSource PlacementErrorType = "DESTINATION_IS_SOURCE"
)

// PlacementError represents an error that occurred while choosing a destination.
type PlacementError struct {
	Type PlacementErrorType
	Path string
	Err  error
}

func (e *PlacementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// Placement is the chosen destination for one input.
type Placement struct {
	SourcePath      string
	DestinationPath string
	IsDuplicate     bool   // True if the name was changed to avoid an existing file
	OriginalName    string // Name before duplicate renaming (empty if not a duplicate)
}

// OutputName derives the cleaned file name, e.g. "export.csv" -> "export_clean.csv".
func OutputName(inputName, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	ext := filepath.Ext(inputName)
	return strings.TrimSuffix(inputName, ext) + suffix + ext
}

// IsOutputName reports whether name was produced by OutputName with suffix,
// including names that were later given a duplicate marker.
func IsOutputName(name, suffix string) bool {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	name = stripDuplicateSuffix(filepath.Base(name))
	return strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), suffix)
}

// SameFile reports whether a and b name the same file: equal absolute paths,
// or, when both exist, the same file on disk (hard links, symlinks, case
// folding file systems).
func SameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}

	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// CheckDistinct returns a *PlacementError of type DestinationIsSource when
// dst would replace src.
func CheckDistinct(src, dst string) error {
	if SameFile(src, dst) {
		return &PlacementError{Type: DestinationIsSource, Path: dst}
	}
	return nil
}
