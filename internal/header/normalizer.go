package header

import (
	"errors"
	"fmt"
	"strings"
)

// Separator splits header fields. Quoted fields are not supported.
const Separator = ","

// Mode selects how malformed question columns are handled.
type Mode string

const (
	// ModePermissive writes a best-effort name and reports a warning.
	ModePermissive Mode = "permissive"
	// ModeStrict rejects the whole header.
	ModeStrict Mode = "strict"
)

// ParseMode converts a configuration value into a Mode. The empty string
// selects ModePermissive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePermissive:
		return ModePermissive, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModePermissive, ModeStrict)
	}
}

// Result is the outcome of normalizing one header line.
type Result struct {
	Header   string   // cleaned header line, without line ending
	Columns  []string // cleaned column names in input order
	Warnings []*MalformedColumnError
}

// Normalizer rewrites header lines. It holds no state besides its mode and
// is safe for concurrent use.
type Normalizer struct {
	mode Mode
}

// New creates a Normalizer. An empty mode selects ModePermissive.
func New(mode Mode) *Normalizer {
	if mode == "" {
		mode = ModePermissive
	}
	return &Normalizer{mode: mode}
}

// Mode returns the configured mode.
func (n *Normalizer) Mode() Mode {
	return n.mode
}

// Normalize rewrites every field of rawHeaderLine independently, left to
// right, and joins the results with commas. The column count and order are
// preserved.
//
// In strict mode any malformed column fails the call; the returned error
// joins one *MalformedColumnError per offending column.
func (n *Normalizer) Normalize(rawHeaderLine string) (*Result, error) {
	fields := strings.Split(rawHeaderLine, Separator)
	result := &Result{
		Columns: make([]string, 0, len(fields)),
	}

	for i, field := range fields {
		col, err := Classify(field)
		name := col.Clean()
		if err != nil {
			var mce *MalformedColumnError
			if !errors.As(err, &mce) {
				return nil, err
			}
			mce.Position = i
			mce.Output = name
			result.Warnings = append(result.Warnings, mce)
		}
		result.Columns = append(result.Columns, name)
	}

	if n.mode == ModeStrict && len(result.Warnings) > 0 {
		errs := make([]error, len(result.Warnings))
		for i, w := range result.Warnings {
			errs[i] = w
		}
		return nil, errors.Join(errs...)
	}

	result.Header = strings.Join(result.Columns, Separator)
	return result, nil
}

// Normalize rewrites rawHeaderLine in permissive mode and returns only the
// cleaned line.
func Normalize(rawHeaderLine string) string {
	result, _ := New(ModePermissive).Normalize(rawHeaderLine)
	return result.Header
}
