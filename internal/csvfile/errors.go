// Package csvfile reads a survey export as a header line plus an opaque body
// and writes it back with a replacement header.
package csvfile

import "fmt"

// FileErrorType represents the type of file error.
type FileErrorType string

const (
	// FileNotFound indicates the input path does not exist.
	FileNotFound FileErrorType = "FILE_NOT_FOUND"
	// EmptyFile indicates the input has no header line.
	EmptyFile FileErrorType = "EMPTY_FILE"
	// UnsupportedEncoding indicates an encoding name this package cannot decode.
	UnsupportedEncoding FileErrorType = "UNSUPPORTED_ENCODING"
	// InvalidEncoding indicates header bytes that are not valid in the
	// configured encoding.
	InvalidEncoding FileErrorType = "INVALID_ENCODING"
	// ReadFailed indicates the input could not be read or decoded.
	ReadFailed FileErrorType = "READ_FAILED"
	// WriteFailed indicates the output could not be written.
	WriteFailed FileErrorType = "WRITE_FAILED"
)

// FileError represents an error reading or writing an export file.
type FileError struct {
	Type FileErrorType
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
