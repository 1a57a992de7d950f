package csvfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
)

// utf8BOM is the byte-order mark some survey tools prepend to UTF-8 exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures how an export is read.
type Options struct {
	// Encoding names the character set of the header line: "utf-8" (default),
	// "latin1"/"iso-8859-1" or "windows-1252"/"cp1252". The body is never decoded.
	Encoding string
}

// Document is an export split into its header line and everything after it.
type Document struct {
	Path       string
	Header     string // decoded header line without BOM or line ending
	LineEnding string // "\n", "\r\n", or "" when the file has a single unterminated line
	BOM        bool   // input started with a UTF-8 byte-order mark
	Body       []byte // every byte after the header line, verbatim

	enc encoding.Encoding
}

// Read loads the export at path.
// It returns a *FileError of type FileNotFound when path does not exist and
// EmptyFile when the file has no header line.
func Read(path string, opts Options) (*Document, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, &FileError{Type: UnsupportedEncoding, Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &FileError{Type: FileNotFound, Path: path, Err: err}
		}
		return nil, &FileError{Type: ReadFailed, Path: path, Err: err}
	}

	doc, err := parse(data, enc)
	if err != nil {
		var fe *FileError
		if errors.As(err, &fe) {
			fe.Path = path
			return nil, fe
		}
		return nil, &FileError{Type: ReadFailed, Path: path, Err: err}
	}
	doc.Path = path
	return doc, nil
}

// Parse splits in-memory export data the same way Read does.
func Parse(data []byte, opts Options) (*Document, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, &FileError{Type: UnsupportedEncoding, Err: err}
	}
	return parse(data, enc)
}

func parse(data []byte, enc encoding.Encoding) (*Document, error) {
	doc := &Document{enc: enc}

	if enc == nil && bytes.HasPrefix(data, utf8BOM) {
		doc.BOM = true
		data = data[len(utf8BOM):]
	}

	rawHeader := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		rawHeader = data[:i]
		doc.LineEnding = "\n"
		doc.Body = data[i+1:]
		if bytes.HasSuffix(rawHeader, []byte("\r")) {
			rawHeader = rawHeader[:len(rawHeader)-1]
			doc.LineEnding = "\r\n"
		}
	}

	if len(bytes.TrimSpace(rawHeader)) == 0 {
		return nil, &FileError{Type: EmptyFile}
	}

	header, err := decodeHeader(enc, rawHeader)
	if err != nil {
		if errors.Is(err, errInvalidUTF8) {
			return nil, &FileError{Type: InvalidEncoding, Err: err}
		}
		return nil, &FileError{Type: ReadFailed, Err: err}
	}
	doc.Header = header
	return doc, nil
}

// Bytes assembles the output file: the original BOM, header, the original
// line ending (a bare "\n" when the input had none) and the untouched body.
func (d *Document) Bytes(header string) ([]byte, error) {
	encoded, err := encodeHeader(d.enc, header)
	if err != nil {
		return nil, err
	}

	ending := d.LineEnding
	if ending == "" {
		ending = "\n"
	}

	var buf bytes.Buffer
	buf.Grow(len(utf8BOM) + len(encoded) + len(ending) + len(d.Body))
	if d.BOM {
		buf.Write(utf8BOM)
	}
	buf.Write(encoded)
	buf.WriteString(ending)
	buf.Write(d.Body)
	return buf.Bytes(), nil
}

// Write stores d with header replaced at path. The file is written to a
// temporary sibling and renamed into place, so path either holds the full
// output or is left untouched.
func Write(path string, header string, d *Document) error {
	data, err := d.Bytes(header)
	if err != nil {
		return &FileError{Type: WriteFailed, Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &FileError{Type: WriteFailed, Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &FileError{Type: WriteFailed, Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		os.Remove(tmpPath)
		return &FileError{Type: WriteFailed, Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &FileError{Type: WriteFailed, Path: path, Err: err}
	}
	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
