package csvfile

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// lookupEncoding resolves an encoding name. A nil encoding means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8", "utf-8-sig":
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// SupportedEncoding reports whether name can be used in Options.Encoding.
func SupportedEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}

// errInvalidUTF8 rejects headers that would otherwise come out with U+FFFD
// in place of every undecodable byte.
var errInvalidUTF8 = errors.New(`header is not valid UTF-8; set the encoding (e.g. "latin1" or "windows-1252")`)

func decodeHeader(enc encoding.Encoding, raw []byte) (string, error) {
	if enc == nil {
		if !utf8.Valid(raw) {
			return "", errInvalidUTF8
		}
		return string(raw), nil
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func encodeHeader(enc encoding.Encoding, header string) ([]byte, error) {
	if enc == nil {
		return []byte(header), nil
	}
	encoded, _, err := transform.String(enc.NewEncoder(), header)
	if err != nil {
		return nil, err
	}
	return []byte(encoded), nil
}
