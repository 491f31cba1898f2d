// Package dbfile reads the fossilize-format database file: a fixed
// header followed by a stream of variable-length records, each
// identifying one (tag, hash) entry and carrying its compressed
// payload. It never interprets the payload bytes themselves — that is
// internal/parser's job — only the container format.
package dbfile

import (
	"bytes"
	"fmt"

	"github.com/vkreplay/vkreplay/internal/constants"
)

// ErrBadMagic is returned when a file does not begin with the expected
// database magic.
var ErrBadMagic = fmt.Errorf("dbfile: bad magic")

// ErrUnsupportedVersion is returned when the header's version byte is
// one this engine does not know how to parse.
type ErrUnsupportedVersion struct {
	Version byte
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("dbfile: unsupported database version %d", e.Version)
}

// ParseHeader validates the first constants.HeaderSize bytes of a
// database file and returns the version byte found. The only version
// this reader accepts is constants.ParserVersion — the same constant
// internal/parser's wire decoders are written against, so a mismatch
// here and a mismatch there can never silently diverge.
func ParseHeader(b []byte) (version byte, err error) {
	if len(b) < constants.HeaderSize {
		return 0, fmt.Errorf("dbfile: header truncated: got %d bytes, want %d", len(b), constants.HeaderSize)
	}
	if !bytes.Equal(b[:len(constants.DatabaseMagic)], []byte(constants.DatabaseMagic)) {
		return 0, ErrBadMagic
	}
	version = b[constants.HeaderSize-1]
	if version != constants.ParserVersion {
		return 0, &ErrUnsupportedVersion{Version: version}
	}
	return version, nil
}
