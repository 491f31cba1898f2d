package dbfile

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrChecksumMismatch is returned by GetPayload when a record's stored
// (pre-decompression) payload bytes don't match its recorded CRC32.
var ErrChecksumMismatch = fmt.Errorf("dbfile: payload checksum mismatch")

// ErrDecompressedSizeMismatch is returned by GetPayload when a
// decompressed payload's length doesn't match the record's recorded
// decompressed_size.
var ErrDecompressedSizeMismatch = fmt.Errorf("dbfile: decompressed payload size mismatch")

// GetPayload returns rec's fully decoded payload: checksum-verified
// against the record's recorded CRC32 (IEEE polynomial, the same table
// zlib uses) over the *stored* bytes — before any decompression, since a
// corrupted compressed stream should be caught as a checksum failure
// rather than surfacing as a deflate error — and then decompressed (if
// stored compressed) and length-checked against decompressed_size. A
// zero recorded CRC32 means the writer never computed one and disables
// the checksum test entirely; any other mismatch, or a decompressed
// length that disagrees with decompressed_size, always fails — there is
// no partial-trust mode for a corrupted payload.
func GetPayload(rec Record) ([]byte, error) {
	if rec.crc32 != 0 && crc32.ChecksumIEEE(rec.Payload) != rec.crc32 {
		return nil, ErrChecksumMismatch
	}

	var decoded []byte
	switch rec.format {
	case formatRaw:
		decoded = rec.Payload
	case formatCompressed:
		fr := flate.NewReader(bytes.NewReader(rec.Payload))
		defer fr.Close()
		var err error
		decoded, err = io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("dbfile: deflate decompress: %w", err)
		}
	default:
		return nil, fmt.Errorf("dbfile: unrecognized payload format %d", rec.format)
	}

	if uint32(len(decoded)) != rec.DecompressedSize {
		return nil, ErrDecompressedSizeMismatch
	}
	return decoded, nil
}
