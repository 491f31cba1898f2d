package dbfile_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/flate"

	"github.com/vkreplay/vkreplay/internal/constants"
)

// buildHeader returns a valid constants.HeaderSize-byte header.
func buildHeader() []byte {
	h := make([]byte, constants.HeaderSize)
	copy(h, constants.DatabaseMagic)
	h[constants.HeaderSize-1] = constants.ParserVersion
	return h
}

// buildRawRecord encodes one uncompressed record carrying tag, hash, and
// payload, with a correct CRC32 of the stored bytes unless overrideCRC is
// non-nil (used to deliberately corrupt a record).
func buildRawRecord(tag uint32, hash uint64, payload []byte, overrideCRC *uint32) []byte {
	return buildRecord(tag, hash, payload, len(payload), 1, overrideCRC)
}

// buildCompressedRecord deflate-compresses payload and encodes it as a
// formatCompressed record whose decompressed_size is payload's
// uncompressed length.
func buildCompressedRecord(tag uint32, hash uint64, payload []byte) []byte {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	if _, err := fw.Write(payload); err != nil {
		panic(err)
	}
	if err := fw.Close(); err != nil {
		panic(err)
	}
	return buildRecord(tag, hash, compressed.Bytes(), len(payload), 2, nil)
}

// buildRecord encodes one fixed-width record header followed by stored,
// the bytes actually written to the payload region. decompressedLen is
// the length the record declares the decompressed form to be.
func buildRecord(tag uint32, hash uint64, stored []byte, decompressedLen int, flags uint32, overrideCRC *uint32) []byte {
	crc := crc32.ChecksumIEEE(stored)
	if overrideCRC != nil {
		crc = *overrideCRC
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, 8)) // reserved
	buf.WriteString(fmt.Sprintf("%08x%016x%016x", 0, tag, hash))

	var fields [16]byte
	binary.LittleEndian.PutUint32(fields[0:4], uint32(len(stored)))
	binary.LittleEndian.PutUint32(fields[4:8], flags)
	binary.LittleEndian.PutUint32(fields[8:12], crc)
	binary.LittleEndian.PutUint32(fields[12:16], uint32(decompressedLen))
	buf.Write(fields[:])
	buf.Write(stored)
	return buf.Bytes()
}
