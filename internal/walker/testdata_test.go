package walker_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/vkreplay/vkreplay/internal/constants"
)

// dbBuilder assembles a minimal in-memory fossilize-format database, one
// raw (uncompressed) record at a time, for feeding to dbfile.Load.
type dbBuilder struct {
	buf bytes.Buffer
}

func newDBBuilder() *dbBuilder {
	b := &dbBuilder{}
	header := make([]byte, constants.HeaderSize)
	copy(header, constants.DatabaseMagic)
	header[constants.HeaderSize-1] = constants.ParserVersion
	b.buf.Write(header)
	return b
}

// add appends one uncompressed record of tag/hash carrying payload, with
// a correct CRC32 of payload (the stored bytes, since this record is never
// compressed).
func (b *dbBuilder) add(tag uint32, hash uint64, payload []byte) *dbBuilder {
	crc := crc32.ChecksumIEEE(payload)

	b.buf.Write(make([]byte, 8)) // reserved
	b.buf.WriteString(fmt.Sprintf("%08x%016x%016x", 0, tag, hash))

	var fields [16]byte
	binary.LittleEndian.PutUint32(fields[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fields[4:8], 1) // raw
	binary.LittleEndian.PutUint32(fields[8:12], crc)
	binary.LittleEndian.PutUint32(fields[12:16], uint32(len(payload)))
	b.buf.Write(fields[:])
	b.buf.Write(payload)
	return b
}

func (b *dbBuilder) bytes() []byte {
	return b.buf.Bytes()
}
