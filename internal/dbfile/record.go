package dbfile

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/vkreplay/vkreplay/internal/vk"
)

// payloadFormat is the encoding a record's payload bytes are stored in.
// Most payloads are deflate-compressed with a recorded checksum; tiny
// payloads (notably application_info) are sometimes stored uncompressed
// ("raw") since compression would cost more than it saves.
type payloadFormat uint32

const (
	formatRaw        payloadFormat = 1
	formatCompressed payloadFormat = 2
)

const (
	reservedFieldLen = 8 // opaque, unvalidated

	padFieldLen  = 8  // hex-encoded, unvalidated padding
	tagFieldLen  = 16 // hex-encoded; only the low byte is meaningful
	hashFieldLen = 16 // hex-encoded uint64
	hexFieldLen  = padFieldLen + tagFieldLen + hashFieldLen

	storedSizeFieldLen       = 4
	flagsFieldLen            = 4
	crcFieldLen              = 4
	decompressedSizeFieldLen = 4

	// recordFixedLen is the size of everything in a record ahead of its
	// variable-length payload.
	recordFixedLen = reservedFieldLen + hexFieldLen + storedSizeFieldLen + flagsFieldLen + crcFieldLen + decompressedSizeFieldLen
)

// Record is one parsed database record: its (tag, hash) identity and its
// payload, which is still in whatever encoding it was stored in —
// decompress and checksum-verify it with GetPayload before handing it to
// internal/parser.
type Record struct {
	Tag     vk.Tag
	Hash    uint64
	Payload []byte // stored bytes, pre-decompression; sliced directly from the loaded file buffer

	// PayloadFileOffset is the absolute byte offset of Payload within
	// the database file. Recorded at load time even though this reader
	// keeps the whole file in memory, so the field matches what a
	// positional-I/O reader would need to re-fetch the payload later.
	PayloadFileOffset uint32
	StoredSize        uint32
	DecompressedSize  uint32

	format payloadFormat
	crc32  uint32
}

// decodeRecord parses one record starting at the beginning of b, which
// is the slice of the database file starting at baseOffset. It returns
// the record and the total number of bytes consumed, so the caller can
// advance to the next record.
func decodeRecord(b []byte, baseOffset int) (rec Record, consumed int, err error) {
	if len(b) < recordFixedLen {
		return Record{}, 0, errShortRead
	}

	off := reservedFieldLen + hexFieldLen
	storedSize := binary.LittleEndian.Uint32(b[off:])
	off += storedSizeFieldLen
	flags := binary.LittleEndian.Uint32(b[off:])
	off += flagsFieldLen
	crc := binary.LittleEndian.Uint32(b[off:])
	off += crcFieldLen
	decompressedSize := binary.LittleEndian.Uint32(b[off:])
	off += decompressedSizeFieldLen

	need := recordFixedLen + int(storedSize)
	if len(b) < need {
		return Record{}, 0, errShortRead
	}

	hexField := b[reservedFieldLen : reservedFieldLen+hexFieldLen]
	tagHex := hexField[padFieldLen : padFieldLen+tagFieldLen]
	hashHex := hexField[padFieldLen+tagFieldLen:]

	tagRaw, err := decodeHexField(tagHex)
	if err != nil {
		return Record{}, 0, fmt.Errorf("dbfile: bad tag field: %w", err)
	}
	hashRaw, err := decodeHexField(hashHex)
	if err != nil {
		return Record{}, 0, fmt.Errorf("dbfile: bad hash field: %w", err)
	}

	format := payloadFormat(flags)
	if format != formatRaw && format != formatCompressed {
		return Record{}, 0, fmt.Errorf("dbfile: unrecognized payload flags %d", flags)
	}

	tag := vk.Tag(uint8(tagRaw))
	if !tag.Valid() {
		return Record{}, 0, fmt.Errorf("dbfile: unknown tag %d", uint8(tagRaw))
	}

	rec = Record{
		Tag:               tag,
		Hash:              hashRaw,
		Payload:           b[recordFixedLen:need],
		PayloadFileOffset: uint32(baseOffset + recordFixedLen),
		StoredSize:        storedSize,
		DecompressedSize:  decompressedSize,
		format:            format,
		crc32:             crc,
	}
	return rec, need, nil
}

var errShortRead = fmt.Errorf("dbfile: record truncated")

// decodeHexField decodes an ASCII hex field into a uint64.
func decodeHexField(field []byte) (uint64, error) {
	decoded := make([]byte, hex.DecodedLen(len(field)))
	if _, err := hex.Decode(decoded, field); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range decoded {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
