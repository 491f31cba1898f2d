package dbfile

import (
	"fmt"

	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/vk"
)

// Result is the outcome of a successful Load: the surviving records in
// file order (later duplicates of the same key are kept in the slice;
// internal/entrystore resolves last-seen-wins when it builds its
// catalog), plus counters describing anything Load tolerated rather
// than failed on.
type Result struct {
	Records []Record

	// Truncated is true when the file ended mid-record. Fossilize
	// database files are appended to incrementally and a writer killed
	// mid-append is expected; Load recovers every complete record
	// before the truncation point instead of failing the whole load.
	Truncated bool

	// DroppedBlobLinks counts application_blob_link records seen and
	// discarded. The replayer has no use for the external blob they
	// reference — it replays pipeline objects, not blob storage — so
	// these never become store entries.
	DroppedBlobLinks int
}

// Load parses a complete database file already read into memory. It
// validates the header, then decodes records until it runs out of
// bytes, a record fails to decode as anything but a truncated tail, or
// a record is corrupt in a way that is not tolerable (a bad tag, a
// malformed hex field — those always fail the whole load, since they
// indicate a different kind of corruption than a process being killed
// mid-write).
func Load(data []byte) (Result, error) {
	if _, err := ParseHeader(data); err != nil {
		return Result{}, err
	}

	var res Result
	off := constants.HeaderSize

	for off < len(data) {
		rec, consumed, err := decodeRecord(data[off:], off)
		if err != nil {
			if err == errShortRead {
				res.Truncated = true
				break
			}
			return Result{}, fmt.Errorf("dbfile: record at offset %d: %w", off, err)
		}

		if rec.Tag == vk.TagApplicationBlobLink {
			res.DroppedBlobLinks++
			off += consumed
			continue
		}

		res.Records = append(res.Records, rec)
		off += consumed
	}

	return res, nil
}
