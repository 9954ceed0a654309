// Package packfile implements the pack format described in §4.3: a header,
// a sequence of (possibly delta-encoded) entries, and a trailer hash, plus
// the decoder and encoder gitcore's object database and wire layer share.
package packfile

import (
	"bytes"
	"errors"
	"fmt"
)

var magic = [4]byte{'P', 'A', 'C', 'K'}

var (
	ErrInvalidPackfile = errors.New("packfile: invalid packfile")
	ErrMissingBase     = errors.New("packfile: delta base not found")
	ErrInvalidChecksum = errors.New("packfile: trailer checksum mismatch")
)

// Object kinds as they appear in a pack entry header (bits 4-6 of the
// first byte); ofs-delta and ref-delta only ever occur here, never as a
// database-resident kind.
const (
	typeCommit   int8 = 1
	typeTree     int8 = 2
	typeBlob     int8 = 3
	typeTag      int8 = 4
	typeOfsDelta int8 = 6
	typeRefDelta int8 = 7
)

// RawEntry is one decoded, fully-resolved pack entry: a kind and its
// materialized (non-delta) payload.
type RawEntry struct {
	Kind    int8
	Payload []byte
}

func kindName(k int8) string {
	switch k {
	case typeCommit:
		return "commit"
	case typeTree:
		return "tree"
	case typeBlob:
		return "blob"
	case typeTag:
		return "tag"
	case typeOfsDelta:
		return "ofs-delta"
	case typeRefDelta:
		return "ref-delta"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

func checkMagic(b []byte) error {
	if len(b) < 4 || !bytes.Equal(b[:4], magic[:]) {
		return fmt.Errorf("%w: bad magic", ErrInvalidPackfile)
	}
	return nil
}
