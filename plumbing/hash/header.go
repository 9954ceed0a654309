package hash

import (
	"fmt"
	"io"
)

// Kind enumerates the four object kinds addressable in the object database.
type Kind int8

const (
	InvalidObject Kind = iota
	CommitObject
	TreeObject
	BlobObject
	TagObject
	// OFSDeltaObject and REFDeltaObject only ever appear inside a packfile
	// entry header; they never name a database-resident kind.
	OFSDeltaObject
	REFDeltaObject
)

func (k Kind) String() string {
	switch k {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// ParseKind resolves the object-header keyword used by loose objects.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("invalid object kind %q", s)
	}
}

// Of computes the identifier for a payload of the given kind, by hashing the
// canonical "<kind> <len>\0" header concatenated with the payload. This is
// the single place headers are constructed so callers never duplicate the
// framing logic.
func Of(a Algorithm, k Kind, payload []byte) ObjectID {
	h := a.NewHasher()
	fmt.Fprintf(h, "%s %d\x00", k, len(payload))
	h.Write(payload)
	return ObjectID(h.Sum(nil))
}

// HashReader streams payload through the header hash without buffering it
// twice; size must be known up front, matching the object-database
// contract (length is always recorded alongside a loose object).
func HashReader(a Algorithm, k Kind, size int64, r io.Reader) (ObjectID, error) {
	h := a.NewHasher()
	fmt.Fprintf(h, "%s %d\x00", k, size)
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	return ObjectID(h.Sum(nil)), nil
}
