package hash

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// ObjectID is a fixed-width, content-addressed identifier. It is either 20
// or 32 bytes wide depending on the owning repository's configured
// algorithm; every identifier in a given repository shares one width.
type ObjectID []byte

// Zero returns the all-zero identifier for the given algorithm, used as the
// "no object" sentinel in ref updates (creation/deletion).
func Zero(a Algorithm) ObjectID {
	return make(ObjectID, a.Size())
}

// IsZero reports whether every byte of the identifier is zero.
func (id ObjectID) IsZero() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return true
}

// String returns the lowercase hexadecimal representation.
func (id ObjectID) String() string {
	return hex.EncodeToString(id)
}

// Compare implements a byte-wise ordering, used to keep object-id sets and
// ref advertisements in a canonical order.
func (id ObjectID) Compare(other []byte) int {
	return bytes.Compare(id, other)
}

// Equal reports whether two identifiers have identical bytes.
func (id ObjectID) Equal(other ObjectID) bool {
	return bytes.Equal(id, other)
}

// HasPrefix reports whether id begins with the given raw byte prefix;
// used for abbreviated-id lookups.
func (id ObjectID) HasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(id, prefix)
}

// Bytes returns the identifier's raw bytes.
func (id ObjectID) Bytes() []byte {
	return []byte(id)
}

// FromHex decodes a hex string into an ObjectID. The length of the string
// (40 or 64 hex digits) determines the algorithm.
func FromHex(in string) (ObjectID, bool) {
	if len(in) != SHA1HexSize && len(in) != SHA256HexSize {
		return nil, false
	}
	b, err := hex.DecodeString(in)
	if err != nil {
		return nil, false
	}
	return ObjectID(b), true
}

// MustFromHex is FromHex but panics on invalid input; used in tests and for
// well-known constant identifiers.
func MustFromHex(in string) ObjectID {
	id, ok := FromHex(in)
	if !ok {
		panic("gitcore/hash: invalid hex object id " + in)
	}
	return id
}

// FromBytes wraps a raw byte slice as an ObjectID, validating its width.
func FromBytes(in []byte) (ObjectID, bool) {
	if len(in) != SHA1Size && len(in) != SHA256Size {
		return nil, false
	}
	out := make(ObjectID, len(in))
	copy(out, in)
	return out, true
}

// AlgorithmOf infers the algorithm from an identifier's width.
func AlgorithmOf(id ObjectID) Algorithm {
	if len(id) == SHA256Size {
		return SHA256
	}
	return SHA1
}

// Sort orders a slice of ObjectIDs lexicographically; used to make pack and
// advertisement output deterministic for tests.
func Sort(ids []ObjectID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
}
