// Package object implements the four hash-addressed object kinds — blob,
// tree, commit, tag — and their canonical serialization. Building trees from
// the index, diffing and merging live in the root gitcore package.
package object

import (
	"fmt"

	"github.com/nseba/gitcore/plumbing/hash"
)

// Object is the common surface every decoded object kind satisfies.
type Object interface {
	// ID returns the object's content-address, computed over its
	// canonical encoding.
	ID() hash.ObjectID
	// Kind returns which of the four kinds this object is.
	Kind() hash.Kind
	// Encode returns the canonical payload (without the "<kind> <len>\0"
	// header; the object database adds that when framing a loose object).
	Encode() ([]byte, error)
}

// Decode parses a payload of the given kind into its typed object and
// computes its identifier under algo. Returns ErrUnsupportedObjectKind for
// ofs-delta/ref-delta, which are pack-internal framing, not database kinds.
func Decode(algo hash.Algorithm, kind hash.Kind, payload []byte) (Object, error) {
	switch kind {
	case hash.BlobObject:
		return DecodeBlob(algo, payload)
	case hash.TreeObject:
		return DecodeTree(algo, payload)
	case hash.CommitObject:
		return DecodeCommit(algo, payload)
	case hash.TagObject:
		return DecodeTag(algo, payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedObjectKind, kind)
	}
}

var ErrUnsupportedObjectKind = fmt.Errorf("unsupported object kind")
