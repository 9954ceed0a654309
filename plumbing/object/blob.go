package object

import "github.com/nseba/gitcore/plumbing/hash"

// Blob is opaque byte content; its identity is the hash of the blob header
// concatenated with the content itself.
type Blob struct {
	id      hash.ObjectID
	Content []byte
}

// NewBlob computes a Blob's identifier for the given algorithm and content.
func NewBlob(algo hash.Algorithm, content []byte) *Blob {
	b := &Blob{Content: content}
	b.id = hash.Of(algo, hash.BlobObject, content)
	return b
}

// DecodeBlob wraps a loaded payload as a Blob, computing its id.
func DecodeBlob(algo hash.Algorithm, payload []byte) (*Blob, error) {
	return NewBlob(algo, payload), nil
}

func (b *Blob) ID() hash.ObjectID { return b.id }
func (b *Blob) Kind() hash.Kind   { return hash.BlobObject }
func (b *Blob) Size() int64       { return int64(len(b.Content)) }

func (b *Blob) Encode() ([]byte, error) {
	return b.Content, nil
}
