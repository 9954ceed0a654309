// Package storer declares the typed interfaces layered over the abstract
// KVStore contract: object storage, reference storage, and index storage.
// refdb.DB implements ReferenceStorer, IndexStorer and ConfigStorer.
// objectdb.DB has the object methods, but its IterObjects returns a concrete
// iterator type, so it does not satisfy EncodedObjectStorer.
package storer

import (
	"context"

	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
)

// EncodedObjectStorer is the object-database surface repository operations
// consume: content-addressed put/get plus existence and iteration.
type EncodedObjectStorer interface {
	SetObject(ctx context.Context, o object.Object) (hash.ObjectID, error)
	Object(ctx context.Context, kind hash.Kind, id hash.ObjectID) (object.Object, error)
	HasObject(ctx context.Context, id hash.ObjectID) (bool, error)
	// IterObjects iterates stored objects of the given kind.
	IterObjects(ctx context.Context, kind hash.Kind) (ObjectIter, error)
}

// ObjectIter yields objects until Next returns io.EOF.
type ObjectIter interface {
	Next() (object.Object, error)
	Close()
}

// ReferenceStorer is the reference-namespace surface (§4.4): branches,
// tags, remote-tracking refs, and the symbolic/detached HEAD, with
// compare-and-set semantics for atomic updates.
type ReferenceStorer interface {
	// SetReference writes ref unconditionally.
	SetReference(ctx context.Context, ref *Reference) error
	// CheckAndSetReference writes ref only if the current value of
	// ref.Name equals old (nil meaning "must not exist"); returns a
	// plumbing error of kind KindRefRaceLost on mismatch.
	CheckAndSetReference(ctx context.Context, ref, old *Reference) error
	Reference(ctx context.Context, name string) (*Reference, error)
	RemoveReference(ctx context.Context, name string) error
	IterReferences(ctx context.Context, prefix string) ([]*Reference, error)
}

// ReferenceKind distinguishes a symbolic ref from one pointing directly at
// an object.
type ReferenceKind int

const (
	HashReference ReferenceKind = iota
	SymbolicReference
)

// Reference is a named pointer: either directly to an object-id, or
// symbolically to another ref name (only HEAD uses the symbolic form in
// practice, but the type does not special-case that).
type Reference struct {
	Name   string
	Kind   ReferenceKind
	Target hash.ObjectID // set when Kind == HashReference
	Ref    string        // set when Kind == SymbolicReference
}

func NewHashReference(name string, target hash.ObjectID) *Reference {
	return &Reference{Name: name, Kind: HashReference, Target: target}
}

func NewSymbolicReference(name, target string) *Reference {
	return &Reference{Name: name, Kind: SymbolicReference, Ref: target}
}

// IndexStorer stores the single staging-area index for a repository.
type IndexStorer interface {
	SetIndex(ctx context.Context, idx *index.Index) error
	Index(ctx context.Context) (*index.Index, error)
}

// ConfigStorer stores the repository configuration record.
type ConfigStorer interface {
	SetConfig(ctx context.Context, raw []byte) error
	Config(ctx context.Context) ([]byte, error)
}
