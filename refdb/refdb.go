// Package refdb implements the reference namespace and the index
// persistence layer described in §4.4, both backed by the abstract KVStore
// contract.
package refdb

import (
	"bytes"
	"context"
	"strings"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/storer"
	"github.com/nseba/gitcore/storage"
)

const (
	refPrefix    = "refs-store/"
	headKey      = "HEAD"
	indexKey     = "index"
	configKey    = "config"
	mergeHeadKey = "MERGE_HEAD"
	mergeMsgKey  = "MERGE_MSG"
)

// DB is the reference/index/config store for one repository.
type DB struct {
	kv   storage.KVStore
	algo hash.Algorithm
}

func New(kv storage.KVStore, algo hash.Algorithm) *DB {
	return &DB{kv: kv, algo: algo}
}

func refKey(name string) string {
	if name == "HEAD" {
		return headKey
	}
	return refPrefix + name
}

func encodeReference(ref *storer.Reference) []byte {
	if ref.Kind == storer.SymbolicReference {
		return []byte("ref: " + ref.Ref)
	}
	return []byte(ref.Target.String())
}

func decodeReference(name string, raw []byte) (*storer.Reference, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, "ref: ") {
		return storer.NewSymbolicReference(name, strings.TrimPrefix(s, "ref: ")), nil
	}
	id, ok := hash.FromHex(s)
	if !ok {
		return nil, plumbing.New(plumbing.KindInvalidRef, "malformed reference value for "+name)
	}
	return storer.NewHashReference(name, id), nil
}

// SetReference writes ref unconditionally, with no race protection.
func (db *DB) SetReference(ctx context.Context, ref *storer.Reference) error {
	return db.kv.Put(ctx, refKey(ref.Name), encodeReference(ref))
}

// CheckAndSetReference implements the spec's atomic compare-and-set ref
// update (§4.4, §5): old nil means "must not already exist". On a backend
// without native CAS this degrades to read-then-write, which is advisory
// only — see storage.CAS's doc comment.
func (db *DB) CheckAndSetReference(ctx context.Context, ref, old *storer.Reference) error {
	newVal := encodeReference(ref)

	if cas, ok := db.kv.(storage.CAS); ok {
		var expected []byte
		if old != nil {
			expected = encodeReference(old)
		}
		if err := cas.CompareAndSwap(ctx, refKey(ref.Name), expected, newVal); err != nil {
			if err == storage.ErrCASMismatch {
				return plumbing.Wrap(plumbing.KindRefRaceLost, "updating "+ref.Name, err)
			}
			return err
		}
		return nil
	}

	current, err := db.kv.Get(ctx, refKey(ref.Name))
	exists := err == nil
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	switch {
	case old == nil && exists:
		return plumbing.New(plumbing.KindRefRaceLost, "updating "+ref.Name+": already exists")
	case old != nil && !exists:
		return plumbing.New(plumbing.KindRefRaceLost, "updating "+ref.Name+": no longer exists")
	case old != nil && exists && string(current) != string(encodeReference(old)):
		return plumbing.New(plumbing.KindRefRaceLost, "updating "+ref.Name+": changed concurrently")
	}
	return db.kv.Put(ctx, refKey(ref.Name), newVal)
}

func (db *DB) Reference(ctx context.Context, name string) (*storer.Reference, error) {
	raw, err := db.kv.Get(ctx, refKey(name))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, plumbing.New(plumbing.KindNotFound, "reference "+name)
		}
		return nil, err
	}
	return decodeReference(name, raw)
}

func (db *DB) RemoveReference(ctx context.Context, name string) error {
	return db.kv.Delete(ctx, refKey(name))
}

// IterReferences lists every reference whose name begins with prefix
// (typically "refs/heads/", "refs/tags/", or "refs/remotes/").
func (db *DB) IterReferences(ctx context.Context, prefix string) ([]*storer.Reference, error) {
	keys, err := db.kv.List(ctx, refPrefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*storer.Reference, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, refPrefix)
		raw, err := db.kv.Get(ctx, k)
		if err != nil {
			continue
		}
		ref, err := decodeReference(name, raw)
		if err != nil {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

// ResolveHEAD follows HEAD, if symbolic, to its target object-id.
func (db *DB) ResolveHEAD(ctx context.Context) (hash.ObjectID, *storer.Reference, error) {
	head, err := db.Reference(ctx, "HEAD")
	if err != nil {
		return nil, nil, err
	}
	if head.Kind == storer.HashReference {
		return head.Target, head, nil
	}
	target, err := db.Reference(ctx, head.Ref)
	if err != nil {
		if k, ok := plumbing.KindOf(err); ok && k == plumbing.KindNotFound {
			// unborn branch: HEAD is symbolic but its target doesn't
			// exist yet (§3 invariant 4, allowed only before the first
			// commit).
			return nil, head, nil
		}
		return nil, nil, err
	}
	return target.Target, head, nil
}

// SetIndex persists the staging index.
func (db *DB) SetIndex(ctx context.Context, idx *index.Index) error {
	var buf bytes.Buffer
	if err := index.Encode(&buf, idx, db.algo); err != nil {
		return err
	}
	return db.kv.Put(ctx, indexKey, buf.Bytes())
}

// Index loads the staging index, returning a fresh empty one if none has
// been written yet.
func (db *DB) Index(ctx context.Context) (*index.Index, error) {
	raw, err := db.kv.Get(ctx, indexKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return index.NewIndex(), nil
		}
		return nil, err
	}
	return index.Decode(bytes.NewReader(raw), db.algo)
}

// SetMergeState records an in-progress merge (§4.7 step 6): theirID is the
// other parent a subsequent commit must adopt, msg the message it should
// default to. This is the MERGE_HEAD/MERGE_MSG bookkeeping a conflicted
// merge leaves behind instead of advancing the branch.
func (db *DB) SetMergeState(ctx context.Context, theirID hash.ObjectID, msg string) error {
	if err := db.kv.Put(ctx, mergeHeadKey, []byte(theirID.String())); err != nil {
		return err
	}
	return db.kv.Put(ctx, mergeMsgKey, []byte(msg))
}

// MergeState reports the recorded in-progress merge, if any.
func (db *DB) MergeState(ctx context.Context) (theirID hash.ObjectID, msg string, ok bool, err error) {
	raw, err := db.kv.Get(ctx, mergeHeadKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}
	id, valid := hash.FromHex(string(raw))
	if !valid {
		return nil, "", false, plumbing.New(plumbing.KindCorrupt, "malformed MERGE_HEAD")
	}

	msgRaw, err := db.kv.Get(ctx, mergeMsgKey)
	if err != nil && err != storage.ErrNotFound {
		return nil, "", false, err
	}
	return id, string(msgRaw), true, nil
}

// ClearMergeState removes MERGE_HEAD/MERGE_MSG, either because the merge
// commit was made or because the merge was aborted.
func (db *DB) ClearMergeState(ctx context.Context) error {
	if err := db.kv.Delete(ctx, mergeHeadKey); err != nil && err != storage.ErrNotFound {
		return err
	}
	if err := db.kv.Delete(ctx, mergeMsgKey); err != nil && err != storage.ErrNotFound {
		return err
	}
	return nil
}

func (db *DB) SetConfig(ctx context.Context, raw []byte) error {
	return db.kv.Put(ctx, configKey, raw)
}

func (db *DB) Config(ctx context.Context) ([]byte, error) {
	raw, err := db.kv.Get(ctx, configKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}
