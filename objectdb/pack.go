package objectdb

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/format/packfile"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
)

// IngestPack decodes raw as a packfile and records every resolved object
// under packName, verifying the trailer checksum first. Thin-pack
// ref-deltas are resolved against objects already in this database.
func (db *DB) IngestPack(ctx context.Context, packName string, raw []byte) (int, error) {
	if err := packfile.VerifyTrailer(db.algo, raw); err != nil {
		return 0, plumbing.Wrap(plumbing.KindInvalidPackfile, "trailer checksum", err)
	}

	resolver := func(id hash.ObjectID) ([]byte, bool) {
		o, err := db.Object(ctx, 0, id)
		if err != nil {
			return nil, false
		}
		payload, err := o.Encode()
		if err != nil {
			return nil, false
		}
		return payload, true
	}

	parsed, err := packfile.Parse(db.algo, bytes.NewReader(raw), resolver)
	if err != nil {
		return 0, plumbing.Wrap(plumbing.KindInvalidPackfile, "decoding pack", err)
	}

	byID := make(map[string][]byte, len(parsed.Objects))
	byKind := make(map[string]hash.Kind, len(parsed.Objects))
	for _, o := range parsed.Objects {
		byID[o.ID.String()] = o.Payload
		byKind[o.ID.String()] = objKind(o.Kind)
	}
	db.packs[packName] = byID
	db.packKind[packName] = byKind

	return len(parsed.Objects), nil
}

func objKind(k int8) hash.Kind {
	switch k {
	case 1:
		return hash.CommitObject
	case 2:
		return hash.TreeObject
	case 3:
		return hash.BlobObject
	case 4:
		return hash.TagObject
	default:
		return hash.InvalidObject
	}
}

// EncodePack serializes the given objects (already resolved, e.g. via a
// reachability walk) as a non-delta packfile.
func (db *DB) EncodePack(ids []hash.ObjectID) ([]byte, error) {
	objs := make([]packfile.EncodeObject, 0, len(ids))
	for _, id := range ids {
		o, err := db.Object(context.Background(), 0, id)
		if err != nil {
			return nil, err
		}
		payload, err := o.Encode()
		if err != nil {
			return nil, err
		}
		objs = append(objs, packfile.EncodeObject{Kind: o.Kind(), Payload: payload})
	}

	var buf bytes.Buffer
	if err := packfile.Encode(&buf, db.algo, objs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReachableFrom walks commits/trees/blobs reachable from the given tips,
// used both by EncodePack's caller (push, local packing) and by prune-style
// callers outside this spec's scope.
func (db *DB) ReachableFrom(ctx context.Context, tips []hash.ObjectID) ([]hash.ObjectID, error) {
	seen := map[string]bool{}
	var order []hash.ObjectID
	var walkTree func(id hash.ObjectID) error
	walkTree = func(id hash.ObjectID) error {
		if seen[id.String()] {
			return nil
		}
		seen[id.String()] = true
		order = append(order, id)

		o, err := db.Object(ctx, hash.TreeObject, id)
		if err != nil {
			return err
		}
		t := o.(*object.Tree)
		for _, e := range t.Entries {
			if e.Mode == filemode.Dir {
				if err := walkTree(e.ID); err != nil {
					return err
				}
			} else if !seen[e.ID.String()] {
				seen[e.ID.String()] = true
				order = append(order, e.ID)
			}
		}
		return nil
	}

	queue := append([]hash.ObjectID{}, tips...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		order = append(order, id)

		o, err := db.Object(ctx, hash.CommitObject, id)
		if err != nil {
			return nil, fmt.Errorf("walking commit %s: %w", id, err)
		}
		c := o.(*object.Commit)
		if err := walkTree(c.Tree); err != nil {
			return nil, fmt.Errorf("walking tree of commit %s: %w", id, err)
		}
		queue = append(queue, c.Parents...)
	}

	return order, nil
}
