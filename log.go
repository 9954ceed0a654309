package gitcore

import (
	"context"
	"time"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
)

// LogOptions filters a commit walk (supplemented beyond §4.5's baseline
// status/commit pair, grounded on go-git's object/commit_walker.go).
type LogOptions struct {
	// Since excludes commits authored before this time.
	Since time.Time
	// PathFilter, if non-empty, keeps only commits that touch this path.
	PathFilter string
	// Limit caps the number of commits returned; zero means unbounded.
	Limit int
}

// Log walks commit history from start (inclusive) breadth-first, queueing
// each commit's parents in order and visiting every commit once, applying
// LogOptions as it goes. Across merges a commit can be listed before one of
// its descendants.
func (r *Repository) Log(ctx context.Context, start hash.ObjectID, opts LogOptions) ([]*object.Commit, error) {
	var out []*object.Commit
	seen := map[string]bool{}
	queue := []hash.ObjectID{start}

	for len(queue) > 0 && (opts.Limit == 0 || len(out) < opts.Limit) {
		id := queue[0]
		queue = queue[1:]
		key := id.String()
		if seen[key] {
			continue
		}
		seen[key] = true

		obj, err := r.Objects.Object(ctx, hash.CommitObject, id)
		if err != nil {
			return nil, err
		}
		commit := obj.(*object.Commit)

		if !opts.Since.IsZero() && commit.Author.When.Before(opts.Since) {
			queue = append(queue, commit.Parents...)
			continue
		}

		include := true
		if opts.PathFilter != "" {
			touched, err := r.commitTouchesPath(ctx, commit, opts.PathFilter)
			if err != nil {
				return nil, err
			}
			include = touched
		}
		if include {
			out = append(out, commit)
		}

		queue = append(queue, commit.Parents...)
	}

	return out, nil
}

// commitTouchesPath reports whether commit's tree entry at path differs
// from at least one parent's (or exists where a root commit has none), matching
// git log's default path-limiting semantics for simple linear history.
func (r *Repository) commitTouchesPath(ctx context.Context, commit *object.Commit, path string) (bool, error) {
	id, err := r.lookupPath(ctx, commit.Tree, path)
	if err != nil {
		return false, err
	}
	if len(commit.Parents) == 0 {
		return id != nil, nil
	}
	for _, p := range commit.Parents {
		parentObj, err := r.Objects.Object(ctx, hash.CommitObject, p)
		if err != nil {
			return false, err
		}
		parent := parentObj.(*object.Commit)
		parentID, err := r.lookupPath(ctx, parent.Tree, path)
		if err != nil {
			return false, err
		}
		if !objectIDsEqual(id, parentID) {
			return true, nil
		}
	}
	return false, nil
}

func objectIDsEqual(a, b hash.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// lookupPath resolves a slash-separated path inside treeID, returning nil
// if no entry exists at that path.
func (r *Repository) lookupPath(ctx context.Context, treeID hash.ObjectID, path string) (hash.ObjectID, error) {
	files := map[string]hash.ObjectID{}
	modes := map[string]filemode.FileMode{}
	if err := r.flattenTreeModes(ctx, treeID, "", files, modes); err != nil {
		return nil, err
	}
	return files[path], nil
}
