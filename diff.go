package gitcore

import (
	"context"

	"github.com/nseba/gitcore/plumbing/hash"
)

// ChangeKind classifies one path's difference between two trees.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeDeleted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one path's before/after object-ids in a tree-to-tree diff.
type Change struct {
	Path   string
	Kind   ChangeKind
	Before hash.ObjectID
	After  hash.ObjectID
}

// DiffTrees compares two commits' trees path by path (supplemented beyond
// §4.5's worktree-vs-index diff, grounded on go-git's object/patch.go
// tree-comparison approach but without hunk-level line diffing).
func (r *Repository) DiffTrees(ctx context.Context, from, to hash.ObjectID) ([]Change, error) {
	fromFiles, _, err := r.treeFilesAndModes(ctx, from)
	if err != nil {
		return nil, err
	}
	toFiles, _, err := r.treeFilesAndModes(ctx, to)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for path, beforeID := range fromFiles {
		afterID, ok := toFiles[path]
		switch {
		case !ok:
			changes = append(changes, Change{Path: path, Kind: ChangeDeleted, Before: beforeID})
		case !beforeID.Equal(afterID):
			changes = append(changes, Change{Path: path, Kind: ChangeModified, Before: beforeID, After: afterID})
		}
	}
	for path, afterID := range toFiles {
		if _, ok := fromFiles[path]; !ok {
			changes = append(changes, Change{Path: path, Kind: ChangeAdded, After: afterID})
		}
	}

	return changes, nil
}

// DiffWorkingTree compares the current index against the working tree,
// reusing Status's classification but surfacing it as path/blob pairs
// suitable for patch generation.
func (r *Repository) DiffWorkingTree(ctx context.Context) ([]Change, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for path, s := range statuses {
		switch s {
		case ModifiedNotStaged, DeletedNotStaged:
			e, _ := idx.Entry(path)
			var before hash.ObjectID
			if e != nil {
				before = e.Hash
			}
			kind := ChangeModified
			if s == DeletedNotStaged {
				kind = ChangeDeleted
			}
			changes = append(changes, Change{Path: path, Kind: kind, Before: before})
		case Untracked:
			changes = append(changes, Change{Path: path, Kind: ChangeAdded})
		}
	}
	return changes, nil
}
