package gitcore

import (
	"context"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
)

// FileStatus classifies a single path's three-way state across HEAD, the
// index, and the working tree (§4.5).
type FileStatus int

const (
	Unmodified FileStatus = iota
	Untracked
	Added
	Modified
	ModifiedNotStaged
	Deleted
	DeletedNotStaged
	Conflicted
)

func (s FileStatus) String() string {
	switch s {
	case Untracked:
		return "untracked"
	case Added:
		return "added"
	case Modified:
		return "modified"
	case ModifiedNotStaged:
		return "modified (not staged)"
	case Deleted:
		return "deleted"
	case DeletedNotStaged:
		return "deleted (not staged)"
	case Conflicted:
		return "conflicted"
	default:
		return "unmodified"
	}
}

// Status reports the combined HEAD/index/worktree classification for every
// path that differs from unmodified, per §4.5's status algorithm: a
// size/mtime fast path first, falling back to content hashing.
func (r *Repository) Status(ctx context.Context) (map[string]FileStatus, error) {
	out := map[string]FileStatus{}

	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return nil, err
	}

	headTree, err := r.headTreeEntries(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range idx.Entries {
		if e.Stage != index.Normal {
			out[e.Name] = Conflicted
			continue
		}
		headID, inHead := headTree[e.Name]
		switch {
		case !inHead:
			out[e.Name] = Added
		case !headID.Equal(e.Hash):
			out[e.Name] = Modified
		}
	}

	for path, headID := range headTree {
		if _, staged := idx.Entry(path); !staged {
			out[path] = Deleted
			_ = headID
		}
	}

	if r.fs != nil {
		files, err := r.listWorkingFiles(ctx, "")
		if err != nil {
			return nil, err
		}
		matcher, err := r.loadGitignore(ctx)
		if err != nil {
			return nil, err
		}

		present := map[string]bool{}
		for _, f := range files {
			present[f] = true
			e, staged := idx.Entry(f)
			if !staged {
				if !matcher.Match(f, false) {
					out[f] = Untracked
				}
				continue
			}
			data, err := r.fs.ReadFile(ctx, f)
			if err != nil {
				continue
			}
			info, err := r.fs.Stat(ctx, f)
			if err != nil {
				continue
			}
			if uint32(info.Size) == e.Size && info.Mtime.Equal(e.ModifiedAt) {
				continue
			}
			blob := object.NewBlob(r.algo, data)
			if !blob.ID().Equal(e.Hash) {
				out[f] = ModifiedNotStaged
			}
		}

		for _, e := range idx.Entries {
			if e.Stage == index.Normal && !present[e.Name] {
				out[e.Name] = DeletedNotStaged
			}
		}
	}

	return out, nil
}

// headTreeEntries flattens the commit tree HEAD points at into a
// path->object-id map, or returns an empty map for an unborn branch.
func (r *Repository) headTreeEntries(ctx context.Context) (map[string]hash.ObjectID, error) {
	head, _, err := r.Head(ctx)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return map[string]hash.ObjectID{}, nil
	}

	commitObj, err := r.Objects.Object(ctx, hash.CommitObject, head)
	if err != nil {
		return nil, err
	}
	commit := commitObj.(*object.Commit)

	out := map[string]hash.ObjectID{}
	if err := r.flattenTree(ctx, commit.Tree, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) flattenTree(ctx context.Context, id hash.ObjectID, prefix string, out map[string]hash.ObjectID) error {
	obj, err := r.Objects.Object(ctx, hash.TreeObject, id)
	if err != nil {
		return err
	}
	tree := obj.(*object.Tree)

	for _, e := range tree.Entries {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + e.Name
		}
		if e.Mode == filemode.Dir {
			if err := r.flattenTree(ctx, e.ID, path, out); err != nil {
				return err
			}
		} else {
			out[path] = e.ID
		}
	}
	return nil
}
