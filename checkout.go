package gitcore

import (
	"context"
	"sort"
	"strings"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/plumbing/storer"
	"github.com/nseba/gitcore/vfs"
)

// CheckoutOptions configures Checkout (§4.6).
type CheckoutOptions struct {
	// Force discards working-tree modifications that would otherwise abort
	// the checkout.
	Force bool
}

// Checkout resolves target to a commit, applies the working-tree diff
// between the current index and that commit's tree, rewrites the index to
// match, and moves HEAD: symbolically for a branch name, or detached for
// any other revision (§4.6, §8 scenario 3).
func (r *Repository) Checkout(ctx context.Context, target string, opts CheckoutOptions) error {
	id, err := r.resolveRevision(ctx, target)
	if err != nil {
		return err
	}

	commitObj, err := r.Objects.Object(ctx, hash.CommitObject, id)
	if err != nil {
		return err
	}
	commit := commitObj.(*object.Commit)

	targetFiles := map[string]hash.ObjectID{}
	targetModes := map[string]filemode.FileMode{}
	if err := r.flattenTreeModes(ctx, commit.Tree, "", targetFiles, targetModes); err != nil {
		return err
	}

	if !opts.Force {
		conflicts, err := r.conflictingPaths(ctx, targetFiles)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return plumbing.New(plumbing.KindWorkingTreeDirty, "checkout aborted: local modifications to "+strings.Join(conflicts, ", ")+" would be overwritten")
		}
	}

	if err := r.syncWorktreeToFiles(ctx, targetFiles, targetModes); err != nil {
		return err
	}

	return r.moveHEAD(ctx, target, id)
}

// syncWorktreeToTree rewrites the working tree and index to match treeID,
// without touching HEAD; shared by Checkout and a fast-forward Merge.
func (r *Repository) syncWorktreeToTree(ctx context.Context, treeID hash.ObjectID) error {
	targetFiles := map[string]hash.ObjectID{}
	targetModes := map[string]filemode.FileMode{}
	if err := r.flattenTreeModes(ctx, treeID, "", targetFiles, targetModes); err != nil {
		return err
	}
	return r.syncWorktreeToFiles(ctx, targetFiles, targetModes)
}

// syncWorktreeToFiles applies a flattened target tree (path -> blob, path ->
// mode) to the working tree and rewrites the index to match.
func (r *Repository) syncWorktreeToFiles(ctx context.Context, targetFiles map[string]hash.ObjectID, targetModes map[string]filemode.FileMode) error {
	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return err
	}
	current := map[string]bool{}
	for _, e := range idx.Entries {
		if e.Stage == index.Normal {
			current[e.Name] = true
		}
	}

	if r.fs != nil {
		for path, blobID := range targetFiles {
			blobObj, err := r.Objects.Object(ctx, hash.BlobObject, blobID)
			if err != nil {
				return err
			}
			blob := blobObj.(*object.Blob)
			if err := r.fs.WriteFile(ctx, path, blob.Content); err != nil {
				return err
			}
		}
		for path := range current {
			if _, ok := targetFiles[path]; !ok {
				_ = r.fs.Unlink(ctx, path)
			}
		}
	}

	newIdx := index.NewIndex()
	for path, blobID := range targetFiles {
		e := newIdx.Add(path)
		e.Hash = blobID
		e.Mode = targetModes[path]
	}
	newIdx.Sort()
	return r.Refs.SetIndex(ctx, newIdx)
}

// moveHEAD points HEAD at refs/heads/<target> symbolically if that branch
// exists, or directly at id (detached) otherwise.
func (r *Repository) moveHEAD(ctx context.Context, target string, id hash.ObjectID) error {
	branchRef := "refs/heads/" + target
	if _, err := r.Refs.Reference(ctx, branchRef); err == nil {
		return r.Refs.SetReference(ctx, storer.NewSymbolicReference("HEAD", branchRef))
	}
	return r.Refs.SetReference(ctx, storer.NewHashReference("HEAD", id))
}

// conflictingPaths returns the paths where applying targetFiles would
// overwrite working-tree content that differs from both the current index
// and the target index (§4.6's abort-unless-force rule: a planned
// modification is only refused when it would actually destroy uncommitted
// work, not merely because the path is touched).
func (r *Repository) conflictingPaths(ctx context.Context, targetFiles map[string]hash.ObjectID) ([]string, error) {
	if r.fs == nil {
		return nil, nil
	}

	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return nil, err
	}
	current := map[string]hash.ObjectID{}
	for _, e := range idx.Entries {
		if e.Stage == index.Normal {
			current[e.Name] = e.Hash
		}
	}

	paths := map[string]bool{}
	for p := range current {
		paths[p] = true
	}
	for p := range targetFiles {
		paths[p] = true
	}

	var conflicts []string
	for path := range paths {
		curID, curOK := current[path]
		tgtID, tgtOK := targetFiles[path]
		if curOK && tgtOK && curID.Equal(tgtID) {
			continue // nothing planned to change for this path
		}

		data, err := r.fs.ReadFile(ctx, path)
		if err != nil {
			if err == vfs.ErrNotExist {
				continue // nothing on disk to lose
			}
			return nil, err
		}
		actual := object.NewBlob(r.algo, data).ID()
		if curOK && actual.Equal(curID) {
			continue // working tree still matches the current index
		}
		if tgtOK && actual.Equal(tgtID) {
			continue // working tree already matches the target
		}
		conflicts = append(conflicts, path)
	}

	sort.Strings(conflicts)
	return conflicts, nil
}

func (r *Repository) flattenTreeModes(ctx context.Context, id hash.ObjectID, prefix string, files map[string]hash.ObjectID, modes map[string]filemode.FileMode) error {
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
			if err := r.flattenTreeModes(ctx, e.ID, path, files, modes); err != nil {
				return err
			}
		} else {
			files[path] = e.ID
			modes[path] = e.Mode
		}
	}
	return nil
}
