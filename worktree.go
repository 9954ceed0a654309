package gitcore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/format/gitignore"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/plumbing/storer"
	"github.com/nseba/gitcore/vfs"
)

// AddOptions configures Add (§4.5).
type AddOptions struct {
	// Force stages paths even if they are gitignored.
	Force bool
	// UpdateOnly restages only paths already present in the index.
	UpdateOnly bool
}

// Add walks the working tree under each of paths (or the whole tree for
// "."), applies gitignore unless Force is set, and stages every kept file:
// a blob is created if not already present in the object database, and an
// index entry is written with canonical metadata.
func (r *Repository) Add(ctx context.Context, paths []string, opts AddOptions) error {
	if r.fs == nil {
		return plumbing.New(plumbing.KindNotFound, "add requires a working tree, but this repository is bare")
	}

	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return err
	}

	matcher, err := r.loadGitignore(ctx)
	if err != nil {
		return err
	}

	files, err := r.listWorkingFiles(ctx, "")
	if err != nil {
		return err
	}

	wanted := matchPatterns(files, paths)

	for _, f := range files {
		if !wanted[f] {
			continue
		}
		if !opts.Force && matcher.Match(f, false) {
			continue
		}

		_, alreadyIndexed := idx.Entry(f)
		if opts.UpdateOnly && !alreadyIndexed {
			continue
		}

		data, err := r.fs.ReadFile(ctx, f)
		if err != nil {
			return err
		}
		info, err := r.fs.Stat(ctx, f)
		if err != nil {
			return err
		}

		blob := object.NewBlob(r.algo, data)
		if has, _ := r.Objects.HasObject(ctx, blob.ID()); !has {
			if _, err := r.Objects.SetObject(ctx, blob); err != nil {
				return err
			}
		}

		e, found := idx.Entry(f)
		if !found {
			// drops any stale conflict-stage (1/2/3) entries left behind by
			// an unresolved merge, the way resolving a conflict and
			// re-adding it collapses the path back to a single stage 0.
			idx.Remove(f)
			e = idx.Add(f)
		}
		e.Hash = blob.ID()
		e.Mode = filemode.Regular
		e.Size = uint32(info.Size)
		e.ModifiedAt = info.Mtime
		e.CreatedAt = info.Ctime
		e.Stage = index.Normal
	}

	idx.Sort()
	return r.Refs.SetIndex(ctx, idx)
}

// matchPatterns reduces the full file list to those under any of the
// requested path patterns (a bare directory name, "." for everything, or
// an exact file path).
func matchPatterns(files []string, patterns []string) map[string]bool {
	out := map[string]bool{}
	for _, p := range patterns {
		p = strings.TrimSuffix(p, "/")
		for _, f := range files {
			if p == "." || f == p || strings.HasPrefix(f, p+"/") {
				out[f] = true
			}
		}
	}
	return out
}

func (r *Repository) loadGitignore(ctx context.Context) (*gitignore.Matcher, error) {
	data, err := r.fs.ReadFile(ctx, ".gitignore")
	if err != nil {
		return gitignore.NewMatcher(nil), nil
	}
	return gitignore.NewMatcher(strings.Split(string(data), "\n")), nil
}

// listWorkingFiles recursively lists every regular file under dir
// (forward-slash, repository-root-relative), skipping any directory named
// ".git".
func (r *Repository) listWorkingFiles(ctx context.Context, dir string) ([]string, error) {
	names, err := r.fs.Readdir(ctx, dirOrRoot(dir))
	if err != nil {
		if err == vfs.ErrNotExist {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, name := range names {
		p := name
		if dir != "" {
			p = dir + "/" + name
		}
		info, err := r.fs.Stat(ctx, p)
		if err != nil {
			continue
		}
		if info.Kind == vfs.KindDir {
			if name == ".git" {
				continue
			}
			children, err := r.listWorkingFiles(ctx, p)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		} else {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func dirOrRoot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// CommitOptions configures Commit (§4.5).
type CommitOptions struct {
	Message   string
	Author    object.Signature
	Committer object.Signature
}

// Commit builds a tree from the current index, synthesizes a commit object
// with parents derived from HEAD, and atomically advances the current
// branch (§4.5, §8 scenario 1). If a merge is in progress (§4.7 step 6),
// this is the commit that resumes it: it fails while unresolved conflict
// stage entries remain in the index, and otherwise adopts MERGE_HEAD as a
// second parent, defaults to the recorded merge message, and clears the
// merge state on success.
func (r *Repository) Commit(ctx context.Context, opts CommitOptions) (*object.Commit, error) {
	idx, err := r.Refs.Index(ctx)
	if err != nil {
		return nil, err
	}

	mergeTheirs, mergeMsg, mergeInProgress, err := r.Refs.MergeState(ctx)
	if err != nil {
		return nil, err
	}
	if mergeInProgress {
		for _, e := range idx.Entries {
			if e.Stage != index.Normal {
				return nil, plumbing.New(plumbing.KindMergeConflict, "unresolved conflicts remain in the index for "+e.Name)
			}
		}
		if opts.Message == "" {
			opts.Message = mergeMsg
		}
	}

	cfg, err := r.Config(ctx)
	if err != nil {
		return nil, err
	}
	fillSignature(&opts.Author, cfg)
	fillSignature(&opts.Committer, cfg)

	treeID, err := r.buildTreeFromIndex(ctx, idx)
	if err != nil {
		return nil, err
	}

	head, headRef, err := r.Head(ctx)
	var parents []hash.ObjectID
	if err == nil && head != nil {
		parents = append(parents, head)
	}
	if mergeInProgress {
		parents = append(parents, mergeTheirs)
	}

	commit, err := object.NewCommit(r.algo, treeID, parents, opts.Author, opts.Committer, opts.Message)
	if err != nil {
		return nil, err
	}
	if _, err := r.Objects.SetObject(ctx, commit); err != nil {
		return nil, err
	}

	if err := r.advanceBranchAfterCommit(ctx, headRef, head, commit.ID()); err != nil {
		return nil, err
	}

	if mergeInProgress {
		if err := r.Refs.ClearMergeState(ctx); err != nil {
			return nil, err
		}
	}

	return commit, nil
}

// advanceBranchAfterCommit moves the branch HEAD points to (creating it on
// the first commit of an unborn branch) to newID, failing with
// RefRaceLost if something else updated the branch concurrently.
func (r *Repository) advanceBranchAfterCommit(ctx context.Context, headRef *storer.Reference, prevCommit hash.ObjectID, newID hash.ObjectID) error {
	branchName := headRef.Name
	if headRef.Kind == storer.SymbolicReference {
		branchName = headRef.Ref
	}

	var old *storer.Reference
	if prevCommit != nil {
		old = storer.NewHashReference(branchName, prevCommit)
	}
	return r.Refs.CheckAndSetReference(ctx, storer.NewHashReference(branchName, newID), old)
}

// buildTreeFromIndex groups the flat, sorted index into a directory trie
// and recursively hashes trees bottom-up, per §4.5.
func (r *Repository) buildTreeFromIndex(ctx context.Context, idx *index.Index) (hash.ObjectID, error) {
	root := newTreeDirNode()
	for _, e := range idx.Entries {
		if e.Stage != index.Normal {
			continue
		}
		root.insert(strings.Split(e.Name, "/"), e)
	}
	return root.build(ctx, r)
}

type treeDirNode struct {
	files map[string]*index.Entry
	dirs  map[string]*treeDirNode
}

func newTreeDirNode() *treeDirNode {
	return &treeDirNode{files: map[string]*index.Entry{}, dirs: map[string]*treeDirNode{}}
}

func (n *treeDirNode) insert(parts []string, e *index.Entry) {
	if len(parts) == 1 {
		n.files[parts[0]] = e
		return
	}
	child, ok := n.dirs[parts[0]]
	if !ok {
		child = newTreeDirNode()
		n.dirs[parts[0]] = child
	}
	child.insert(parts[1:], e)
}

func (n *treeDirNode) build(ctx context.Context, r *Repository) (hash.ObjectID, error) {
	var entries []object.TreeEntry
	for name, e := range n.files {
		entries = append(entries, object.TreeEntry{Name: name, Mode: e.Mode, ID: e.Hash})
	}
	for name, child := range n.dirs {
		id, err := child.build(ctx, r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, ID: id})
	}

	object.SortEntries(entries)
	tree, err := object.NewTree(r.algo, entries)
	if err != nil {
		return nil, err
	}
	if _, err := r.Objects.SetObject(ctx, tree); err != nil {
		return nil, err
	}
	return tree.ID(), nil
}

func fillSignature(s *object.Signature, cfg *Config) {
	if s.Name == "" {
		s.Name = cfg.User.Name
	}
	if s.Email == "" {
		s.Email = cfg.User.Email
	}
	if s.When.IsZero() {
		s.When = time.Now()
		_, offset := s.When.Zone()
		s.Offset = offset / 60
	}
}
