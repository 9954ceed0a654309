package gitcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/plumbing/storer"
)

// Conflict describes one path a merge could not resolve automatically
// (§4.7). For an edit/edit conflict, Merged holds the line-merged content
// with each conflicting region either wrapped in conflict markers (when
// MergeOptions.MarkConflicts is set) or taken from ours; it is nil when a
// side is absent. It is left for the caller to resolve and re-add.
type Conflict struct {
	Path         string
	Base         hash.ObjectID
	Ours         hash.ObjectID
	Theirs       hash.ObjectID
	Merged       []byte
	BaseAbsent   bool
	OursAbsent   bool
	TheirsAbsent bool
}

// MergeOptions configures Merge (§4.7's open question on conflict-marker
// behavior, resolved in SPEC_FULL.md: off by default).
type MergeOptions struct {
	MarkConflicts bool
	Author        object.Signature
	Committer     object.Signature
	Message       string
}

// MergeResult reports what Merge did.
type MergeResult struct {
	FastForward bool
	Commit      *object.Commit
	Conflicts   []Conflict
}

// ancestors returns the full set of commit-ids reachable from start,
// inclusive, keyed by hex string (§4.7 grounds merge-base on a reachability
// set rather than a full topological sort).
func (r *Repository) ancestors(ctx context.Context, start hash.ObjectID) (*hashset.Set, error) {
	visited := hashset.New()
	queue := []hash.ObjectID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		key := id.String()
		if visited.Contains(key) {
			continue
		}
		visited.Add(key)

		obj, err := r.Objects.Object(ctx, hash.CommitObject, id)
		if err != nil {
			return nil, err
		}
		c := obj.(*object.Commit)
		queue = append(queue, c.Parents...)
	}
	return visited, nil
}

// MergeBase finds a common ancestor of a and b by breadth-first search from
// a against b's full ancestor set. For the criss-cross merge case this
// returns the nearest ancestor found by level order, not necessarily every
// best common ancestor; good enough for the linear and simple-branch
// histories §8's scenarios exercise.
func (r *Repository) MergeBase(ctx context.Context, a, b hash.ObjectID) (hash.ObjectID, error) {
	bAncestors, err := r.ancestors(ctx, b)
	if err != nil {
		return nil, err
	}

	visited := hashset.New()
	queue := []hash.ObjectID{a}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		key := id.String()
		if visited.Contains(key) {
			continue
		}
		visited.Add(key)
		if bAncestors.Contains(key) {
			return id, nil
		}

		obj, err := r.Objects.Object(ctx, hash.CommitObject, id)
		if err != nil {
			return nil, err
		}
		c := obj.(*object.Commit)
		queue = append(queue, c.Parents...)
	}
	return nil, plumbing.New(plumbing.KindNotFound, "no common ancestor")
}

// Merge merges theirsRev into the current branch (§4.7, §8 scenarios 4-5):
// a fast-forward when the current branch is an ancestor of theirs, a
// no-op when theirs is already an ancestor of HEAD, or a three-way tree
// merge producing either a merge commit or a Conflicts report.
func (r *Repository) Merge(ctx context.Context, theirsRev string, opts MergeOptions) (*MergeResult, error) {
	ourID, headRef, err := r.Head(ctx)
	if err != nil {
		return nil, err
	}
	if ourID == nil {
		return nil, plumbing.New(plumbing.KindInvalidRef, "cannot merge into an unborn branch")
	}

	if _, _, inProgress, err := r.Refs.MergeState(ctx); err != nil {
		return nil, err
	} else if inProgress {
		return nil, plumbing.New(plumbing.KindMergeConflict, "a merge is already in progress; commit or MergeAbort it first")
	}

	theirID, err := r.resolveRevision(ctx, theirsRev)
	if err != nil {
		return nil, err
	}

	baseID, err := r.MergeBase(ctx, ourID, theirID)
	if err != nil {
		return nil, err
	}

	if baseID.Equal(theirID) {
		commitObj, err := r.Objects.Object(ctx, hash.CommitObject, ourID)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Commit: commitObj.(*object.Commit)}, nil
	}

	if baseID.Equal(ourID) {
		if err := r.fastForward(ctx, headRef, theirID); err != nil {
			return nil, err
		}
		commitObj, err := r.Objects.Object(ctx, hash.CommitObject, theirID)
		if err != nil {
			return nil, err
		}
		theirCommit := commitObj.(*object.Commit)
		if r.fs != nil {
			if err := r.syncWorktreeToTree(ctx, theirCommit.Tree); err != nil {
				return nil, err
			}
		}
		return &MergeResult{FastForward: true, Commit: theirCommit}, nil
	}

	return r.threeWayMerge(ctx, headRef, ourID, theirID, baseID, opts)
}

// fastForward moves the branch HEAD points to directly to id.
func (r *Repository) fastForward(ctx context.Context, headRef *storer.Reference, id hash.ObjectID) error {
	branchName := headRef.Name
	if headRef.Kind == storer.SymbolicReference {
		branchName = headRef.Ref
	}
	return r.Refs.SetReference(ctx, storer.NewHashReference(branchName, id))
}

func (r *Repository) threeWayMerge(ctx context.Context, headRef *storer.Reference, ourID, theirID, baseID hash.ObjectID, opts MergeOptions) (*MergeResult, error) {
	baseFiles, baseModes, err := r.treeFilesAndModes(ctx, baseID)
	if err != nil {
		return nil, err
	}
	ourFiles, ourModes, err := r.treeFilesAndModes(ctx, ourID)
	if err != nil {
		return nil, err
	}
	theirFiles, theirModes, err := r.treeFilesAndModes(ctx, theirID)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range baseFiles {
		paths[p] = true
	}
	for p := range ourFiles {
		paths[p] = true
	}
	for p := range theirFiles {
		paths[p] = true
	}

	merged := map[string]hash.ObjectID{}
	modes := map[string]filemode.FileMode{}
	var conflicts []Conflict

	for path := range paths {
		b, bok := baseFiles[path]
		o, ook := ourFiles[path]
		t, tok := theirFiles[path]

		switch {
		case ook && tok && o.Equal(t):
			merged[path] = o
			modes[path] = pickMode(ourModes, theirModes, path)
		case bok && o.Equal(b) && tok:
			merged[path] = t
			modes[path] = theirModes[path]
		case bok && t.Equal(b) && ook:
			merged[path] = o
			modes[path] = ourModes[path]
		case !bok && ook && !tok:
			merged[path] = o
			modes[path] = ourModes[path]
		case !bok && !ook && tok:
			merged[path] = t
			modes[path] = theirModes[path]
		case bok && !ook && !tok:
			// deleted on both sides
		case bok && !ook && tok && t.Equal(b):
			// deleted by us, unchanged by them
		case bok && ook && !tok && o.Equal(b):
			// deleted by them, unchanged by us
		default:
			c, resolved, resolvedID, resolvedMode, err := r.mergePath(ctx, path, b, bok, o, ook, t, tok, ourModes, theirModes, opts)
			if err != nil {
				return nil, err
			}
			if resolved {
				merged[path] = resolvedID
				modes[path] = resolvedMode
			} else {
				conflicts = append(conflicts, c)
			}
		}
	}

	if len(conflicts) > 0 {
		if err := r.writeConflictIndex(ctx, merged, modes, conflicts, baseModes, ourModes, theirModes); err != nil {
			return nil, err
		}
		message := opts.Message
		if message == "" {
			message = fmt.Sprintf("Merge %s", theirID)
		}
		if err := r.Refs.SetMergeState(ctx, theirID, message); err != nil {
			return nil, err
		}
		return &MergeResult{Conflicts: conflicts}, nil
	}

	treeID, err := r.buildTreeFromFlat(ctx, merged, modes)
	if err != nil {
		return nil, err
	}

	cfg, err := r.Config(ctx)
	if err != nil {
		return nil, err
	}
	fillSignature(&opts.Author, cfg)
	fillSignature(&opts.Committer, cfg)
	if opts.Message == "" {
		opts.Message = fmt.Sprintf("Merge %s", theirID)
	}

	commit, err := object.NewCommit(r.algo, treeID, []hash.ObjectID{ourID, theirID}, opts.Author, opts.Committer, opts.Message)
	if err != nil {
		return nil, err
	}
	if _, err := r.Objects.SetObject(ctx, commit); err != nil {
		return nil, err
	}
	if err := r.advanceBranchAfterCommit(ctx, headRef, ourID, commit.ID()); err != nil {
		return nil, err
	}

	if r.fs != nil {
		if err := r.syncWorktreeToTree(ctx, treeID); err != nil {
			// best effort: ref already moved, worktree sync failure is
			// reported but does not roll back the commit
			return &MergeResult{Commit: commit}, err
		}
	}

	return &MergeResult{Commit: commit}, nil
}

// MergeAbort restores the pre-merge state (§4.7 step 6): the index is
// reset to HEAD's tree at stage 0 throughout, the working tree (if any) is
// resynced to match, and the recorded merge-in-progress state is cleared.
// It fails with NotFound if no merge is in progress.
func (r *Repository) MergeAbort(ctx context.Context) error {
	_, _, inProgress, err := r.Refs.MergeState(ctx)
	if err != nil {
		return err
	}
	if !inProgress {
		return plumbing.New(plumbing.KindNotFound, "no merge in progress")
	}

	headID, _, err := r.Head(ctx)
	if err != nil {
		return err
	}
	if headID == nil {
		return plumbing.New(plumbing.KindInvalidRef, "cannot abort merge on an unborn branch")
	}

	files, modes, err := r.treeFilesAndModes(ctx, headID)
	if err != nil {
		return err
	}
	idx := index.NewIndex()
	for path, id := range files {
		e := idx.Add(path)
		e.Hash = id
		e.Mode = modes[path]
		e.Stage = index.Normal
	}
	idx.Sort()
	if err := r.Refs.SetIndex(ctx, idx); err != nil {
		return err
	}

	if r.fs != nil {
		obj, err := r.Objects.Object(ctx, hash.CommitObject, headID)
		if err != nil {
			return err
		}
		if err := r.syncWorktreeToTree(ctx, obj.(*object.Commit).Tree); err != nil {
			return err
		}
	}

	return r.Refs.ClearMergeState(ctx)
}

func pickMode(ourModes, theirModes map[string]filemode.FileMode, path string) filemode.FileMode {
	if m, ok := ourModes[path]; ok {
		return m
	}
	return theirModes[path]
}

// mergePath resolves a single conflicting path: an add/add or edit/edit
// case. Binary or unmergeable content yields an unresolved Conflict;
// textual content gets a line-based three-way merge.
func (r *Repository) mergePath(ctx context.Context, path string, baseID hash.ObjectID, baseOK bool, ourID hash.ObjectID, ourOK bool, theirID hash.ObjectID, theirOK bool, ourModes, theirModes map[string]filemode.FileMode, opts MergeOptions) (Conflict, bool, hash.ObjectID, filemode.FileMode, error) {
	conflict := Conflict{Path: path, Base: baseID, Ours: ourID, Theirs: theirID, BaseAbsent: !baseOK, OursAbsent: !ourOK, TheirsAbsent: !theirOK}

	if !ourOK || !theirOK {
		return conflict, false, nil, 0, nil
	}

	baseContent, err := r.blobContent(ctx, baseID, baseOK)
	if err != nil {
		return Conflict{}, false, nil, 0, err
	}
	ourContent, err := r.blobContent(ctx, ourID, true)
	if err != nil {
		return Conflict{}, false, nil, 0, err
	}
	theirContent, err := r.blobContent(ctx, theirID, true)
	if err != nil {
		return Conflict{}, false, nil, 0, err
	}

	merged, clean := lineMerge(baseContent, ourContent, theirContent, opts.MarkConflicts)
	if !clean {
		conflict.Merged = merged
		return conflict, false, nil, 0, nil
	}

	blob := object.NewBlob(r.algo, merged)
	if _, err := r.Objects.SetObject(ctx, blob); err != nil {
		return Conflict{}, false, nil, 0, err
	}
	return Conflict{}, true, blob.ID(), pickMode(ourModes, theirModes, path), nil
}

func (r *Repository) blobContent(ctx context.Context, id hash.ObjectID, ok bool) ([]byte, error) {
	if !ok {
		return nil, nil
	}
	obj, err := r.Objects.Object(ctx, hash.BlobObject, id)
	if err != nil {
		return nil, err
	}
	return obj.(*object.Blob).Content, nil
}

// lineMerge performs a line-granularity three-way merge grounded on
// sergi/go-diff's line-mode diffing: base->ours and base->theirs are each
// diffed independently, then the two change sets are replayed against the
// shared base. Overlapping edits to the same base region are reported as
// unresolved (clean=false) and, when markConflicts is true, rendered with
// conflict markers in the returned content.
func lineMerge(base, ours, theirs []byte, markConflicts bool) ([]byte, bool) {
	baseLines := splitLines(base)
	ourOps := diffOps(base, ours)
	theirOps := diffOps(base, theirs)

	var out []string
	clean := true
	cursor := 0
	oi, ti := 0, 0

	for cursor < len(baseLines) || oi < len(ourOps) || ti < len(theirOps) {
		var nextOur, nextTheir *lineOp
		if oi < len(ourOps) {
			nextOur = &ourOps[oi]
		}
		if ti < len(theirOps) {
			nextTheir = &theirOps[ti]
		}

		switch {
		case nextOur != nil && nextOur.start == cursor && nextTheir != nil && nextTheir.start == cursor:
			if stringsEqual(nextOur.newLines, nextTheir.newLines) {
				out = append(out, nextOur.newLines...)
			} else {
				clean = false
				if markConflicts {
					out = append(out, "<<<<<<< ours")
					out = append(out, nextOur.newLines...)
					out = append(out, "=======")
					out = append(out, nextTheir.newLines...)
					out = append(out, ">>>>>>> theirs")
				} else {
					out = append(out, nextOur.newLines...)
				}
			}
			end := nextOur.end
			if nextTheir.end > end {
				end = nextTheir.end
			}
			cursor = end
			oi++
			ti++
		case nextOur != nil && nextOur.start == cursor:
			out = append(out, nextOur.newLines...)
			cursor = nextOur.end
			oi++
		case nextTheir != nil && nextTheir.start == cursor:
			out = append(out, nextTheir.newLines...)
			cursor = nextTheir.end
			ti++
		case cursor < len(baseLines):
			out = append(out, baseLines[cursor])
			cursor++
		default:
			cursor = len(baseLines)
		}
	}

	return []byte(strings.Join(out, "\n")), clean
}

type lineOp struct {
	start, end int
	newLines   []string
}

// diffOps diffs base against other in line mode and returns the changed
// regions expressed as base-line-index ranges plus their replacement
// lines, using diffmatchpatch's line-hashing trick so large files diff at
// line rather than character granularity.
func diffOps(base, other []byte) []lineOp {
	dmp := diffmatchpatch.New()
	baseText := ensureTrailingNewline(string(base))
	otherText := ensureTrailingNewline(string(other))

	chars1, chars2, lines := dmp.DiffLinesToChars(baseText, otherText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var ops []lineOp
	cursor := 0
	i := 0
	for i < len(diffs) {
		d := diffs[i]
		if d.Type == diffmatchpatch.DiffEqual {
			cursor += countLines(d.Text)
			i++
			continue
		}

		start := cursor
		var newLines []string
		for i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual {
			d := diffs[i]
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				cursor += countLines(d.Text)
			case diffmatchpatch.DiffInsert:
				newLines = append(newLines, splitLines([]byte(d.Text))...)
			}
			i++
		}
		ops = append(ops, lineOp{start: start, end: cursor, newLines: newLines})
	}
	return ops
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n")
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(b), "\n")
	return strings.Split(s, "\n")
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *Repository) treeFilesAndModes(ctx context.Context, commitID hash.ObjectID) (map[string]hash.ObjectID, map[string]filemode.FileMode, error) {
	obj, err := r.Objects.Object(ctx, hash.CommitObject, commitID)
	if err != nil {
		return nil, nil, err
	}
	commit := obj.(*object.Commit)
	files := map[string]hash.ObjectID{}
	modes := map[string]filemode.FileMode{}
	if err := r.flattenTreeModes(ctx, commit.Tree, "", files, modes); err != nil {
		return nil, nil, err
	}
	return files, modes, nil
}

// writeConflictIndex rewrites the staging index after a conflicted merge
// (§4.7 step 6): cleanly-resolved paths get a normal stage-0 entry, and
// each conflicted path gets an entry per present side at stage 1 (base), 2
// (ours), and 3 (theirs) — a side absent from the conflict (add/add or
// delete/edit) contributes no entry at its slot.
func (r *Repository) writeConflictIndex(ctx context.Context, merged map[string]hash.ObjectID, modes map[string]filemode.FileMode, conflicts []Conflict, baseModes, ourModes, theirModes map[string]filemode.FileMode) error {
	idx := index.NewIndex()

	for path, id := range merged {
		e := idx.Add(path)
		e.Hash = id
		e.Mode = modes[path]
		e.Stage = index.Normal
	}

	for _, c := range conflicts {
		if !c.BaseAbsent {
			e := idx.Add(c.Path)
			e.Hash = c.Base
			e.Mode = baseModes[c.Path]
			e.Stage = index.AncestorMode
		}
		if !c.OursAbsent {
			e := idx.Add(c.Path)
			e.Hash = c.Ours
			e.Mode = ourModes[c.Path]
			e.Stage = index.OurMode
		}
		if !c.TheirsAbsent {
			e := idx.Add(c.Path)
			e.Hash = c.Theirs
			e.Mode = theirModes[c.Path]
			e.Stage = index.TheirMode
		}
	}

	idx.Sort()
	return r.Refs.SetIndex(ctx, idx)
}

func (r *Repository) buildTreeFromFlat(ctx context.Context, files map[string]hash.ObjectID, modes map[string]filemode.FileMode) (hash.ObjectID, error) {
	idx := index.NewIndex()
	for path, id := range files {
		e := idx.Add(path)
		e.Hash = id
		e.Mode = modes[path]
	}
	return r.buildTreeFromIndex(ctx, idx)
}
