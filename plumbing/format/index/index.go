// Package index implements the staging-area codec described in §4.4: a
// signed "DIRC" header, a sequence of fixed/variable entries sorted by
// path, and a trailing content hash.
package index

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/hash"
)

// Stage distinguishes the normal staged slot from the three conflict slots
// a three-way merge populates.
type Stage int

const (
	Normal Stage = iota
	AncestorMode
	OurMode
	TheirMode
)

// Entry is one staged path: its metadata snapshot plus the blob it points
// at. Device/inode/uid/gid are informational only and may be zero when the
// host has no native filesystem to source them from.
type Entry struct {
	Name string // forward-slash path, relative to repository root

	CreatedAt  time.Time
	ModifiedAt time.Time
	Dev        uint32
	Inode      uint32
	Mode       filemode.FileMode
	UID        uint32
	GID        uint32
	Size       uint32

	Hash  hash.ObjectID
	Stage Stage
}

// Index is the in-memory staging area. Entries must stay sorted by path
// (§3 invariant 3); duplicates at the same stage are forbidden.
type Index struct {
	Version uint32
	Entries []*Entry
}

// NewIndex returns an empty index at codec version 2 (see SPEC_FULL.md's open-question resolution on
// width-dependent layout).
func NewIndex() *Index {
	return &Index{Version: 2}
}

// Add appends a new entry for path, without checking for an existing one;
// callers must do that check themselves per the invariant.
func (idx *Index) Add(path string) *Entry {
	e := &Entry{Name: filepath.ToSlash(path)}
	idx.Entries = append(idx.Entries, e)
	return e
}

// Entry returns the normal-stage entry for path, if any.
func (idx *Index) Entry(path string) (*Entry, bool) {
	path = filepath.ToSlash(path)
	for _, e := range idx.Entries {
		if e.Name == path && e.Stage == Normal {
			return e, true
		}
	}
	return nil, false
}

// Remove deletes every entry (all stages) for path.
func (idx *Index) Remove(path string) {
	path = filepath.ToSlash(path)
	out := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != path {
			out = append(out, e)
		}
	}
	idx.Entries = out
}

// Sort reorders entries by (path, stage), the canonical on-disk order.
func (idx *Index) Sort() {
	sortEntries(idx.Entries)
}

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Stage < b.Stage
	})
}

// under reports whether path lies under dir (or equals it).
func under(dir, path string) bool {
	if dir == "" || dir == "." {
		return true
	}
	return path == dir || strings.HasPrefix(path, dir+"/")
}
