package object

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/hash"
)

// TreeEntry is one (mode, name, object-id) record inside a Tree.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	ID   hash.ObjectID
}

// Tree is an ordered directory snapshot. Entries must be sorted by the
// directory-slash rule (§3 invariant 2): a subdirectory name sorts as if a
// trailing "/" were appended, which is load-bearing for byte-identical
// hashes across implementations.
type Tree struct {
	id      hash.ObjectID
	Entries []TreeEntry
}

// sortKey returns the name used for ordering comparisons, per the
// directory-slash convention.
func sortKey(e TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// SortEntries reorders entries in place per the directory-slash rule.
func SortEntries(entries []TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
}

// NewTree builds and hashes a Tree from already-sorted entries. Callers
// that cannot guarantee order should call SortEntries first.
func NewTree(algo hash.Algorithm, entries []TreeEntry) (*Tree, error) {
	t := &Tree{Entries: entries}
	payload, err := t.Encode()
	if err != nil {
		return nil, err
	}
	t.id = hash.Of(algo, hash.TreeObject, payload)
	return t, nil
}

func (t *Tree) ID() hash.ObjectID { return t.id }
func (t *Tree) Kind() hash.Kind   { return hash.TreeObject }

// Encode serializes entries as "<mode> <name>\0<id-bytes>" concatenated in
// order. Order is NOT re-validated here; callers build entries pre-sorted
// via SortEntries so hashing and encoding always agree.
func (t *Tree) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(e.ID.Bytes())
	}
	return buf.Bytes(), nil
}

// DecodeTree parses a tree payload and validates the directory-slash sort
// invariant; a violation is a hard error (§3 invariant 2).
func DecodeTree(algo hash.Algorithm, payload []byte) (*Tree, error) {
	idSize := algo.Size()
	var entries []TreeEntry
	r := payload
	for len(r) > 0 {
		sp := bytes.IndexByte(r, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("malformed tree entry: missing mode separator")
		}
		mode, err := filemode.New(string(r[:sp]))
		if err != nil {
			return nil, err
		}
		r = r[sp+1:]
		nul := bytes.IndexByte(r, 0)
		if nul < 0 {
			return nil, fmt.Errorf("malformed tree entry: missing name terminator")
		}
		name := string(r[:nul])
		r = r[nul+1:]
		if len(r) < idSize {
			return nil, fmt.Errorf("malformed tree entry: truncated object id")
		}
		id, _ := hash.FromBytes(r[:idSize])
		r = r[idSize:]
		entries = append(entries, TreeEntry{Name: name, Mode: mode, ID: id})
	}

	for i := 1; i < len(entries); i++ {
		if sortKey(entries[i-1]) >= sortKey(entries[i]) {
			return nil, fmt.Errorf("malformed tree: entries not sorted by directory-slash rule at %q", entries[i].Name)
		}
	}

	t := &Tree{Entries: entries}
	t.id = hash.Of(algo, hash.TreeObject, payload)
	return t, nil
}

// Find returns the entry with the given name, if present.
func (t *Tree) Find(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}
