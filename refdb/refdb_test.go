package refdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/format/index"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/storer"
	"github.com/nseba/gitcore/storage/memory"
)

func TestSetAndGetHashReference(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("c1"))

	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/heads/main", id)))

	ref, err := db.Reference(ctx, "refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, storer.HashReference, ref.Kind)
	assert.True(t, ref.Target.Equal(id))
}

func TestSetAndGetSymbolicReference(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()

	require.NoError(t, db.SetReference(ctx, storer.NewSymbolicReference("HEAD", "refs/heads/main")))

	ref, err := db.Reference(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, storer.SymbolicReference, ref.Kind)
	assert.Equal(t, "refs/heads/main", ref.Ref)
}

func TestReferenceNotFound(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	_, err := db.Reference(context.Background(), "refs/heads/missing")
	require.Error(t, err)
	kind, ok := plumbing.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, plumbing.KindNotFound, kind)
}

func TestCheckAndSetReferenceCreateRequiresAbsence(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("c1"))

	require.NoError(t, db.CheckAndSetReference(ctx, storer.NewHashReference("refs/heads/main", id), nil))

	err := db.CheckAndSetReference(ctx, storer.NewHashReference("refs/heads/main", id), nil)
	require.Error(t, err)
	kind, ok := plumbing.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, plumbing.KindRefRaceLost, kind)
}

func TestCheckAndSetReferenceUpdateDetectsRace(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()
	id1 := hash.Of(hash.SHA1, hash.CommitObject, []byte("c1"))
	id2 := hash.Of(hash.SHA1, hash.CommitObject, []byte("c2"))
	id3 := hash.Of(hash.SHA1, hash.CommitObject, []byte("c3"))

	require.NoError(t, db.CheckAndSetReference(ctx, storer.NewHashReference("refs/heads/main", id1), nil))

	// a stale caller still believes the old value is id1 but someone else
	// already moved it to id2
	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/heads/main", id2)))

	old := storer.NewHashReference("refs/heads/main", id1)
	err := db.CheckAndSetReference(ctx, storer.NewHashReference("refs/heads/main", id3), old)
	require.Error(t, err)
	kind, ok := plumbing.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, plumbing.KindRefRaceLost, kind)
}

func TestIterReferencesFiltersByPrefix(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("c1"))

	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/heads/main", id)))
	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/heads/dev", id)))
	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/tags/v1", id)))

	refs, err := db.IterReferences(ctx, "refs/heads/")
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestResolveHEADFollowsSymbolic(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("c1"))

	require.NoError(t, db.SetReference(ctx, storer.NewSymbolicReference("HEAD", "refs/heads/main")))
	require.NoError(t, db.SetReference(ctx, storer.NewHashReference("refs/heads/main", id)))

	target, head, err := db.ResolveHEAD(ctx)
	require.NoError(t, err)
	assert.True(t, target.Equal(id))
	assert.Equal(t, storer.SymbolicReference, head.Kind)
}

func TestResolveHEADUnbornBranch(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()

	require.NoError(t, db.SetReference(ctx, storer.NewSymbolicReference("HEAD", "refs/heads/main")))

	target, head, err := db.ResolveHEAD(ctx)
	require.NoError(t, err)
	assert.Nil(t, target)
	assert.Equal(t, "refs/heads/main", head.Ref)
}

func TestIndexRoundTrip(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()

	idx := index.NewIndex()
	e := idx.Add("a.txt")
	e.Hash = hash.Of(hash.SHA1, hash.BlobObject, []byte("content"))
	idx.Sort()

	require.NoError(t, db.SetIndex(ctx, idx))

	loaded, err := db.Index(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "a.txt", loaded.Entries[0].Name)
}

func TestIndexDefaultsToEmpty(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	idx, err := db.Index(context.Background())
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestConfigRoundTrip(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	ctx := context.Background()

	require.NoError(t, db.SetConfig(ctx, []byte("[core]\n\tbare = true\n")))
	raw, err := db.Config(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "bare = true")
}

func TestConfigMissingReturnsNil(t *testing.T) {
	db := New(memory.New(), hash.SHA1)
	raw, err := db.Config(context.Background())
	require.NoError(t, err)
	assert.Nil(t, raw)
}
