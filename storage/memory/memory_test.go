package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/storage"
	"github.com/nseba/gitcore/storage/memory"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetReturnsACopyNotTheStoredSlice(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	got2, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got2))
}

func TestDeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "k"))

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, "refs/heads/main", []byte("a")))
	require.NoError(t, s.Put(ctx, "refs/tags/v1", []byte("b")))

	keys, err := s.List(ctx, "refs/heads/")
	require.NoError(t, err)
	assert.Equal(t, []string{"refs/heads/main"}, keys)
}

func TestClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Clear(ctx))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCompareAndSwapCreateRequiresAbsence(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CompareAndSwap(ctx, "k", nil, []byte("v1")))

	err := s.CompareAndSwap(ctx, "k", nil, []byte("v2"))
	assert.ErrorIs(t, err, storage.ErrCASMismatch)
}

func TestCompareAndSwapUpdateDetectsMismatch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CompareAndSwap(ctx, "k", nil, []byte("v1")))

	err := s.CompareAndSwap(ctx, "k", []byte("stale"), []byte("v2"))
	assert.ErrorIs(t, err, storage.ErrCASMismatch)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestCompareAndSwapUpdateSucceedsOnMatch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.CompareAndSwap(ctx, "k", nil, []byte("v1")))
	require.NoError(t, s.CompareAndSwap(ctx, "k", []byte("v1"), []byte("v2")))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}
