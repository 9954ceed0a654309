package gitcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gitcore "github.com/nseba/gitcore"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/storage/memory"
	"github.com/nseba/gitcore/vfs/memvfs"
)

func newConfigTestRepo(t *testing.T) (*gitcore.Repository, context.Context) {
	t.Helper()
	ctx := context.Background()
	repo, err := gitcore.Init(ctx, memory.New(), memvfs.New(), gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)
	return repo, ctx
}

func TestDefaultConfigEncodeDecodeRoundTrip(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, hash.SHA1, cfg.HashAlgorithm)
	assert.False(t, cfg.Bare)

	cfg.User.Name = "Ada Lovelace"
	cfg.User.Email = "ada@example.com"
	require.NoError(t, repo.SetConfig(ctx, cfg))

	reloaded, err := repo.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", reloaded.User.Name)
	assert.Equal(t, "ada@example.com", reloaded.User.Email)
}

func TestSetRemoteAndRemoteRoundTrip(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	cfg.SetRemote(gitcore.RemoteConfig{Name: "origin", URL: "https://example.com/repo.git"})
	require.NoError(t, repo.SetConfig(ctx, cfg))

	reloaded, err := repo.Config(ctx)
	require.NoError(t, err)
	rc, ok := reloaded.Remote("origin")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/repo.git", rc.URL)
	assert.Equal(t, "+refs/heads/*:refs/remotes/origin/*", rc.Fetch)
}

func TestRemoteMissingReturnsFalse(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	_, ok := cfg.Remote("nonexistent")
	assert.False(t, ok)
}

func TestRemotesListsConfiguredNames(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	cfg.SetRemote(gitcore.RemoteConfig{Name: "origin", URL: "https://example.com/a.git"})
	cfg.SetRemote(gitcore.RemoteConfig{Name: "upstream", URL: "https://example.com/b.git"})
	require.NoError(t, repo.SetConfig(ctx, cfg))

	reloaded, err := repo.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"origin", "upstream"}, reloaded.Remotes())
}

func TestSetBranchAndBranchRoundTrip(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	cfg.SetBranch(gitcore.BranchConfig{Name: "main", Remote: "origin", Merge: "refs/heads/main"})
	require.NoError(t, repo.SetConfig(ctx, cfg))

	reloaded, err := repo.Config(ctx)
	require.NoError(t, err)
	bc, ok := reloaded.Branch("main")
	require.True(t, ok)
	assert.Equal(t, "origin", bc.Remote)
	assert.Equal(t, "refs/heads/main", bc.Merge)
}

func TestBranchMissingReturnsFalse(t *testing.T) {
	repo, ctx := newConfigTestRepo(t)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	_, ok := cfg.Branch("nonexistent")
	assert.False(t, ok)
}
