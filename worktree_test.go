package gitcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gitcore "github.com/nseba/gitcore"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/storage/memory"
	"github.com/nseba/gitcore/vfs/memvfs"
)

func TestAddThenCommit(t *testing.T) {
	ctx := context.Background()
	fs := memvfs.New()
	repo, err := gitcore.Init(ctx, memory.New(), fs, gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile(ctx, "README.md", []byte("hello\n")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))

	commit, err := repo.Commit(ctx, gitcore.CommitOptions{
		Message: "initial commit",
		Author:  object.Signature{Name: "Ada", Email: "ada@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, commit.IsRoot())

	head, _, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.True(t, head.Equal(commit.ID()))
}

func TestCommitWithoutAuthorUsesConfig(t *testing.T) {
	ctx := context.Background()
	fs := memvfs.New()
	repo, err := gitcore.Init(ctx, memory.New(), fs, gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	cfg.User.Name = "Default User"
	cfg.User.Email = "default@example.com"
	require.NoError(t, repo.SetConfig(ctx, cfg))

	require.NoError(t, fs.WriteFile(ctx, "a.txt", []byte("a")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))

	commit, err := repo.Commit(ctx, gitcore.CommitOptions{Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "Default User", commit.Author.Name)
	assert.Equal(t, "default@example.com", commit.Author.Email)
}

func TestSecondCommitHasFirstAsParent(t *testing.T) {
	ctx := context.Background()
	fs := memvfs.New()
	repo, err := gitcore.Init(ctx, memory.New(), fs, gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)

	sig := object.Signature{Name: "Ada", Email: "ada@example.com"}

	require.NoError(t, fs.WriteFile(ctx, "a.txt", []byte("a")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))
	first, err := repo.Commit(ctx, gitcore.CommitOptions{Message: "first", Author: sig, Committer: sig})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile(ctx, "b.txt", []byte("b")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))
	second, err := repo.Commit(ctx, gitcore.CommitOptions{Message: "second", Author: sig, Committer: sig})
	require.NoError(t, err)

	require.Len(t, second.Parents, 1)
	assert.True(t, second.Parents[0].Equal(first.ID()))
}

func TestAddRespectsGitignore(t *testing.T) {
	ctx := context.Background()
	fs := memvfs.New()
	repo, err := gitcore.Init(ctx, memory.New(), fs, gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile(ctx, ".gitignore", []byte("*.log\n")))
	require.NoError(t, fs.WriteFile(ctx, "keep.txt", []byte("keep")))
	require.NoError(t, fs.WriteFile(ctx, "debug.log", []byte("noise")))

	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))

	statuses, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, gitcore.Added, statuses["keep.txt"])
	_, tracked := statuses["debug.log"]
	assert.False(t, tracked)
}

func TestAddNestedDirectories(t *testing.T) {
	ctx := context.Background()
	fs := memvfs.New()
	repo, err := gitcore.Init(ctx, memory.New(), fs, gitcore.InitOptions{HashAlgorithm: hash.SHA1})
	require.NoError(t, err)
	sig := object.Signature{Name: "Ada", Email: "ada@example.com"}

	require.NoError(t, fs.WriteFile(ctx, "README.md", []byte("root file")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))
	root, err := repo.Commit(ctx, gitcore.CommitOptions{Message: "root", Author: sig, Committer: sig})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile(ctx, "src/lib/util.go", []byte("package lib")))
	require.NoError(t, repo.Add(ctx, []string{"."}, gitcore.AddOptions{}))
	nested, err := repo.Commit(ctx, gitcore.CommitOptions{Message: "nested", Author: sig, Committer: sig})
	require.NoError(t, err)

	changes, err := repo.DiffTrees(ctx, root.ID(), nested.ID())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "src/lib/util.go", changes[0].Path)
	assert.Equal(t, gitcore.ChangeAdded, changes[0].Kind)
}
