// Package gitcore is the repository-operations layer (§4.5-4.8): init, add,
// commit, status, log, diff, branch, checkout, and merge, plus clone/fetch/
// pull/push over the wire protocol, all expressed over the abstract
// key/value storage contract and virtual filesystem collaborator described
// in §4.2 and §6.
package gitcore

import (
	"context"
	"fmt"

	"github.com/nseba/gitcore/cache"
	"github.com/nseba/gitcore/objectdb"
	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/storer"
	"github.com/nseba/gitcore/refdb"
	"github.com/nseba/gitcore/storage"
	"github.com/nseba/gitcore/vfs"
)

const DefaultBranch = "main"

// InitOptions configures repository creation.
type InitOptions struct {
	DefaultBranch string
	Bare          bool
	HashAlgorithm hash.Algorithm
}

// Repository is a single repository handle: its storage adapter, hash
// width, and the object cache it privately owns (§5, §6: concurrent
// handles over the same backend are not supported).
type Repository struct {
	kv   storage.KVStore
	fs   vfs.FS
	algo hash.Algorithm

	Objects *objectdb.DB
	Refs    *refdb.DB
}

// Init creates a fresh repository over kv (§8 scenario 1). If fs is nil the
// repository has no working tree: Add fails with a NotFound error and Status
// reports only HEAD/index differences; bare repositories legitimately pass nil.
func Init(ctx context.Context, kv storage.KVStore, fs vfs.FS, opts InitOptions) (*Repository, error) {
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = DefaultBranch
	}

	repo := &Repository{kv: kv, fs: fs, algo: opts.HashAlgorithm}
	repo.Objects = objectdb.New(kv, repo.algo, cache.DefaultMaxSize)
	repo.Refs = refdb.New(kv, repo.algo)

	cfg := defaultConfig()
	cfg.HashAlgorithm = repo.algo
	cfg.Bare = opts.Bare
	raw, err := cfg.encode()
	if err != nil {
		return nil, err
	}
	if err := repo.Refs.SetConfig(ctx, raw); err != nil {
		return nil, err
	}

	head := storer.NewSymbolicReference("HEAD", "refs/heads/"+opts.DefaultBranch)
	if err := repo.Refs.SetReference(ctx, head); err != nil {
		return nil, err
	}

	return repo, nil
}

// Open loads an existing repository, reading its config to learn the hash
// algorithm it was created with.
func Open(ctx context.Context, kv storage.KVStore, fs vfs.FS) (*Repository, error) {
	probe := refdb.New(kv, hash.SHA1)
	raw, err := probe.Config(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, plumbing.New(plumbing.KindNotFound, "repository config")
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, err
	}

	repo := &Repository{kv: kv, fs: fs, algo: cfg.HashAlgorithm}
	repo.Objects = objectdb.New(kv, repo.algo, cache.DefaultMaxSize)
	repo.Refs = refdb.New(kv, repo.algo)
	return repo, nil
}

// Config loads the repository's configuration record.
func (r *Repository) Config(ctx context.Context) (*Config, error) {
	raw, err := r.Refs.Config(ctx)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return defaultConfig(), nil
	}
	return decodeConfig(raw)
}

// SetConfig persists cfg.
func (r *Repository) SetConfig(ctx context.Context, cfg *Config) error {
	raw, err := cfg.encode()
	if err != nil {
		return err
	}
	return r.Refs.SetConfig(ctx, raw)
}

// Algorithm returns the repository's configured hash algorithm.
func (r *Repository) Algorithm() hash.Algorithm { return r.algo }

// Head resolves HEAD to its object-id and returns the HEAD reference itself
// (a hash reference when detached, a symbolic one naming the branch
// otherwise).
func (r *Repository) Head(ctx context.Context) (hash.ObjectID, *storer.Reference, error) {
	return r.Refs.ResolveHEAD(ctx)
}

// CurrentBranch returns the short branch name HEAD points to, or ok=false
// when detached.
func (r *Repository) CurrentBranch(ctx context.Context) (name string, ok bool, err error) {
	head, err := r.Refs.Reference(ctx, "HEAD")
	if err != nil {
		return "", false, err
	}
	if head.Kind != storer.SymbolicReference {
		return "", false, nil
	}
	const prefix = "refs/heads/"
	if len(head.Ref) > len(prefix) && head.Ref[:len(prefix)] == prefix {
		return head.Ref[len(prefix):], true, nil
	}
	return "", false, fmt.Errorf("HEAD points to non-branch ref %q", head.Ref)
}
