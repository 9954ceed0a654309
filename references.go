package gitcore

import (
	"context"
	"strings"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/plumbing/storer"
)

// Branch creates refs/heads/<name> pointing at target. It fails with
// AlreadyExists if the branch is already present.
func (r *Repository) Branch(ctx context.Context, name string, target hash.ObjectID) error {
	full := "refs/heads/" + name
	if _, err := r.Refs.Reference(ctx, full); err == nil {
		return plumbing.New(plumbing.KindAlreadyExists, "branch "+name)
	}
	return r.Refs.CheckAndSetReference(ctx, storer.NewHashReference(full, target), nil)
}

// DeleteBranch removes refs/heads/<name>.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	return r.Refs.RemoveReference(ctx, "refs/heads/"+name)
}

// Branches lists every local branch.
func (r *Repository) Branches(ctx context.Context) ([]*storer.Reference, error) {
	return r.Refs.IterReferences(ctx, "refs/heads/")
}

// Tag creates a lightweight tag (refs/tags/<name> -> target) when msg is
// empty, or an annotated tag object (pointed at by the ref) otherwise.
func (r *Repository) Tag(ctx context.Context, name string, target hash.ObjectID, targetKind hash.Kind, tagger object.Signature, msg string) error {
	full := "refs/tags/" + name
	point := target

	if msg != "" {
		tagObj, err := object.NewTag(r.algo, target, targetKind, name, tagger, msg)
		if err != nil {
			return err
		}
		if _, err := r.Objects.SetObject(ctx, tagObj); err != nil {
			return err
		}
		point = tagObj.ID()
	}

	return r.Refs.CheckAndSetReference(ctx, storer.NewHashReference(full, point), nil)
}

// Tags lists every tag reference.
func (r *Repository) Tags(ctx context.Context) ([]*storer.Reference, error) {
	return r.Refs.IterReferences(ctx, "refs/tags/")
}

// RemoteTrackingRefs lists refs/remotes/<remote>/* for the given remote.
func (r *Repository) RemoteTrackingRefs(ctx context.Context, remote string) ([]*storer.Reference, error) {
	return r.Refs.IterReferences(ctx, "refs/remotes/"+remote+"/")
}

// resolveRevision resolves a branch name, tag name, remote-tracking name,
// "HEAD", or hex object-id to an object-id, trying refs/heads/, refs/tags/,
// refs/remotes/, then HEAD, then a literal hash.
func (r *Repository) resolveRevision(ctx context.Context, rev string) (hash.ObjectID, error) {
	for _, prefix := range []string{"refs/heads/", "refs/tags/", "refs/remotes/"} {
		if ref, err := r.Refs.Reference(ctx, prefix+rev); err == nil {
			if ref.Kind == storer.HashReference {
				return ref.Target, nil
			}
		}
	}
	if strings.EqualFold(rev, "HEAD") {
		id, _, err := r.Head(ctx)
		return id, err
	}
	if id, ok := hash.FromHex(rev); ok {
		return id, nil
	}
	return nil, plumbing.New(plumbing.KindInvalidRef, "cannot resolve revision "+rev)
}
