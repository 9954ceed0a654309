package gitcore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nseba/gitcore/cache"
	"github.com/nseba/gitcore/objectdb"
	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/object"
	"github.com/nseba/gitcore/plumbing/protocol/packp"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
	"github.com/nseba/gitcore/plumbing/storer"
	transport "github.com/nseba/gitcore/plumbing/transport/http"
	"github.com/nseba/gitcore/refdb"
	"github.com/nseba/gitcore/storage"
	"github.com/nseba/gitcore/vfs"
)

// FetchOptions configures a Fetch/Clone's negotiation.
type FetchOptions struct {
	// Depth requests a shallow transfer ("deepen <n>"); zero means full
	// history.
	Depth int
}

// FetchResult reports what a Fetch moved.
type FetchResult struct {
	UpdatedRefs map[string]hash.ObjectID
}

// newClient builds a transport.Client against remote's configured URL,
// resolving any scp-style host alias via the endpoint's ssh_config lookup
// (§6's consumed HTTP transport).
func (r *Repository) newClient(rt transport.RoundTripper, rawURL string, auth transport.AuthMethod) (*transport.Client, error) {
	ep, err := transport.ParseEndpoint(rawURL)
	if err != nil {
		return nil, plumbing.Wrap(plumbing.KindInvalidRef, "parsing remote url", err)
	}
	c := transport.NewClient(rt, ep)
	c.Auth = auth
	return c, nil
}

// Fetch discovers the remote's refs, negotiates a want/have exchange for
// whatever the caller doesn't already have, ingests the returned pack, and
// updates refs/remotes/<remote>/<name> (§4.8, supplemented feature:
// remote-tracking bookkeeping mirroring go-git's remote.go).
func (r *Repository) Fetch(ctx context.Context, rt transport.RoundTripper, remoteName string, auth transport.AuthMethod, opts FetchOptions) (*FetchResult, error) {
	cfg, err := r.Config(ctx)
	if err != nil {
		return nil, err
	}
	rc, ok := cfg.Remote(remoteName)
	if !ok {
		return nil, plumbing.New(plumbing.KindNotFound, "remote "+remoteName)
	}

	client, err := r.newClient(rt, rc.URL, auth)
	if err != nil {
		return nil, err
	}

	adv, err := client.Discover(ctx, "git-upload-pack")
	if err != nil {
		return nil, err
	}

	caps := capability.NewList()
	caps.Add(capability.ThinPack)
	caps.Add(capability.OFSDelta)
	if adv.Capabilities.Supports(capability.MultiACKDetailed) {
		caps.Add(capability.MultiACKDetailed)
	} else if adv.Capabilities.Supports(capability.MultiACK) {
		caps.Add(capability.MultiACK)
	}
	if adv.Capabilities.Supports(capability.SideBand64k) {
		caps.Add(capability.SideBand64k)
	} else if adv.Capabilities.Supports(capability.SideBand) {
		caps.Add(capability.SideBand)
	}

	req := &packp.UploadPackRequest{Capabilities: caps, Depth: opts.Depth}
	for name, id := range adv.References {
		if !strings.HasPrefix(name, "refs/heads/") && !strings.HasPrefix(name, "refs/tags/") {
			continue
		}
		if _, err := r.Objects.Object(ctx, 0, id); err == nil {
			req.Haves = append(req.Haves, id)
			continue
		}
		req.Wants = append(req.Wants, id)
	}
	if len(req.Wants) == 0 {
		return &FetchResult{UpdatedRefs: map[string]hash.ObjectID{}}, nil
	}

	resp, err := client.UploadPack(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := r.Objects.IngestPack(ctx, "fetch-"+remoteName, resp.Pack); err != nil {
		return nil, err
	}

	result := &FetchResult{UpdatedRefs: map[string]hash.ObjectID{}}
	for name, id := range adv.References {
		if !strings.HasPrefix(name, "refs/heads/") {
			continue
		}
		short := strings.TrimPrefix(name, "refs/heads/")
		tracking := fmt.Sprintf("refs/remotes/%s/%s", remoteName, short)
		if err := r.Refs.SetReference(ctx, storer.NewHashReference(tracking, id)); err != nil {
			return nil, err
		}
		result.UpdatedRefs[tracking] = id
	}

	return result, nil
}

// Pull fetches from remote and fast-forwards (or three-way merges) the
// current branch onto its updated remote-tracking ref.
func (r *Repository) Pull(ctx context.Context, rt transport.RoundTripper, remoteName string, auth transport.AuthMethod, opts FetchOptions) (*MergeResult, error) {
	branch, ok, err := r.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, plumbing.New(plumbing.KindInvalidRef, "pull requires HEAD on a branch")
	}

	if _, err := r.Fetch(ctx, rt, remoteName, auth, opts); err != nil {
		return nil, err
	}

	tracking := fmt.Sprintf("refs/remotes/%s/%s", remoteName, branch)
	return r.Merge(ctx, tracking, MergeOptions{})
}

// PushOptions configures a Push.
type PushOptions struct {
	// Force skips the non-fast-forward guard, sending the update even when
	// it isn't a descendant of the ref's current remote value.
	Force bool
}

// PushResult reports the per-ref outcome of a push.
type PushResult struct {
	Commands []packp.Command
	Report   *packp.ReportStatus
}

// Push sends the given local refs (by their short branch name) to remote,
// computing the pack of everything the remote doesn't already have
// (§4.8's receive-pack exchange).
func (r *Repository) Push(ctx context.Context, rt transport.RoundTripper, remoteName string, auth transport.AuthMethod, branches []string, opts PushOptions) (*PushResult, error) {
	cfg, err := r.Config(ctx)
	if err != nil {
		return nil, err
	}
	rc, ok := cfg.Remote(remoteName)
	if !ok {
		return nil, plumbing.New(plumbing.KindNotFound, "remote "+remoteName)
	}

	client, err := r.newClient(rt, rc.URL, auth)
	if err != nil {
		return nil, err
	}

	adv, err := client.Discover(ctx, "git-receive-pack")
	if err != nil {
		return nil, err
	}

	var commands []packp.Command
	var tips []hash.ObjectID
	for _, branch := range branches {
		localRef, err := r.Refs.Reference(ctx, "refs/heads/"+branch)
		if err != nil {
			return nil, err
		}
		newID := localRef.Target
		name := "refs/heads/" + branch
		oldID, hadRemote := adv.References[name]
		if !hadRemote {
			oldID = hash.Zero(r.algo)
		}
		if hadRemote && !opts.Force {
			ancestorSet, err := r.ancestors(ctx, newID)
			if err != nil {
				return nil, err
			}
			if !oldID.Equal(newID) && !ancestorSet.Contains(oldID.String()) {
				return nil, plumbing.New(plumbing.KindRefRaceLost, "non-fast-forward push to "+name)
			}
		}
		commands = append(commands, packp.Command{Name: name, Old: oldID, New: newID})
		tips = append(tips, newID)
	}
	if len(commands) == 0 {
		return &PushResult{}, nil
	}

	var remoteTips []hash.ObjectID
	for name, id := range adv.References {
		if strings.HasPrefix(name, "refs/heads/") || strings.HasPrefix(name, "refs/tags/") {
			remoteTips = append(remoteTips, id)
		}
	}
	haveIDs, err := r.Objects.ReachableFrom(ctx, remoteTips)
	if err != nil {
		haveIDs = nil
	}
	wantIDs, err := r.Objects.ReachableFrom(ctx, tips)
	if err != nil {
		return nil, err
	}

	already := make(map[string]bool, len(haveIDs))
	for _, id := range haveIDs {
		already[id.String()] = true
	}
	var toSend []hash.ObjectID
	for _, id := range wantIDs {
		if !already[id.String()] {
			toSend = append(toSend, id)
		}
	}
	pack, err := r.Objects.EncodePack(toSend)
	if err != nil {
		return nil, err
	}

	caps := capability.NewList()
	caps.Add(capability.ReportStatus)
	if adv.Capabilities.Supports(capability.OFSDelta) {
		caps.Add(capability.OFSDelta)
	}
	req := &packp.ReceivePackRequest{Commands: commands, Capabilities: caps}

	report, err := client.ReceivePack(ctx, req, bytes.NewReader(pack))
	if err != nil {
		return nil, err
	}
	if !report.UnpackOK {
		return nil, plumbing.New(plumbing.KindProtocolError, "remote unpack failed: "+report.UnpackError)
	}
	for _, c := range commands {
		if reason, failed := report.CommandErr[c.Name]; failed {
			return nil, plumbing.New(plumbing.KindProtocolError, fmt.Sprintf("remote rejected %s: %s", c.Name, reason))
		}
	}

	return &PushResult{Commands: commands, Report: report}, nil
}

// CloneOptions configures Clone.
type CloneOptions struct {
	RemoteName    string
	DefaultBranch string
	Depth         int
}

// Clone initializes a fresh repository over kv/fs and fetches url's
// default branch into it, checking it out (§8 scenario 6's counterpart).
func Clone(ctx context.Context, kv storage.KVStore, fs vfs.FS, rt transport.RoundTripper, rawURL string, auth transport.AuthMethod, opts CloneOptions) (*Repository, error) {
	if opts.RemoteName == "" {
		opts.RemoteName = "origin"
	}

	repo := &Repository{kv: kv, fs: fs, algo: hash.SHA1}
	repo.Objects = objectdb.New(kv, repo.algo, cache.DefaultMaxSize)
	repo.Refs = refdb.New(kv, repo.algo)

	client, err := repo.newClient(rt, rawURL, auth)
	if err != nil {
		return nil, err
	}
	adv, err := client.Discover(ctx, "git-upload-pack")
	if err != nil {
		return nil, err
	}

	defaultBranch := opts.DefaultBranch
	if defaultBranch == "" {
		if symref, ok := adv.Capabilities.Get(capability.SymRef); ok {
			if _, target, ok := strings.Cut(symref, ":"); ok {
				defaultBranch = strings.TrimPrefix(target, "refs/heads/")
			}
		}
	}
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}

	cfg := defaultConfig()
	cfg.SetRemote(RemoteConfig{Name: opts.RemoteName, URL: rawURL})
	raw, err := cfg.encode()
	if err != nil {
		return nil, err
	}
	if err := repo.Refs.SetConfig(ctx, raw); err != nil {
		return nil, err
	}

	head := storer.NewSymbolicReference("HEAD", "refs/heads/"+defaultBranch)
	if err := repo.Refs.SetReference(ctx, head); err != nil {
		return nil, err
	}

	if _, err := repo.Fetch(ctx, rt, opts.RemoteName, auth, FetchOptions{Depth: opts.Depth}); err != nil {
		return nil, err
	}

	tracking := fmt.Sprintf("refs/remotes/%s/%s", opts.RemoteName, defaultBranch)
	trackedRef, err := repo.Refs.Reference(ctx, tracking)
	if err != nil {
		return nil, err
	}
	if err := repo.Refs.SetReference(ctx, storer.NewHashReference("refs/heads/"+defaultBranch, trackedRef.Target)); err != nil {
		return nil, err
	}

	liveCfg, err := repo.Config(ctx)
	if err != nil {
		return nil, err
	}
	liveCfg.SetBranch(BranchConfig{Name: defaultBranch, Remote: opts.RemoteName, Merge: "refs/heads/" + defaultBranch})
	if err := repo.SetConfig(ctx, liveCfg); err != nil {
		return nil, err
	}

	if fs != nil {
		obj, err := repo.Objects.Object(ctx, hash.CommitObject, trackedRef.Target)
		if err != nil {
			return nil, err
		}
		commit := obj.(*object.Commit)
		if err := repo.syncWorktreeToTree(ctx, commit.Tree); err != nil {
			return nil, err
		}
	}

	return repo, nil
}
