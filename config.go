package gitcore

import (
	"bytes"
	"fmt"

	"dario.cat/mergo"

	gitconfig "github.com/nseba/gitcore/plumbing/format/config"
	"github.com/nseba/gitcore/plumbing/hash"
)

// Config mirrors the recognized keys from §3: core.*, user.*, remote.*,
// branch.*. Unknown keys round-trip untouched via the embedded raw config.
type Config struct {
	raw *gitconfig.Config

	HashAlgorithm hash.Algorithm
	Bare          bool

	User struct {
		Name  string
		Email string
	}
}

// RemoteConfig is the `remote.<name>.*` block.
type RemoteConfig struct {
	Name  string
	URL   string
	Fetch string
}

// BranchConfig is the `branch.<name>.*` upstream-tracking block.
type BranchConfig struct {
	Name   string
	Remote string
	Merge  string
}

func defaultConfig() *Config {
	c := &Config{raw: gitconfig.New(), HashAlgorithm: hash.SHA1}
	c.raw.Set("core", "", "hashAlgorithm", "sha1")
	c.raw.Set("core", "", "bare", "false")
	return c
}

func decodeConfig(raw []byte) (*Config, error) {
	parsed, err := gitconfig.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c := &Config{raw: parsed}

	algoStr, _ := parsed.Get("core", "", "hashAlgorithm")
	algo, err := hash.ParseAlgorithm(algoStr)
	if err != nil {
		return nil, err
	}
	c.HashAlgorithm = algo

	bareStr, _ := parsed.Get("core", "", "bare")
	c.Bare = bareStr == "true"

	c.User.Name, _ = parsed.Get("user", "", "name")
	c.User.Email, _ = parsed.Get("user", "", "email")

	return c, nil
}

func (c *Config) encode() ([]byte, error) {
	c.raw.Set("core", "", "hashAlgorithm", c.HashAlgorithm.String())
	c.raw.Set("core", "", "bare", boolString(c.Bare))
	if c.User.Name != "" {
		c.raw.Set("user", "", "name", c.User.Name)
	}
	if c.User.Email != "" {
		c.raw.Set("user", "", "email", c.User.Email)
	}

	var buf bytes.Buffer
	if err := gitconfig.Encode(&buf, c.raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Remote returns the configured remote block, if any. Unset fields (just
// "fetch" today) are filled from the conventional per-remote default
// rather than left blank, the way go-git's config.Unmarshal backfills a
// decoded struct's zero fields via mergo.Merge.
func (c *Config) Remote(name string) (RemoteConfig, bool) {
	url, ok := c.raw.Get("remote", name, "url")
	if !ok {
		return RemoteConfig{}, false
	}
	fetch, _ := c.raw.Get("remote", name, "fetch")
	rc := RemoteConfig{Name: name, URL: url, Fetch: fetch}

	defaults := RemoteConfig{Fetch: fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", name)}
	if err := mergo.Merge(&rc, defaults); err != nil {
		return RemoteConfig{}, false
	}
	return rc, true
}

// SetRemote writes a `remote.<name>.*` block.
func (c *Config) SetRemote(r RemoteConfig) {
	c.raw.Set("remote", r.Name, "url", r.URL)
	if r.Fetch != "" {
		c.raw.Set("remote", r.Name, "fetch", r.Fetch)
	}
}

// Remotes lists every configured remote name.
func (c *Config) Remotes() []string {
	return gitconfig.SortedSubsections(c.raw, "remote")
}

// Branch returns the configured upstream-tracking block for a branch.
func (c *Config) Branch(name string) (BranchConfig, bool) {
	remote, ok := c.raw.Get("branch", name, "remote")
	if !ok {
		return BranchConfig{}, false
	}
	merge, _ := c.raw.Get("branch", name, "merge")
	return BranchConfig{Name: name, Remote: remote, Merge: merge}, true
}

// SetBranch writes a `branch.<name>.*` upstream-tracking block.
func (c *Config) SetBranch(b BranchConfig) {
	c.raw.Set("branch", b.Name, "remote", b.Remote)
	c.raw.Set("branch", b.Name, "merge", b.Merge)
}
