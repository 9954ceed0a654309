package http

import (
	"net/url"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// Endpoint is a parsed `remote.<name>.url` (§3): scheme, host, optional
// port, and repository path, mirroring go-git's transport.Endpoint shape
// but restricted to what the smart-HTTP client needs.
type Endpoint struct {
	Scheme string
	Host   string
	Port   string
	Path   string
}

// hostAliases is the reader used to resolve a host against the user's
// ssh_config aliases; nil disables alias resolution entirely. It is a
// package variable, the way go-git's ssh transport exposes
// DefaultSSHConfig, but unexported, so only code inside this package can
// replace it or set it to nil.
var hostAliases hostConfig = ssh_config.DefaultUserSettings

type hostConfig interface {
	Get(alias, key string) string
}

// ParseEndpoint parses a remote URL and resolves its host against any
// matching ssh_config `Host` alias (its HostName, and its Port), the same lookup
// go-git's ssh transport performs for scp-style remotes — useful even for
// an HTTP-only core when a corporate remote is configured under a short
// alias in ~/.ssh/config and fronted by an HTTP(S) git server on the
// resolved host.
func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	port := u.Port()

	if hostAliases != nil {
		alias := host
		if resolved := hostAliases.Get(alias, "HostName"); resolved != "" && resolved != alias {
			host = resolved
			if resolvedPort := hostAliases.Get(alias, "Port"); resolvedPort != "" {
				port = resolvedPort
			}
		}
	}

	return &Endpoint{
		Scheme: u.Scheme,
		Host:   host,
		Port:   port,
		Path:   strings.TrimSuffix(u.Path, "/"),
	}, nil
}

// String renders the endpoint's base URL (scheme://host[:port]/path),
// without a trailing slash, ready for a service-path suffix to be
// appended (/info/refs, /git-upload-pack, /git-receive-pack).
func (e *Endpoint) String() string {
	host := e.Host
	if e.Port != "" {
		host += ":" + e.Port
	}
	return e.Scheme + "://" + host + e.Path
}
