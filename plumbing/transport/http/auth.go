package http

import (
	"encoding/base64"
)

// AuthMethod injects credentials into an outgoing Request (§6's auth
// descriptor injection), grounded on go-git's transport.AuthMethod /
// http.BasicAuth split between a Name/String identity and a SetAuth side
// effect.
type AuthMethod interface {
	Name() string
	SetAuth(req *Request)
}

// BasicAuth sends a plain HTTP Basic Authorization header.
type BasicAuth struct {
	Username string
	Password string
}

func (a *BasicAuth) Name() string { return "basic" }

func (a *BasicAuth) SetAuth(req *Request) {
	token := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	req.Set("Authorization", "Basic "+token)
}

// TokenAuth sends a bearer token, the shape GitHub/GitLab/Bitbucket app
// tokens and PATs are presented as.
type TokenAuth struct {
	Token string
}

func (a *TokenAuth) Name() string { return "bearer" }

func (a *TokenAuth) SetAuth(req *Request) {
	req.Set("Authorization", "Bearer "+a.Token)
}

// HeaderAuth lets the caller stage arbitrary auth headers itself (a signed
// URL, a proxy cookie, mTLS done at the host layer) without the transport
// needing to understand the scheme.
type HeaderAuth map[string]string

func (a HeaderAuth) Name() string { return "header" }

func (a HeaderAuth) SetAuth(req *Request) {
	for k, v := range a {
		req.Set(k, v)
	}
}

// CallbackAuth defers credential selection to Fn, which Client calls before
// sending its first request; the AuthMethod Fn returns then replaces the
// CallbackAuth on the Client. A 401 response is returned as AuthRequired:
// Client neither calls Fn again nor retries the request. Fn receives the
// request URL so a single callback can serve multiple remotes.
type CallbackAuth struct {
	Fn func(rawURL string) (AuthMethod, error)
}

func (a *CallbackAuth) Name() string { return "callback" }

func (a *CallbackAuth) SetAuth(req *Request) {
	// resolved by Client before its first request; SetAuth itself is a no-op so a
	// CallbackAuth can be passed around before its first use like any
	// other AuthMethod.
}

// resolve runs a CallbackAuth's Fn, if any, for the given URL; other
// AuthMethod values are returned unchanged.
func resolve(auth AuthMethod, rawURL string) (AuthMethod, error) {
	cb, ok := auth.(*CallbackAuth)
	if !ok {
		return auth, nil
	}
	if cb.Fn == nil {
		return auth, nil
	}
	return cb.Fn(rawURL)
}
