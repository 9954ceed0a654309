// Package http implements the smart-HTTP wire transport (§4.8, §6). The
// core never opens a socket itself: it emits a Request descriptor
// {method, url, headers, body-stream} and consumes a Response descriptor
// {status, headers, body-stream} through the host-supplied RoundTripper,
// exactly the shape §6 assigns to the "HTTP transport (consumed)"
// collaborator.
package http

import (
	"context"
	"io"
)

// Request is the outgoing half of the host HTTP primitive's contract.
type Request struct {
	Method string
	URL    string
	Header map[string][]string
	Body   io.Reader
}

func (r *Request) header() map[string][]string {
	if r.Header == nil {
		r.Header = map[string][]string{}
	}
	return r.Header
}

func (r *Request) Set(key, value string) {
	r.header()[key] = []string{value}
}

func (r *Request) Add(key, value string) {
	h := r.header()
	h[key] = append(h[key], value)
}

// Response is the incoming half of the host HTTP primitive's contract.
// Body may be nil for a response with no payload.
type Response struct {
	StatusCode int
	Header     map[string][]string
	Body       io.ReadCloser
}

func (r *Response) get(key string) string {
	for k, vs := range r.Header {
		if equalFold(k, key) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// RoundTripper is implemented by the host: it performs one request/response
// exchange over whatever transport the sandbox exposes (fetch(), an
// embedder-provided bridge, and so on). The core depends only on this
// interface, never on net/http or net.Dial.
type RoundTripper interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}
