package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	nethttp "net/http"

	"github.com/nseba/gitcore/plumbing"
	"github.com/nseba/gitcore/plumbing/protocol/packp"
)

// Client drives the smart-HTTP dance (discovery, upload-pack negotiation,
// receive-pack push) against one Endpoint over a host-supplied
// RoundTripper (§4.8, §6). It never touches net.Dial; Transport is the
// only seam to the outside world.
type Client struct {
	Transport RoundTripper
	Endpoint  *Endpoint
	Auth      AuthMethod
	UserAgent string
}

func NewClient(rt RoundTripper, ep *Endpoint) *Client {
	return &Client{Transport: rt, Endpoint: ep, UserAgent: "gitcore/1.0"}
}

// Discover performs GET .../info/refs?service=<service> (service is
// "git-upload-pack" or "git-receive-pack") and parses the advertisement.
func (c *Client) Discover(ctx context.Context, service string) (*packp.AdvRefs, error) {
	url := c.Endpoint.String() + "/info/refs?service=" + service
	resp, err := c.do(ctx, &Request{Method: "GET", URL: url})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	adv, err := packp.DecodeAdvRefs(resp.Body)
	if err != nil {
		return nil, plumbing.Wrap(plumbing.KindProtocolError, "decoding ref advertisement", err)
	}
	return adv, nil
}

// UploadPack posts a want/have negotiation body and returns the parsed
// ACK/NAK + packfile response (§4.8's upload-pack exchange).
func (c *Client) UploadPack(ctx context.Context, req *packp.UploadPackRequest) (*packp.ServerResponse, error) {
	var body bytes.Buffer
	if err := req.Encode(&body); err != nil {
		return nil, plumbing.Wrap(plumbing.KindProtocolError, "encoding upload-pack request", err)
	}

	resp, err := c.post(ctx, "git-upload-pack", &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	sresp, err := packp.DecodeServerResponse(resp.Body, req.Capabilities)
	if err != nil {
		return nil, plumbing.Wrap(plumbing.KindProtocolError, "decoding upload-pack response", err)
	}
	return sresp, nil
}

// ReceivePack posts the ref-update commands followed by pack, the
// push-side exchange, and returns the parsed per-command report.
func (c *Client) ReceivePack(ctx context.Context, req *packp.ReceivePackRequest, pack io.Reader) (*packp.ReportStatus, error) {
	var body bytes.Buffer
	if err := req.Encode(&body); err != nil {
		return nil, plumbing.Wrap(plumbing.KindProtocolError, "encoding receive-pack request", err)
	}
	if _, err := io.Copy(&body, pack); err != nil {
		return nil, plumbing.Wrap(plumbing.KindNetworkError, "streaming pack to receive-pack", err)
	}

	resp, err := c.post(ctx, "git-receive-pack", &body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rs, err := packp.DecodeReportStatus(resp.Body)
	if err != nil {
		return nil, plumbing.Wrap(plumbing.KindProtocolError, "decoding receive-pack report", err)
	}
	return rs, nil
}

func (c *Client) post(ctx context.Context, service string, body io.Reader) (*Response, error) {
	url := fmt.Sprintf("%s/%s", c.Endpoint.String(), service)
	req := &Request{Method: "POST", URL: url, Body: body}
	req.Set("Content-Type", fmt.Sprintf("application/x-%s-request", service))
	req.Set("Accept", fmt.Sprintf("application/x-%s-result", service))
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	req.Set("User-Agent", c.UserAgent)
	req.Set("Git-Protocol", "version=2")

	if c.Auth != nil {
		auth, err := resolve(c.Auth, req.URL)
		if err != nil {
			return nil, plumbing.Wrap(plumbing.KindAuthFailed, "resolving credentials", err)
		}
		c.Auth = auth
		auth.SetAuth(req)
	}

	resp, err := c.Transport.RoundTrip(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, plumbing.Wrap(plumbing.KindCancelled, "request cancelled", err)
		}
		return nil, plumbing.Wrap(plumbing.KindNetworkError, "performing request", err)
	}

	switch {
	case resp.StatusCode == nethttp.StatusUnauthorized:
		return nil, plumbing.New(plumbing.KindAuthRequired, "server returned 401")
	case resp.StatusCode == nethttp.StatusForbidden:
		return nil, plumbing.New(plumbing.KindAuthFailed, "server returned 403")
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, plumbing.New(plumbing.KindProtocolError, "unexpected redirect: "+resp.get("Location"))
	case resp.StatusCode >= 400:
		return nil, plumbing.New(plumbing.KindProtocolError, fmt.Sprintf("server returned status %d", resp.StatusCode))
	}

	return resp, nil
}
