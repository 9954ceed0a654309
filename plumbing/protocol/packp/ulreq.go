package packp

import (
	"fmt"
	"io"

	"github.com/nseba/gitcore/plumbing/format/pktline"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
)

// UploadPackRequest is the client's want/have negotiation body for
// git-upload-pack (§4.8). Depth, when non-zero, requests a shallow clone
// via "deepen <n>".
type UploadPackRequest struct {
	Wants        []hash.ObjectID
	Haves        []hash.ObjectID
	Capabilities *capability.List
	Depth        int
}

// Encode renders the request: the first want line carries the capability
// list, subsequent wants are bare, and the wants (plus any deepen line) end
// with a flush; the bare have lines follow, and the body ends with a "done"
// line, with no flush after it (§4.8).
func (r *UploadPackRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)

	for i, id := range r.Wants {
		line := fmt.Sprintf("want %s", id)
		if i == 0 && r.Capabilities != nil {
			line += " " + r.Capabilities.String()
		}
		if _, err := pw.WritePacketString(line + "\n"); err != nil {
			return err
		}
	}
	if r.Depth > 0 {
		if _, err := pw.WritePacketString(fmt.Sprintf("deepen %d\n", r.Depth)); err != nil {
			return err
		}
	}
	if err := pw.WriteFlush(); err != nil {
		return err
	}

	for _, id := range r.Haves {
		if _, err := pw.WritePacketString(fmt.Sprintf("have %s\n", id)); err != nil {
			return err
		}
	}
	if _, err := pw.WritePacketString("done\n"); err != nil {
		return err
	}
	return nil
}
