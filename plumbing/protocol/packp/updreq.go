package packp

import (
	"fmt"
	"io"

	"github.com/nseba/gitcore/plumbing/format/pktline"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
)

// Command is one ref update a receive-pack request asks the remote to
// perform: creation (Old all-zero), deletion (New all-zero), or a
// fast-forward/forced update.
type Command struct {
	Name     string
	Old, New hash.ObjectID
}

// ReceivePackRequest is the push-side update request (§4.8): a sequence
// of ref commands, capabilities on the first line, followed by the
// packfile containing every object the commands newly reference.
type ReceivePackRequest struct {
	Commands     []Command
	Capabilities *capability.List
}

// Encode writes the command list (without the trailing packfile, which
// the caller streams separately per the host HTTP primitive's body
// contract).
func (r *ReceivePackRequest) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	for i, c := range r.Commands {
		line := fmt.Sprintf("%s %s %s", c.Old, c.New, c.Name)
		if i == 0 && r.Capabilities != nil {
			line += "\x00" + r.Capabilities.String()
		}
		if _, err := pw.WritePacketString(line + "\n"); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}
