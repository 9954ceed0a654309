package packp

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/nseba/gitcore/plumbing/format/pktline"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
)

// AdvRefs is the discovery response: the service's advertised references
// plus the capability list embedded in the first ref line (§4.8).
type AdvRefs struct {
	Prefix       []string // "# service=..." lines preceding the ref list, if any
	References   map[string]hash.ObjectID
	Capabilities *capability.List
}

func NewAdvRefs() *AdvRefs {
	return &AdvRefs{References: map[string]hash.ObjectID{}, Capabilities: capability.NewList()}
}

// DecodeAdvRefs parses the reference advertisement: an optional
// "# service=<name>" pkt-line followed by a flush, then "<id> <name>"
// lines (the first carrying a NUL-separated capability list), terminated
// by a flush.
func DecodeAdvRefs(r io.Reader) (*AdvRefs, error) {
	pr := pktline.NewReader(r)
	out := NewAdvRefs()

	l, p, err := pr.ReadPacket()
	if err != nil {
		return nil, err
	}
	if l >= 0 && bytes.HasPrefix(p, []byte("# service=")) {
		out.Prefix = append(out.Prefix, strings.TrimSpace(string(p)))
		// a flush terminates the service announcement before the ref list
		if _, _, err := pr.ReadPacket(); err != nil {
			return nil, err
		}
		l, p, err = pr.ReadPacket()
		if err != nil {
			return nil, err
		}
	}

	first := true
	for l != pktline.Flush {
		if err != nil {
			return nil, err
		}
		line := strings.TrimRight(string(p), "\n")

		if first {
			if nul := strings.IndexByte(line, 0); nul >= 0 {
				out.Capabilities = capability.Parse(line[nul+1:])
				line = line[:nul]
			}
			first = false
		}

		sp := strings.IndexByte(line, ' ')
		if sp > 0 {
			idHex, name := line[:sp], line[sp+1:]
			if id, ok := hash.FromHex(idHex); ok && name != "capabilities^{}" {
				out.References[name] = id
			}
		}

		l, p, err = pr.ReadPacket()
	}

	return out, nil
}

// Encode renders the advertisement back onto w, used by a server-side
// implementation (§4.8's symmetry: gitcore can act as either endpoint).
func (a *AdvRefs) Encode(w io.Writer) error {
	pw := pktline.NewWriter(w)
	for _, line := range a.Prefix {
		if _, err := pw.WritePacketString(line + "\n"); err != nil {
			return err
		}
		if err := pw.WriteFlush(); err != nil {
			return err
		}
	}

	first := true
	for name, id := range a.References {
		line := fmt.Sprintf("%s %s", id, name)
		if first && a.Capabilities != nil {
			line += "\x00" + a.Capabilities.String()
			first = false
		}
		if _, err := pw.WritePacketString(line + "\n"); err != nil {
			return err
		}
	}
	return pw.WriteFlush()
}
