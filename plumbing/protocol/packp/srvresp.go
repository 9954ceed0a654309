package packp

import (
	"io"
	"strings"

	"github.com/nseba/gitcore/plumbing/format/pktline"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
	"github.com/nseba/gitcore/plumbing/protocol/packp/sideband"
)

// ACKStatus distinguishes the flavors of acknowledgement multi_ack /
// multi_ack_detailed can carry, beyond a bare NAK.
type ACKStatus string

const (
	ACKNone     ACKStatus = ""
	ACKCommon   ACKStatus = "common"
	ACKReady    ACKStatus = "ready"
	ACKContinue ACKStatus = "continue"
)

// ACK is one negotiation acknowledgement line.
type ACK struct {
	ID     hash.ObjectID
	Status ACKStatus
}

// ServerResponse is the upload-pack negotiation result: zero or more ACK
// lines (or a bare NAK), followed by the packfile itself, optionally
// side-band multiplexed (§4.8).
type ServerResponse struct {
	ACKs []ACK
	Pack []byte
}

// DecodeServerResponse reads the ACK/NAK preamble then the packfile. caps
// decides both whether multi_ack[-detailed] lines are expected and
// whether the pack itself is side-band multiplexed. Which of
// multi_ack_detailed and multi_ack goes into caps is the caller's choice
// (Fetch prefers multi_ack_detailed when the server advertised both).
func DecodeServerResponse(r io.Reader, caps *capability.List) (*ServerResponse, error) {
	pr := pktline.NewReader(r)
	resp := &ServerResponse{}

	detailed := caps != nil && caps.Supports(capability.Capability("multi_ack_detailed"))
	multi := caps != nil && caps.Supports(capability.Capability("multi_ack"))

	done := false
	for !done {
		l, p, err := pr.ReadPacket()
		if err != nil {
			return nil, err
		}
		if l == pktline.Flush {
			continue
		}

		line := strings.TrimSpace(string(p))
		switch {
		case line == "NAK":
			done = true
		case strings.HasPrefix(line, "ACK"):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			id, _ := hash.FromHex(fields[1])
			status := ACKNone
			if len(fields) >= 3 {
				status = ACKStatus(fields[2])
			}
			resp.ACKs = append(resp.ACKs, ACK{ID: id, Status: status})
			if (!detailed && !multi) || status == ACKNone {
				done = true
			}
		default:
			done = true
		}
	}

	multiplexed := caps != nil && (caps.Supports(capability.Capability("side-band")) || caps.Supports(capability.Capability("side-band-64k")))
	demux := sideband.NewDemuxer(pr, multiplexed)
	pack, err := demux.ReadPack()
	if err != nil {
		return nil, err
	}
	resp.Pack = pack
	return resp, nil
}
