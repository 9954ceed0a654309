// Package packp implements the git smart-HTTP wire protocol's pkt-line
// framed messages (§4.8): the advertised-refs preamble, the upload-pack
// want/have negotiation, its packfile response (optionally side-band
// multiplexed), the receive-pack update request, and its report-status
// reply.
package packp

import (
	"strings"

	"github.com/nseba/gitcore/plumbing/hash"
)

// parseHashList splits a space-separated list of hex object-ids.
func parseHashList(s string) []hash.ObjectID {
	var out []hash.ObjectID
	for _, tok := range strings.Fields(s) {
		if id, ok := hash.FromHex(tok); ok {
			out = append(out, id)
		}
	}
	return out
}
