package packp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/plumbing/format/pktline"
	"github.com/nseba/gitcore/plumbing/hash"
	"github.com/nseba/gitcore/plumbing/protocol/packp/capability"
)

func TestAdvRefsDecode(t *testing.T) {
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("payload"))

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	_, _ = w.WritePacketString("# service=git-upload-pack\n")
	require.NoError(t, w.WriteFlush())
	_, _ = w.WritePacketString(id.String() + " refs/heads/main\x00multi_ack_detailed side-band-64k\n")
	_, _ = w.WritePacketString(id.String() + " refs/heads/feature\n")
	require.NoError(t, w.WriteFlush())

	adv, err := DecodeAdvRefs(&buf)
	require.NoError(t, err)

	require.Len(t, adv.Prefix, 1)
	assert.Equal(t, "# service=git-upload-pack", adv.Prefix[0])

	require.Contains(t, adv.References, "refs/heads/main")
	assert.True(t, adv.References["refs/heads/main"].Equal(id))
	require.Contains(t, adv.References, "refs/heads/feature")

	assert.True(t, adv.Capabilities.Supports(capability.MultiACKDetailed))
	assert.True(t, adv.Capabilities.Supports(capability.SideBand64k))
}

func TestAdvRefsEncodeDecodeRoundTrip(t *testing.T) {
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("round-trip"))

	adv := NewAdvRefs()
	adv.References["refs/heads/main"] = id
	adv.Capabilities.Add(capability.ThinPack)

	var buf bytes.Buffer
	require.NoError(t, adv.Encode(&buf))

	decoded, err := DecodeAdvRefs(&buf)
	require.NoError(t, err)
	assert.True(t, decoded.References["refs/heads/main"].Equal(id))
	assert.True(t, decoded.Capabilities.Supports(capability.ThinPack))
}

func TestUploadPackRequestEncode(t *testing.T) {
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("want-me"))
	caps := capability.NewList()
	caps.Add(capability.OFSDelta)

	req := &UploadPackRequest{Wants: []hash.ObjectID{id}, Capabilities: caps, Depth: 3}
	var buf bytes.Buffer
	require.NoError(t, req.Encode(&buf))

	r := pktline.NewReader(&buf)
	_, p, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Contains(t, string(p), "want "+id.String())
	assert.Contains(t, string(p), "ofs-delta")

	_, p, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "deepen 3\n", string(p))

	l, _, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, pktline.Flush, l)

	l, p, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(p))
}

func TestReceivePackRequestEncode(t *testing.T) {
	oldID := hash.Zero(hash.SHA1)
	newID := hash.Of(hash.SHA1, hash.CommitObject, []byte("tip"))
	caps := capability.NewList()
	caps.Add(capability.ReportStatus)

	req := &ReceivePackRequest{
		Commands:     []Command{{Name: "refs/heads/main", Old: oldID, New: newID}},
		Capabilities: caps,
	}
	var buf bytes.Buffer
	require.NoError(t, req.Encode(&buf))

	r := pktline.NewReader(&buf)
	_, p, err := r.ReadPacket()
	require.NoError(t, err)
	line := string(p)
	assert.Contains(t, line, oldID.String())
	assert.Contains(t, line, newID.String())
	assert.Contains(t, line, "refs/heads/main")
	assert.Contains(t, line, "report-status")

	l, _, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, pktline.Flush, l)
}

func TestDecodeServerResponseMultiACK(t *testing.T) {
	id := hash.Of(hash.SHA1, hash.CommitObject, []byte("ack-me"))
	caps := capability.NewList()
	caps.Add(capability.MultiACKDetailed)

	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	_, _ = w.WritePacketString("ACK " + id.String() + " common\n")
	_, _ = w.WritePacketString("ACK " + id.String() + " ready\n")
	_, _ = w.WritePacketString("NAK\n")
	buf.WriteString("PACKDATA")

	resp, err := DecodeServerResponse(&buf, caps)
	require.NoError(t, err)
	require.Len(t, resp.ACKs, 2)
	assert.Equal(t, ACKCommon, resp.ACKs[0].Status)
	assert.Equal(t, ACKReady, resp.ACKs[1].Status)
	assert.Equal(t, "PACKDATA", string(resp.Pack))
}

func TestDecodeReportStatus(t *testing.T) {
	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	_, _ = w.WritePacketString("unpack ok\n")
	_, _ = w.WritePacketString("ok refs/heads/main\n")
	_, _ = w.WritePacketString("ng refs/heads/feature non-fast-forward\n")
	require.NoError(t, w.WriteFlush())

	rs, err := DecodeReportStatus(&buf)
	require.NoError(t, err)
	assert.True(t, rs.UnpackOK)
	assert.True(t, rs.CommandOK["refs/heads/main"])
	assert.Equal(t, "non-fast-forward", rs.CommandErr["refs/heads/feature"])
}
