package sideband

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/plumbing/format/pktline"
)

func TestDemuxerMultiplexed(t *testing.T) {
	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)

	var progress []string
	_, _ = w.WritePacket(append([]byte{byte(PackData)}, []byte("PACK1")...))
	_, _ = w.WritePacket(append([]byte{byte(Progress)}, []byte("50% done")...))
	_, _ = w.WritePacket(append([]byte{byte(PackData)}, []byte("PACK2")...))
	require.NoError(t, w.WriteFlush())

	d := NewDemuxer(&buf, true)
	d.Progress = func(s string) { progress = append(progress, s) }

	pack, err := d.ReadPack()
	require.NoError(t, err)
	assert.Equal(t, "PACK1PACK2", string(pack))
	require.Len(t, progress, 1)
	assert.Equal(t, "50% done", progress[0])
}

func TestDemuxerFatalError(t *testing.T) {
	var buf bytes.Buffer
	w := pktline.NewWriter(&buf)
	_, _ = w.WritePacket(append([]byte{byte(Error)}, []byte("access denied")...))
	require.NoError(t, w.WriteFlush())

	d := NewDemuxer(&buf, true)
	_, err := d.ReadPack()
	var fatal *ErrFatal
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "access denied", fatal.Message)
}

func TestDemuxerNotMultiplexed(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("raw pack bytes")

	d := NewDemuxer(&buf, false)
	pack, err := d.ReadPack()
	require.NoError(t, err)
	assert.Equal(t, "raw pack bytes", string(pack))
}
