// Package sideband demultiplexes the git wire protocol's optional
// side-band channel (§4.8): pack data, human-readable progress, and a
// fatal-error channel share one pkt-line stream, each payload prefixed
// with a single band byte.
package sideband

import (
	"errors"
	"io"

	"github.com/nseba/gitcore/plumbing/format/pktline"
)

// Band identifies which of the three side-band channels a payload
// belongs to.
type Band byte

const (
	PackData Band = 1
	Progress Band = 2
	Error    Band = 3
)

// ErrFatal wraps a side-band-3 payload: the remote reported an error and
// the pack transfer is aborted.
type ErrFatal struct {
	Message string
}

func (e *ErrFatal) Error() string { return "remote error: " + e.Message }

// Demuxer reads pack data out of a side-band multiplexed pkt-line stream,
// delivering progress lines to the Progress callback as it goes. When the
// remote didn't advertise side-band at all, construct one with
// multiplexed=false and it degrades to reading the raw pack byte stream.
type Demuxer struct {
	r           *pktline.Reader
	multiplexed bool
	Progress    func(string)
}

func NewDemuxer(r io.Reader, multiplexed bool) *Demuxer {
	return &Demuxer{r: pktline.NewReader(r), multiplexed: multiplexed}
}

// ReadPack drains the remainder of the stream up to the terminating
// flush, returning the concatenated pack-data channel payload.
func (d *Demuxer) ReadPack() ([]byte, error) {
	if !d.multiplexed {
		return io.ReadAll(d.r)
	}

	var pack []byte
	for {
		l, p, err := d.r.ReadPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return pack, nil
			}
			return nil, err
		}
		if l == pktline.Flush {
			return pack, nil
		}
		if len(p) == 0 {
			continue
		}

		switch Band(p[0]) {
		case PackData:
			pack = append(pack, p[1:]...)
		case Progress:
			if d.Progress != nil {
				d.Progress(string(p[1:]))
			}
		case Error:
			return nil, &ErrFatal{Message: string(p[1:])}
		}
	}
}
