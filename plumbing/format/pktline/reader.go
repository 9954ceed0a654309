package pktline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNegativeCount = errors.New("negative count")

// Reader reads a stream of pkt-lines, supporting a peek ahead of the next
// packet's framing so callers can distinguish a flush from data without
// consuming it.
type Reader struct {
	r   io.Reader
	buf []byte
}

func NewReader(r io.Reader) *Reader {
	if rdr, ok := r.(*Reader); ok {
		return rdr
	}
	return &Reader{r: r}
}

func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeCount
	}
	if n <= len(r.buf) {
		return r.buf[:n], nil
	}
	readBuf := make([]byte, n-len(r.buf))
	readN, err := io.ReadFull(r.r, readBuf)
	r.buf = append(r.buf, readBuf[:readN]...)
	if err != nil {
		return r.buf, err
	}
	return r.buf, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	if len(r.buf) > 0 {
		n = copy(p, r.buf)
		r.buf = r.buf[n:]
	}
	if n < len(p) {
		nr, err := r.r.Read(p[n:])
		n += nr
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadPacket reads one pkt-line. For a flush/delim/response-end marker it
// returns the marker constant with a nil payload; otherwise it returns the
// total on-wire length and the payload bytes.
func (r *Reader) ReadPacket() (l int, p []byte, err error) {
	var pktlen [lenSize]byte
	n, err := io.ReadFull(r, pktlen[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Err, nil, fmt.Errorf("%w: %d", ErrInvalidPktLen, n)
		}
		return Err, nil, err
	}

	switch n := pktlen; {
	case string(n[:]) == "0000":
		return Flush, nil, nil
	case string(n[:]) == "0001":
		return Delim, nil, nil
	case string(n[:]) == "0002":
		return ResponseEnd, nil, nil
	}

	length, err := ParseLength(pktlen[:])
	if err != nil {
		return Err, nil, err
	}

	if length == 0 {
		return lenSize, Empty, nil
	}

	data := make([]byte, length)
	dn, err := io.ReadFull(r, data)
	if err != nil {
		return Err, nil, err
	}

	buf := data[:dn]
	if bytes.HasPrefix(buf, errPrefix) {
		err = &ErrorLine{Text: strings.TrimSpace(string(buf[len(errPrefix):]))}
	}

	return length + lenSize, buf, err
}

// ReadAll drains pkt-lines up to and including the next flush, returning the
// collected payloads. Used by callers that want a whole section (e.g. the
// capability-bearing ref advertisement) at once.
func (r *Reader) ReadAll() ([][]byte, error) {
	var lines [][]byte
	for {
		l, p, err := r.ReadPacket()
		if err != nil {
			return lines, err
		}
		if l == Flush {
			return lines, nil
		}
		if l >= 0 {
			cp := make([]byte, len(p))
			copy(cp, p)
			lines = append(lines, cp)
		}
	}
}
