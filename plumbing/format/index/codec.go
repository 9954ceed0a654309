package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/hash"
)

var (
	signature = [4]byte{'D', 'I', 'R', 'C'}

	ErrMalformedSignature = errors.New("index: malformed DIRC signature")
	ErrUnsupportedVersion = errors.New("index: unsupported version")
	ErrInvalidChecksum    = errors.New("index: invalid trailing checksum")
)

const fixedHeaderLen = 40 // two 8-byte timestamps + dev + inode + mode + uid + gid + size

// Encode writes idx in the on-disk DIRC format for the given hash
// algorithm, including the trailing content hash. Entries must already be
// sorted (call idx.Sort first); this never reorders them, since doing so
// silently would hide a caller bug.
func Encode(w io.Writer, idx *Index, algo hash.Algorithm) error {
	h := algo.NewHasher()
	tw := io.MultiWriter(w, h)

	if _, err := tw.Write(signature[:]); err != nil {
		return err
	}
	version := idx.Version
	if version == 0 {
		version = 2
	}
	if err := writeUint32(tw, version); err != nil {
		return err
	}
	if err := writeUint32(tw, uint32(len(idx.Entries))); err != nil {
		return err
	}

	idSize := algo.Size()
	for _, e := range idx.Entries {
		if err := encodeEntry(tw, e, idSize); err != nil {
			return err
		}
	}

	_, err := w.Write(h.Sum(nil))
	return err
}

func encodeEntry(w io.Writer, e *Entry, idSize int) error {
	if err := writeTime(w, e.CreatedAt); err != nil {
		return err
	}
	if err := writeTime(w, e.ModifiedAt); err != nil {
		return err
	}
	for _, v := range []uint32{e.Dev, e.Inode, uint32(e.Mode), e.UID, e.GID, e.Size} {
		if err := writeUint32(w, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(e.Hash.Bytes()); err != nil {
		return err
	}

	nameLen := len(e.Name)
	flags := uint16(nameLen) & nameMask
	flags |= uint16(e.Stage&0x3) << 12
	if err := writeUint16(w, flags); err != nil {
		return err
	}

	if _, err := io.WriteString(w, e.Name); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}

	entryLen := fixedHeaderLen + idSize + 2 + nameLen + 1
	pad := (8 - entryLen%8) % 8
	if pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	return nil
}

const nameMask = 0x0fff

// Decode parses the DIRC format, verifying the trailing hash.
func Decode(r io.Reader, algo hash.Algorithm) (*Index, error) {
	h := algo.NewHasher()
	br := bufio.NewReader(io.TeeReader(r, h))

	var sig [4]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		return nil, err
	}
	if sig != signature {
		return nil, ErrMalformedSignature
	}

	version, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	if version < 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	count, err := readUint32(br)
	if err != nil {
		return nil, err
	}

	idx := &Index{Version: version}
	idSize := algo.Size()
	for i := uint32(0); i < count; i++ {
		e, err := decodeEntry(br, idSize)
		if err != nil {
			return nil, err
		}
		idx.Entries = append(idx.Entries, e)
	}

	sum := h.Sum(nil)
	var trailer [64]byte // oversized; we only read idSize bytes from it
	n, err := io.ReadFull(br, trailer[:idSize])
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if n != idSize || !bytes.Equal(trailer[:idSize], sum) {
		return nil, ErrInvalidChecksum
	}

	return idx, nil
}

func decodeEntry(r *bufio.Reader, idSize int) (*Entry, error) {
	e := &Entry{}
	var err error
	if e.CreatedAt, err = readTime(r); err != nil {
		return nil, err
	}
	if e.ModifiedAt, err = readTime(r); err != nil {
		return nil, err
	}

	fields := make([]uint32, 6)
	for i := range fields {
		if fields[i], err = readUint32(r); err != nil {
			return nil, err
		}
	}
	e.Dev, e.Inode, e.Mode = fields[0], fields[1], filemode.FileMode(fields[2])
	e.UID, e.GID, e.Size = fields[3], fields[4], fields[5]

	idBytes := make([]byte, idSize)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return nil, err
	}
	e.Hash, _ = hash.FromBytes(idBytes)

	flags, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	nameLen := int(flags & nameMask)
	e.Stage = Stage((flags >> 12) & 0x3)

	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, err
	}
	e.Name = string(nameBuf)

	entryLen := fixedHeaderLen + idSize + 2 + nameLen + 1
	pad := (8 - entryLen%8) % 8
	// the name's terminating NUL plus padding
	if _, err := io.ReadFull(r, make([]byte, 1+pad)); err != nil {
		return nil, err
	}

	return e, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeTime(w io.Writer, t time.Time) error {
	sec, nsec := int64(0), int64(0)
	if !t.IsZero() {
		sec, nsec = t.Unix(), int64(t.Nanosecond())
	}
	if err := writeUint32(w, uint32(sec)); err != nil {
		return err
	}
	return writeUint32(w, uint32(nsec))
}

func readTime(r io.Reader) (time.Time, error) {
	sec, err := readUint32(r)
	if err != nil {
		return time.Time{}, err
	}
	nsec, err := readUint32(r)
	if err != nil {
		return time.Time{}, err
	}
	if sec == 0 && nsec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(int64(sec), int64(nsec)).UTC(), nil
}
