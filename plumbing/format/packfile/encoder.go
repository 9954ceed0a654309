package packfile

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/nseba/gitcore/plumbing/hash"
)

// EncodeObject is one object handed to Encode: its kind and canonical
// payload (without the loose-object header).
type EncodeObject struct {
	Kind    hash.Kind
	Payload []byte
}

// Encode writes a non-delta packfile containing objs (§4.3 "Pack
// encoding"): objects sorted by kind then size descending, each entry
// deflated, followed by the trailer hash of everything written. Delta
// computation is not attempted — emitting every entry as non-delta is
// valid, merely larger.
func Encode(w io.Writer, algo hash.Algorithm, objs []EncodeObject) error {
	sorted := make([]EncodeObject, len(objs))
	copy(sorted, objs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind < sorted[j].Kind
		}
		return len(sorted[i].Payload) > len(sorted[j].Payload)
	})

	h := algo.NewHasher()
	tw := io.MultiWriter(w, h)

	if _, err := tw.Write(magic[:]); err != nil {
		return err
	}
	if err := writeUint32(tw, 2); err != nil {
		return err
	}
	if err := writeUint32(tw, uint32(len(sorted))); err != nil {
		return err
	}

	for _, o := range sorted {
		kind, err := packKind(o.Kind)
		if err != nil {
			return err
		}
		if err := encodeTypeAndSize(tw, kind, int64(len(o.Payload))); err != nil {
			return err
		}
		zw := zlib.NewWriter(tw)
		if _, err := zw.Write(o.Payload); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	}

	_, err := w.Write(h.Sum(nil))
	return err
}

func packKind(k hash.Kind) (int8, error) {
	switch k {
	case hash.CommitObject:
		return typeCommit, nil
	case hash.TreeObject:
		return typeTree, nil
	case hash.BlobObject:
		return typeBlob, nil
	case hash.TagObject:
		return typeTag, nil
	default:
		return 0, ErrInvalidPackfile
	}
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// VerifyTrailer re-hashes raw (everything but the last algo.Size() bytes)
// and compares it against the trailing checksum, per §4.3's round-trip
// property.
func VerifyTrailer(algo hash.Algorithm, raw []byte) error {
	n := algo.Size()
	if len(raw) < n {
		return ErrInvalidChecksum
	}
	body, trailer := raw[:len(raw)-n], raw[len(raw)-n:]
	h := algo.NewHasher()
	h.Write(body)
	if !bytes.Equal(h.Sum(nil), trailer) {
		return ErrInvalidChecksum
	}
	return nil
}
