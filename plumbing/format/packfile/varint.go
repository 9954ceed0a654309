package packfile

import (
	"bufio"
	"io"
)

// encodeTypeAndSize writes a pack entry's type/size header: the low four
// bits of the first byte hold the low 4 bits of size, bits 4-6 hold the
// type, and the MSB signals a continuation byte; subsequent bytes each
// carry 7 more size bits, MSB-continues.
func encodeTypeAndSize(w io.Writer, kind int8, size int64) error {
	first := byte(kind<<4) | byte(size&0x0f)
	size >>= 4
	if size != 0 {
		first |= 0x80
	}
	if _, err := w.Write([]byte{first}); err != nil {
		return err
	}
	for size != 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size != 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
	}
	return nil
}

// decodeTypeAndSize is the inverse of encodeTypeAndSize.
func decodeTypeAndSize(r *bufio.Reader) (kind int8, size int64, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	kind = int8((b >> 4) & 0x07)
	size = int64(b & 0x0f)
	shift := uint(4)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		size |= int64(b&0x7f) << shift
		shift += 7
	}
	return kind, size, nil
}

// encodeOffset writes the base offset of an ofs-delta entry, a big-endian
// variable length integer with a "+1" continuation bias per the pack
// format (see §4.3): c = b & 0x7F; while continuing, c = ((c+1)<<7)|next7.
func encodeOffset(w io.Writer, offset int64) error {
	var buf [10]byte
	i := len(buf) - 1
	buf[i] = byte(offset & 0x7f)
	offset >>= 7
	for offset != 0 {
		offset--
		i--
		buf[i] = 0x80 | byte(offset&0x7f)
		offset >>= 7
	}
	_, err := w.Write(buf[i:])
	return err
}

// decodeOffset is the inverse of encodeOffset, returning a negative-distance
// offset relative to the entry's own position in the pack.
func decodeOffset(r *bufio.Reader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	c := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		c = ((c + 1) << 7) | int64(b&0x7f)
	}
	return c, nil
}

// encodeDeltaSize writes the source/target size varints at the head of a
// delta payload: 7 bits per byte, little-endian, MSB-continues.
func encodeDeltaSize(w io.Writer, size int64) error {
	for {
		b := byte(size & 0x7f)
		size >>= 7
		if size != 0 {
			b |= 0x80
			if _, err := w.Write([]byte{b}); err != nil {
				return err
			}
			continue
		}
		_, err := w.Write([]byte{b})
		return err
	}
}

func decodeDeltaSizeFromReader(r io.ByteReader) (int64, error) {
	var size int64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		size |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			return size, nil
		}
		shift += 7
	}
}
