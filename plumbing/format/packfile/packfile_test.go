package packfile

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/plumbing/hash"
)

func writeDeflated(t *testing.T, buf *bytes.Buffer, payload []byte) {
	t.Helper()
	zw := zlib.NewWriter(buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestEncodeParseRoundTrip(t *testing.T) {
	objs := []EncodeObject{
		{Kind: hash.BlobObject, Payload: []byte("hello world")},
		{Kind: hash.TreeObject, Payload: []byte("40000 dir\x00abcd")},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, hash.SHA1, objs))
	require.NoError(t, VerifyTrailer(hash.SHA1, buf.Bytes()))

	parsed, err := Parse(hash.SHA1, bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	require.Len(t, parsed.Objects, 2)

	var sawBlob, sawTree bool
	for _, o := range parsed.Objects {
		switch o.Kind {
		case typeBlob:
			sawBlob = true
			assert.Equal(t, "hello world", string(o.Payload))
		case typeTree:
			sawTree = true
		}
	}
	assert.True(t, sawBlob)
	assert.True(t, sawTree)
}

func TestVerifyTrailerRejectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, hash.SHA1, []EncodeObject{{Kind: hash.BlobObject, Payload: []byte("x")}}))

	corrupt := append([]byte(nil), buf.Bytes()...)
	corrupt[len(corrupt)-1] ^= 0xff
	assert.ErrorIs(t, VerifyTrailer(hash.SHA1, corrupt), ErrInvalidChecksum)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse(hash.SHA1, bytes.NewReader([]byte("NOTAPACK12345")), nil)
	assert.ErrorIs(t, err, ErrInvalidPackfile)
}

// buildCopyLiteralDelta builds a minimal delta stream that copies all of
// base then appends a literal suffix, exercising both instruction forms
// ApplyDelta understands.
func buildCopyLiteralDelta(t *testing.T, base []byte, suffix string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encodeDeltaSize(&buf, int64(len(base))))
	require.NoError(t, encodeDeltaSize(&buf, int64(len(base)+len(suffix))))

	// copy instruction: offset=0 (omitted -> 0), size=len(base) (1 byte in
	// bits 0x10), op byte = 0x80 | 0x10.
	buf.WriteByte(0x80 | 0x10)
	buf.WriteByte(byte(len(base)))

	// literal instruction: op byte is the literal length itself.
	buf.WriteByte(byte(len(suffix)))
	buf.WriteString(suffix)

	return buf.Bytes()
}

func TestApplyDeltaCopyAndLiteral(t *testing.T) {
	base := []byte("hello world")
	delta := buildCopyLiteralDelta(t, base, "!")

	out, err := ApplyDelta(base, delta)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", string(out))
}

func TestApplyDeltaRejectsSourceSizeMismatch(t *testing.T) {
	base := []byte("hello world")
	delta := buildCopyLiteralDelta(t, []byte("wrong size base"), "!")

	_, err := ApplyDelta(base, delta)
	assert.ErrorIs(t, err, ErrInvalidDelta)
}

// buildPackWithRefDelta hand-assembles a two-entry pack: a base blob
// followed by a ref-delta entry pointing at the base's id, exercising the
// parser's delta-resolution pass without going through Encode (which never
// emits deltas).
func buildPackWithRefDelta(t *testing.T, base []byte, suffix string) ([]byte, hash.ObjectID) {
	t.Helper()
	baseID := hash.Of(hash.SHA1, hash.BlobObject, base)
	delta := buildCopyLiteralDelta(t, base, suffix)

	var buf bytes.Buffer
	buf.Write(magic[:])
	require.NoError(t, writeUint32(&buf, 2))
	require.NoError(t, writeUint32(&buf, 2))

	require.NoError(t, encodeTypeAndSize(&buf, typeBlob, int64(len(base))))
	writeDeflated(t, &buf, base)

	require.NoError(t, encodeTypeAndSize(&buf, typeRefDelta, int64(len(delta))))
	buf.Write(baseID.Bytes())
	writeDeflated(t, &buf, delta)

	h := hash.SHA1.NewHasher()
	h.Write(buf.Bytes())
	buf.Write(h.Sum(nil))

	return buf.Bytes(), baseID
}

func TestParseResolvesRefDeltaInPack(t *testing.T) {
	base := []byte("hello world")
	raw, _ := buildPackWithRefDelta(t, base, "!")

	parsed, err := Parse(hash.SHA1, bytes.NewReader(raw), nil)
	require.NoError(t, err)
	require.Len(t, parsed.Objects, 2)

	var sawResolved bool
	for _, o := range parsed.Objects {
		if string(o.Payload) == "hello world!" {
			sawResolved = true
			assert.Equal(t, typeBlob, o.Kind)
		}
	}
	assert.True(t, sawResolved)
}

func TestParseResolvesThinPackRefDeltaViaResolver(t *testing.T) {
	base := []byte("thin pack base content")
	baseID := hash.Of(hash.SHA1, hash.BlobObject, base)
	delta := buildCopyLiteralDelta(t, base, " appended")

	// a pack containing only the delta entry; the base is supplied by the
	// resolver, simulating a thin pack completed against the local store.
	var buf bytes.Buffer
	buf.Write(magic[:])
	require.NoError(t, writeUint32(&buf, 2))
	require.NoError(t, writeUint32(&buf, 1))
	require.NoError(t, encodeTypeAndSize(&buf, typeRefDelta, int64(len(delta))))
	buf.Write(baseID.Bytes())
	writeDeflated(t, &buf, delta)
	h := hash.SHA1.NewHasher()
	h.Write(buf.Bytes())
	buf.Write(h.Sum(nil))

	resolver := func(id hash.ObjectID) ([]byte, bool) {
		if id.Equal(baseID) {
			return base, true
		}
		return nil, false
	}

	parsed, err := Parse(hash.SHA1, bytes.NewReader(buf.Bytes()), resolver)
	require.NoError(t, err)
	require.Len(t, parsed.Objects, 1)
	assert.Equal(t, "thin pack base content appended", string(parsed.Objects[0].Payload))
}

func TestParseRefDeltaMissingBaseErrors(t *testing.T) {
	base := []byte("unresolvable base")
	baseID := hash.Of(hash.SHA1, hash.BlobObject, base)
	delta := buildCopyLiteralDelta(t, base, "x")

	var buf bytes.Buffer
	buf.Write(magic[:])
	require.NoError(t, writeUint32(&buf, 2))
	require.NoError(t, writeUint32(&buf, 1))
	require.NoError(t, encodeTypeAndSize(&buf, typeRefDelta, int64(len(delta))))
	buf.Write(baseID.Bytes())
	writeDeflated(t, &buf, delta)
	h := hash.SHA1.NewHasher()
	h.Write(buf.Bytes())
	buf.Write(h.Sum(nil))

	_, err := Parse(hash.SHA1, bytes.NewReader(buf.Bytes()), nil)
	assert.ErrorIs(t, err, ErrMissingBase)
}
