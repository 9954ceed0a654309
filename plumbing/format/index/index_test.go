package index

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nseba/gitcore/plumbing/filemode"
	"github.com/nseba/gitcore/plumbing/hash"
)

func TestAddEntryThenSort(t *testing.T) {
	idx := NewIndex()
	idx.Add("b.txt")
	idx.Add("a.txt")
	idx.Sort()

	require.Len(t, idx.Entries, 2)
	assert.Equal(t, "a.txt", idx.Entries[0].Name)
	assert.Equal(t, "b.txt", idx.Entries[1].Name)
}

func TestEntryLookupAndRemove(t *testing.T) {
	idx := NewIndex()
	idx.Add("a.txt")

	e, ok := idx.Entry("a.txt")
	require.True(t, ok)
	assert.Equal(t, "a.txt", e.Name)

	idx.Remove("a.txt")
	_, ok = idx.Entry("a.txt")
	assert.False(t, ok)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	idx := NewIndex()
	e := idx.Add("dir/file.go")
	e.Mode = filemode.Regular
	e.Size = 42
	e.Hash = hash.Of(hash.SHA1, hash.BlobObject, []byte("content"))
	e.ModifiedAt = time.Unix(1700000000, 0).UTC()
	idx.Sort()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx, hash.SHA1))

	decoded, err := Decode(&buf, hash.SHA1)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 1)

	got := decoded.Entries[0]
	assert.Equal(t, "dir/file.go", got.Name)
	assert.Equal(t, filemode.Regular, got.Mode)
	assert.Equal(t, uint32(42), got.Size)
	assert.True(t, got.Hash.Equal(e.Hash))
	assert.True(t, got.ModifiedAt.Equal(e.ModifiedAt))
}

func TestEncodeDecodeMultipleEntriesWithStages(t *testing.T) {
	idx := NewIndex()
	a := idx.Add("conflict.txt")
	a.Stage = OurMode
	a.Hash = hash.Of(hash.SHA1, hash.BlobObject, []byte("ours"))
	b := idx.Add("conflict.txt")
	b.Stage = TheirMode
	b.Hash = hash.Of(hash.SHA1, hash.BlobObject, []byte("theirs"))
	idx.Sort()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx, hash.SHA1))

	decoded, err := Decode(&buf, hash.SHA1)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 2)
	assert.Equal(t, OurMode, decoded.Entries[0].Stage)
	assert.Equal(t, TheirMode, decoded.Entries[1].Stage)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("XXXX")), hash.SHA1)
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestDecodeRejectsCorruptChecksum(t *testing.T) {
	idx := NewIndex()
	idx.Add("a.txt")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx, hash.SHA1))

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xff

	_, err := Decode(bytes.NewReader(corrupt), hash.SHA1)
	assert.ErrorIs(t, err, ErrInvalidChecksum)
}

func TestEncodeSHA256Width(t *testing.T) {
	idx := NewIndex()
	e := idx.Add("a.txt")
	e.Hash = hash.Of(hash.SHA256, hash.BlobObject, []byte("content"))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx, hash.SHA256))

	decoded, err := Decode(&buf, hash.SHA256)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, 1)
	assert.True(t, decoded.Entries[0].Hash.Equal(e.Hash))
}
