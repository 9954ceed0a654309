package packfile

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeAndSizeRoundTrip(t *testing.T) {
	sizes := []int64{0, 15, 16, 4095, 1 << 20}
	for _, size := range sizes {
		var buf bytes.Buffer
		require.NoError(t, encodeTypeAndSize(&buf, typeBlob, size))

		kind, got, err := decodeTypeAndSize(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, typeBlob, kind)
		assert.Equal(t, size, got)
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	offsets := []int64{0, 127, 128, 16384, 1 << 30}
	for _, off := range offsets {
		var buf bytes.Buffer
		require.NoError(t, encodeOffset(&buf, off))

		got, err := decodeOffset(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, off, got)
	}
}

func TestDeltaSizeRoundTrip(t *testing.T) {
	sizes := []int64{0, 1, 127, 128, 1 << 20}
	for _, size := range sizes {
		var buf bytes.Buffer
		require.NoError(t, encodeDeltaSize(&buf, size))

		got, err := decodeDeltaSizeFromReader(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, size, got)
	}
}
