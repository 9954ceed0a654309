package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAddSupportsGet(t *testing.T) {
	l := NewList()
	l.Add(MultiACKDetailed)
	l.Add(Agent, "gitcore/1.0")

	assert.True(t, l.Supports(MultiACKDetailed))
	assert.False(t, l.Supports(ThinPack))

	v, ok := l.Get(Agent)
	require.True(t, ok)
	assert.Equal(t, "gitcore/1.0", v)
}

func TestStringPreservesOrderAndValues(t *testing.T) {
	l := NewList()
	l.Add(SideBand64k)
	l.Add(Agent, "gitcore/1.0")
	assert.Equal(t, "side-band-64k agent=gitcore/1.0", l.String())
}

func TestParseRoundTrip(t *testing.T) {
	l := Parse("multi_ack_detailed side-band-64k agent=gitcore/1.0 thin-pack")
	assert.True(t, l.Supports(MultiACKDetailed))
	assert.True(t, l.Supports(SideBand64k))
	assert.True(t, l.Supports(ThinPack))

	v, ok := l.Get(Agent)
	require.True(t, ok)
	assert.Equal(t, "gitcore/1.0", v)
}

func TestParseEmptyString(t *testing.T) {
	l := Parse("")
	assert.False(t, l.Supports(ThinPack))
	assert.Equal(t, "", l.String())
}
