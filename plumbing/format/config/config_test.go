package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBasic(t *testing.T) {
	src := `
[core]
	bare = true
	repositoryformatversion = 0
[remote "origin"]
	url = https://example.com/repo.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`
	c, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	v, ok := c.Get("core", "", "bare")
	require.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok = c.Get("remote", "origin", "url")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/repo.git", v)

	assert.Equal(t, []string{"origin"}, c.Subsections("remote"))
}

func TestDecodeRejectsOptionOutsideSection(t *testing.T) {
	_, err := Decode(strings.NewReader("key = value\n"))
	assert.Error(t, err)
}

func TestDecodeIgnoresCommentsAndBlankLines(t *testing.T) {
	src := "; a comment\n# another\n\n[core]\n\tbare = true\n"
	c, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	v, ok := c.Get("core", "", "bare")
	require.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestKeyWithNoValueDefaultsToTrue(t *testing.T) {
	c, err := Decode(strings.NewReader("[core]\n\tbare\n"))
	require.NoError(t, err)
	v, ok := c.Get("core", "", "bare")
	require.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestQuotedValueUnescaped(t *testing.T) {
	c, err := Decode(strings.NewReader(`[user]
	name = "Jane \"JD\" Doe"
`))
	require.NoError(t, err)
	v, ok := c.Get("user", "", "name")
	require.True(t, ok)
	assert.Equal(t, `Jane "JD" Doe`, v)
}

func TestSetReplacesExistingKey(t *testing.T) {
	c := New()
	c.Set("core", "", "bare", "true")
	c.Set("core", "", "bare", "false")

	s := c.Section("core", "")
	require.Len(t, s.Options, 1)
	assert.Equal(t, "false", s.Options[0].Value)
}

func TestGetLastOneWins(t *testing.T) {
	c := New()
	s := c.Section("core", "")
	s.Options = append(s.Options, Option{Key: "bare", Value: "true"})
	s.Options = append(s.Options, Option{Key: "bare", Value: "false"})

	v, ok := c.Get("core", "", "bare")
	require.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := New()
	c.Set("core", "", "bare", "true")
	c.Set("remote", "origin", "url", "https://example.com/repo.git")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	v, ok := decoded.Get("core", "", "bare")
	require.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok = decoded.Get("remote", "origin", "url")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/repo.git", v)
}

func TestEncodeQuotesSubsection(t *testing.T) {
	c := New()
	c.Set("remote", "origin", "url", "https://example.com/repo.git")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))
	assert.Contains(t, buf.String(), `[remote "origin"]`)
}

func TestSortedSubsectionsIsDeterministic(t *testing.T) {
	c := New()
	c.Set("remote", "zeta", "url", "z")
	c.Set("remote", "alpha", "url", "a")

	assert.Equal(t, []string{"alpha", "zeta"}, SortedSubsections(c, "remote"))
}
