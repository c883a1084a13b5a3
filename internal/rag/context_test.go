package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newschat-dev/newschat/internal/provider"
)

func TestComposeContext_Empty(t *testing.T) {
	assert.Equal(t, "No relevant news articles found.", composeContext(nil))
	assert.Equal(t, "No relevant news articles found.", composeContext([]provider.Match{}))
}

func TestComposeContext_PreservesIndexOrder(t *testing.T) {
	matches := []provider.Match{
		{Score: 0.5, Metadata: map[string]string{"title": "Second by score"}},
		{Score: 0.9, Metadata: map[string]string{"title": "First by score"}},
	}

	out := composeContext(matches)
	assert.Less(t, strings.Index(out, "Second by score"), strings.Index(out, "First by score"),
		"blocks follow index order, not score order")
}

func TestComposeContext_Placeholders(t *testing.T) {
	out := composeContext([]provider.Match{{Metadata: map[string]string{}}})

	assert.Contains(t, out, "Article: Unknown Title")
	assert.Contains(t, out, "Source: Unknown Source")
	assert.Contains(t, out, "Content: No content available")
	assert.Contains(t, out, "Published: Unknown Date")
}

func TestComposeContext_TextFallsBackForContent(t *testing.T) {
	out := composeContext([]provider.Match{
		{Metadata: map[string]string{"title": "A", "text": "body from text field"}},
	})
	assert.Contains(t, out, "Content: body from text field")
}

func TestDeriveSources_FiltersUntitled(t *testing.T) {
	sources := deriveSources([]provider.Match{
		{Score: 0.9, Metadata: map[string]string{"title": "Kept", "url": "https://example.com/kept"}},
		{Score: 0.8, Metadata: map[string]string{"source": "Reuters"}},
		{Score: 0.7, Metadata: map[string]string{"title": "Unknown Title"}},
	})

	require.Len(t, sources, 1)
	assert.Equal(t, "Kept", sources[0].Title)
	assert.Equal(t, "Unknown Source", sources[0].Source)
	assert.Equal(t, "https://example.com/kept", sources[0].URL)
}

func TestDeriveSources_EmptyIsNonNil(t *testing.T) {
	sources := deriveSources(nil)
	require.NotNil(t, sources, "JSON clients expect [] rather than null")
	assert.Empty(t, sources)
}

func TestStripEmphasis(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"**bold**", "bold"},
		{"*italic*", "italic"},
		{"This is **bold** and *italic*.", "This is bold and italic."},
		{"**a** then **b**", "a then b"},
		{"a ** b", "a  b"},
		{"1 * 2 * 3", "1  2  3"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, stripEmphasis(tc.in), "input %q", tc.in)
	}
}
