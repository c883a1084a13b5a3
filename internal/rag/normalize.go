package rag

import "regexp"

var (
	boldMarkers   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarkers = regexp.MustCompile(`\*(.*?)\*`)
)

// stripEmphasis removes markdown bold and italic markers from generated
// text. The assistant is prompted for plain text, but models slip; the
// same normalization applies to unary responses and to each streamed
// chunk, so what clients see always matches what gets persisted.
func stripEmphasis(text string) string {
	if text == "" {
		return text
	}
	text = boldMarkers.ReplaceAllString(text, "$1")
	return italicMarkers.ReplaceAllString(text, "$1")
}
