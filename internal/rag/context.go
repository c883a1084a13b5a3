package rag

import (
	"strings"

	"github.com/newschat-dev/newschat/internal/chat"
	"github.com/newschat-dev/newschat/internal/provider"
)

// Placeholder metadata values used when a match carries incomplete
// metadata. Matches are never dropped at this stage.
const (
	unknownTitle   = "Unknown Title"
	unknownSource  = "Unknown Source"
	unknownDate    = "Unknown Date"
	noContent      = "No content available"
	emptyContext   = "No relevant news articles found."
)

// composeContext concatenates one block per match, in the order the
// index returned them (descending relevance; not re-sorted here).
func composeContext(matches []provider.Match) string {
	if len(matches) == 0 {
		return emptyContext
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		meta := m.Metadata
		content := meta["content"]
		if content == "" {
			content = meta["text"]
		}
		blocks = append(blocks, "Article: "+orDefault(meta["title"], unknownTitle)+
			"\nSource: "+orDefault(meta["source"], unknownSource)+
			"\nContent: "+orDefault(content, noContent)+
			"\nPublished: "+orDefault(meta["publishedAt"], unknownDate)+"---")
	}
	return strings.Join(blocks, "\n")
}

// deriveSources builds the citation list handed back to clients.
// Matches without a real title are filtered out here, at presentation
// only; they still contributed to the context and to the
// relevant-article count.
func deriveSources(matches []provider.Match) []chat.Source {
	if len(matches) == 0 {
		return []chat.Source{}
	}

	sources := make([]chat.Source, 0, len(matches))
	for _, m := range matches {
		meta := m.Metadata
		title := orDefault(meta["title"], unknownTitle)
		if title == unknownTitle {
			continue
		}
		sources = append(sources, chat.Source{
			Title:       title,
			Source:      orDefault(meta["source"], unknownSource),
			URL:         meta["url"],
			PublishedAt: meta["publishedAt"],
			Score:       m.Score,
		})
	}
	return sources
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
