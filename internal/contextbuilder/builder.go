// Package contextbuilder assembles retrieved chunks into a single prompt
// context string under a token budget.
package contextbuilder

import (
	"sort"
	"strings"

	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/token"
	"github.com/feedforge/ragcore/pkg/utils"
)

// DefaultMaxTokens is the default context budget.
const DefaultMaxTokens = 400

// Separator joins blocks from different sources.
const Separator = "\n\n---\n\n"

// Builder turns a retrieval result into prompt context. Chunks are grouped
// by source so text from one document reads contiguously, groups are
// ordered by their best fused score, and chunks inside a group follow
// document order.
type Builder struct {
	maxTokens int
	counter   token.Counter
}

// New creates a builder. maxTokens <= 0 uses DefaultMaxTokens; a nil
// counter uses the default heuristic counter.
func New(maxTokens int, counter token.Counter) *Builder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if counter == nil {
		counter = token.Default()
	}
	return &Builder{maxTokens: maxTokens, counter: counter}
}

// Build renders the chunks into one context string. With grouping enabled,
// chunks are consumed group by group; without it, in the ranked order they
// were given, with no source separators. Either way consumption stops at
// the token budget: the first chunk that overflows is truncated to the
// remaining tokens and ends the context. No chunks yields an empty string.
func (b *Builder) Build(chunks []*models.RetrievedChunk, bySource bool) string {
	if len(chunks) == 0 {
		return ""
	}

	if !bySource {
		parts, _ := b.consume(chunks, b.maxTokens)
		return strings.Join(parts, "\n\n")
	}

	var blocks []string
	remaining := b.maxTokens
	for _, g := range groupBySource(chunks) {
		parts, left := b.consume(g.chunks, remaining)
		remaining = left
		if len(parts) > 0 {
			blocks = append(blocks, strings.Join(parts, "\n\n"))
		}
		if remaining <= 0 {
			break
		}
	}
	return strings.Join(blocks, Separator)
}

// consume renders chunks in order until the budget runs out, truncating the
// chunk that overflows. It returns the rendered parts and the remaining
// budget.
func (b *Builder) consume(chunks []*models.RetrievedChunk, remaining int) ([]string, int) {
	var parts []string
	for _, c := range chunks {
		if remaining <= 0 {
			break
		}
		text := c.Content
		cost := c.TokenCount
		if cost == 0 {
			cost = b.counter.Count(text)
		}
		if cost > remaining {
			text = truncateToTokens(text, remaining)
			remaining = 0
		} else {
			remaining -= cost
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return parts, remaining
}

type sourceGroup struct {
	sourceID string
	best     float64
	chunks   []*models.RetrievedChunk
}

// groupBySource buckets chunks per source, orders groups by best fused
// score descending (source id ascending on ties), and sorts each group by
// sequence index so document text reads in order.
func groupBySource(chunks []*models.RetrievedChunk) []*sourceGroup {
	byID := make(map[string]*sourceGroup)
	var order []*sourceGroup
	for _, c := range chunks {
		g, ok := byID[c.SourceID]
		if !ok {
			g = &sourceGroup{sourceID: c.SourceID, best: c.FusedScore}
			byID[c.SourceID] = g
			order = append(order, g)
		}
		if c.FusedScore > g.best {
			g.best = c.FusedScore
		}
		g.chunks = append(g.chunks, c)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].best != order[j].best {
			return order[i].best > order[j].best
		}
		return order[i].sourceID < order[j].sourceID
	})
	for _, g := range order {
		sort.SliceStable(g.chunks, func(i, j int) bool {
			return g.chunks[i].SequenceIndex < g.chunks[j].SequenceIndex
		})
	}
	return order
}

// truncateToTokens cuts text to roughly the given token budget using the
// four-characters-per-token approximation, breaking at a word boundary.
func truncateToTokens(text string, tokens int) string {
	if tokens <= 0 {
		return ""
	}
	limit := tokens * 4
	if len(text) <= limit {
		return text
	}
	cut := utils.Truncate(text, limit)
	// Back off to the last full word before the marker.
	body := strings.TrimSuffix(cut, "...")
	if i := strings.LastIndexByte(body, ' '); i > 0 {
		body = body[:i]
	}
	return body + "..."
}
