// Package chunker splits source text into token-bounded, overlapping chunks.
package chunker

import (
	"strings"
	"unicode"

	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/token"
)

// Default chunking parameters, in tokens.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
)

// Chunker splits text into chunks of at most chunkSize tokens, carrying up
// to chunkOverlap tokens from the tail of each chunk into the next.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	counter      token.Counter
}

// New creates a chunker. Non-positive size or overlap fall back to the
// defaults; a nil counter falls back to token.Default().
func New(chunkSize, chunkOverlap int, counter token.Counter) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if counter == nil {
		counter = token.Default()
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		counter:      counter,
	}
}

// Chunk splits text into chunk drafts for sourceID. IDs are unset; they are
// assigned when the drafts are persisted. Paragraph boundaries are
// respected; a paragraph too large for one chunk is split into sentences.
// A single sentence exceeding the chunk size still becomes its own chunk.
// Empty or whitespace-only input returns nil. Pure function, no side
// effects.
func (c *Chunker) Chunk(text, sourceID string, kind models.SourceKind) []*models.Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var (
		chunks    []*models.Chunk
		current   []string
		curTokens int
	)

	flush := func(withOverlap bool) {
		if len(current) == 0 {
			return
		}
		content := strings.Join(current, " ")
		chunks = append(chunks, &models.Chunk{
			SourceID:      sourceID,
			SequenceIndex: len(chunks),
			Content:       content,
			TokenCount:    c.counter.Count(content),
			SourceKind:    kind,
		})
		if withOverlap && c.chunkOverlap > 0 {
			current = c.overlapTail(current)
		} else {
			current = nil
		}
		curTokens = 0
		for _, u := range current {
			curTokens += c.counter.Count(u)
		}
	}

	pack := func(unit string) {
		unitTokens := c.counter.Count(unit)
		if curTokens+unitTokens > c.chunkSize && len(current) > 0 {
			flush(true)
			// The carried overlap plus an unusually large unit can still
			// overshoot; drop the overlap rather than emit an oversized chunk.
			if curTokens+unitTokens > c.chunkSize {
				current = nil
				curTokens = 0
			}
		}
		current = append(current, unit)
		curTokens += unitTokens
	}

	for _, paragraph := range paragraphs {
		if c.counter.Count(paragraph) > c.chunkSize {
			for _, sentence := range splitSentences(paragraph) {
				pack(sentence)
			}
			continue
		}
		pack(paragraph)
	}
	flush(false)

	return chunks
}

// overlapTail returns the longest suffix of units whose combined token
// count fits in the overlap budget.
func (c *Chunker) overlapTail(units []string) []string {
	total := 0
	start := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		t := c.counter.Count(units[i])
		if total+t > c.chunkOverlap {
			break
		}
		total += t
		start = i
	}
	if start == len(units) {
		return nil
	}
	return append([]string(nil), units[start:]...)
}

// splitParagraphs splits text on blank lines, joining wrapped lines within
// a paragraph with single spaces.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}
	return paragraphs
}

// splitSentences splits a paragraph at terminal punctuation (. ! ?)
// followed by whitespace and a capital letter. Text without such
// boundaries is returned as a single sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			// Consume a run of terminal punctuation.
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
				j++
			}
			k := j
			for k < len(runes) && unicode.IsSpace(runes[k]) {
				k++
			}
			if k > j && k < len(runes) && unicode.IsUpper(runes[k]) {
				sentence := strings.TrimSpace(string(runes[start:j]))
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				start = k
				i = k
				continue
			}
			i = j
			continue
		}
		i++
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}
