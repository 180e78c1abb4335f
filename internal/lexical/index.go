// Package lexical provides the BM25-style ranked text index over chunk
// content, backed by Bleve.
package lexical

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// Result is a single lexical search hit. Score is min-max normalized to
// [0,1] within the result set of one query; it is a relative scale and not
// comparable across queries.
type Result struct {
	ChunkID int64
	Score   float64
}

// chunkDoc is the indexed document shape.
type chunkDoc struct {
	Content string `json:"content"`
}

// Index is a Bleve-backed inverted index keyed by chunk id.
type Index struct {
	index bleve.Index
}

// Open creates or opens a Bleve index at path. An existing index is reused;
// remove the directory to force a rebuild after mapping changes.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open lexical index: %w", openErr)
		}
		return &Index{index: idx}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	contentMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match indexed words exactly.
	contentMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenInMemory creates a throwaway in-memory index (tests).
func OpenInMemory() (*Index, error) {
	im := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create in-memory lexical index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Upsert inserts or replaces the indexed content for a chunk id.
func (i *Index) Upsert(chunkID int64, content string) error {
	return i.index.Index(formatID(chunkID), chunkDoc{Content: content})
}

// Delete removes the posting for a chunk id. Deleting an absent id is a
// no-op, not an error.
func (i *Index) Delete(chunkID int64) error {
	return i.index.Delete(formatID(chunkID))
}

// Search runs a sanitized, recall-biased OR query and returns up to topK
// hits with min-max normalized scores. An empty or fully sanitized-away
// query returns no results and no error.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	terms := SanitizeQuery(query)
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		mq := bleve.NewMatchQuery(term)
		mq.SetField("content")
		queries = append(queries, mq)
	}
	// Any matching term contributes (OR). Precision is recovered by fusion
	// with vector search downstream.
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(queries...), topK, 0, false)

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := parseID(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Result{ChunkID: id, Score: hit.Score})
	}
	normalizeScores(out)
	return out, nil
}

// DocCount returns the number of indexed chunks.
func (i *Index) DocCount() (uint64, error) {
	return i.index.DocCount()
}

// Close closes the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}

// SanitizeQuery strips characters with special meaning to the query syntax
// (quotes, parens, wildcards, hyphens, colons) and tokenizes on whitespace.
func SanitizeQuery(query string) []string {
	replacer := strings.NewReplacer(
		`"`, " ", "'", " ", "(", " ", ")", " ",
		"*", " ", "-", " ", ":", " ", "^", " ", "~", " ", "+", " ",
	)
	return strings.Fields(replacer.Replace(query))
}

// normalizeScores rescales scores to [0,1] by min-max over the result set.
// When all scores are equal (including a single hit) every score becomes 1:
// within this query, each hit is as good as the best.
func normalizeScores(results []Result) {
	if len(results) == 0 {
		return
	}
	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore == minScore {
		for idx := range results {
			results[idx].Score = 1.0
		}
		return
	}
	span := maxScore - minScore
	for idx := range results {
		results[idx].Score = (results[idx].Score - minScore) / span
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
