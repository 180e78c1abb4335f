// Package retriever runs hybrid (lexical + vector) retrieval over the
// chunk indexes and fuses the two score sets into one ranking.
package retriever

import (
	"sort"

	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/vector"
)

// ScoredChunk is one fused candidate. A chunk found by only one index keeps
// a zero score on the other side.
type ScoredChunk struct {
	ChunkID int64
	Lexical float64
	Vector  float64
	Fused   float64
}

// Fuse merges lexical and vector hits into a weighted ranking. The fused
// score is wLex*lexical + wVec*vector; results are ordered by fused score
// descending with ties broken by chunk id ascending, so the ranking is
// deterministic for identical inputs.
func Fuse(lex []lexical.Result, vec []vector.Result, wLex, wVec float64) []*ScoredChunk {
	byID := make(map[int64]*ScoredChunk, len(lex)+len(vec))
	for _, r := range lex {
		byID[r.ChunkID] = &ScoredChunk{ChunkID: r.ChunkID, Lexical: r.Score}
	}
	for _, r := range vec {
		if s, ok := byID[r.ChunkID]; ok {
			s.Vector = r.Similarity
		} else {
			byID[r.ChunkID] = &ScoredChunk{ChunkID: r.ChunkID, Vector: r.Similarity}
		}
	}

	out := make([]*ScoredChunk, 0, len(byID))
	for _, s := range byID {
		s.Fused = wLex*s.Lexical + wVec*s.Vector
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fused != out[j].Fused {
			return out[i].Fused > out[j].Fused
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}
