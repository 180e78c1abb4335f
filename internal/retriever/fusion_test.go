package retriever

import (
	"math"
	"testing"

	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/vector"
)

func TestFuse_WeightedMidpoint(t *testing.T) {
	lex := []lexical.Result{{ChunkID: 1, Score: 0.8}}
	vec := []vector.Result{{ChunkID: 1, Similarity: 0.2}}

	fused := Fuse(lex, vec, 0.5, 0.5)
	if len(fused) != 1 {
		t.Fatalf("got %d results", len(fused))
	}
	if math.Abs(fused[0].Fused-0.5) > 1e-9 {
		t.Errorf("fused score = %f, want 0.5", fused[0].Fused)
	}
	if fused[0].Lexical != 0.8 || fused[0].Vector != 0.2 {
		t.Errorf("component scores = %f, %f", fused[0].Lexical, fused[0].Vector)
	}
}

func TestFuse_UnionOfSides(t *testing.T) {
	lex := []lexical.Result{{ChunkID: 1, Score: 1.0}}
	vec := []vector.Result{{ChunkID: 2, Similarity: 1.0}}

	fused := Fuse(lex, vec, 0.5, 0.5)
	if len(fused) != 2 {
		t.Fatalf("got %d results, want union of 2", len(fused))
	}
	for _, s := range fused {
		// One-sided hits keep a zero score on the missing side.
		if math.Abs(s.Fused-0.5) > 1e-9 {
			t.Errorf("chunk %d fused = %f, want 0.5", s.ChunkID, s.Fused)
		}
	}
}

func TestFuse_OrderingAndTieBreak(t *testing.T) {
	lex := []lexical.Result{
		{ChunkID: 5, Score: 0.6},
		{ChunkID: 9, Score: 0.6},
		{ChunkID: 2, Score: 0.6},
		{ChunkID: 1, Score: 1.0},
	}
	fused := Fuse(lex, nil, 1.0, 0.0)
	want := []int64{1, 2, 5, 9}
	for i, w := range want {
		if fused[i].ChunkID != w {
			t.Errorf("position %d = chunk %d, want %d", i, fused[i].ChunkID, w)
		}
	}
}

func TestFuse_WeightMonotonicity(t *testing.T) {
	lex := []lexical.Result{{ChunkID: 1, Score: 0.9}}
	low := Fuse(lex, nil, 0.3, 0.7)[0].Fused
	high := Fuse(lex, nil, 0.8, 0.2)[0].Fused
	if high <= low {
		t.Errorf("raising the lexical weight should raise the score: %f vs %f", high, low)
	}
}

func TestFuse_Empty(t *testing.T) {
	if fused := Fuse(nil, nil, 0.5, 0.5); len(fused) != 0 {
		t.Errorf("got %d results from empty inputs", len(fused))
	}
}
