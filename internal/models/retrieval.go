package models

import "time"

// RetrievedChunk is a chunk hydrated from storage together with the scores
// that ranked it for one query.
type RetrievedChunk struct {
	Chunk
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	FusedScore   float64 `json:"fused_score"`
}

// RetrievalResult is the outcome of one hybrid retrieval call. Succeeded is
// false when fewer than the minimum viable number of chunks survived
// filtering; the chunks that did survive are still returned so callers can
// decide whether degraded context is acceptable.
type RetrievalResult struct {
	Chunks    []*RetrievedChunk `json:"chunks"`
	Succeeded bool              `json:"retrieval_succeeded"`
	Query     string            `json:"query"`
	QueryTime int64             `json:"query_time_ms"`
}

// RetrievalLog is an advisory audit record of one retrieval call. Scores in
// the log are the per-query min-max normalized values; they are comparable
// within one query only, not across queries or index states.
type RetrievalLog struct {
	ID        string    `json:"id" db:"id"`
	Query     string    `json:"query" db:"query"`
	ChunkIDs  []int64   `json:"chunk_ids" db:"chunk_ids"`
	AvgScore  float64   `json:"avg_score" db:"avg_score"`
	MinScore  float64   `json:"min_score" db:"min_score"`
	MaxScore  float64   `json:"max_score" db:"max_score"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
