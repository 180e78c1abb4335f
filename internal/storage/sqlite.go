// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/feedforge/ragcore/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// AUTOINCREMENT keeps chunk ids strictly monotonic: a rowid is never
	// reused even after deletes, so stale ids from a replaced generation
	// can never alias a live chunk.
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		sequence_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		source_kind TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_id ON chunks(source_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_source_seq ON chunks(source_id, sequence_index);

	CREATE TABLE IF NOT EXISTS outputs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		is_reply INTEGER NOT NULL DEFAULT 0,
		parent_id INTEGER,
		published_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (parent_id) REFERENCES outputs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_outputs_status ON outputs(status);

	CREATE TABLE IF NOT EXISTS retrieval_logs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		chunk_ids TEXT NOT NULL,
		avg_score REAL NOT NULL,
		min_score REAL NOT NULL,
		max_score REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_retrieval_logs_created_at ON retrieval_logs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// InsertChunks inserts chunks in one transaction and writes the assigned ids
// back into the passed structs. Either all chunks are inserted or none.
func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (source_id, sequence_index, content, token_count, source_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		chunk.CreatedAt = now
		res, err := stmt.ExecContext(ctx,
			chunk.SourceID, chunk.SequenceIndex, chunk.Content,
			chunk.TokenCount, string(chunk.SourceKind), chunk.CreatedAt,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		chunk.ID = id
	}
	return tx.Commit()
}

// ChunksBySource returns all chunks for a source ordered by sequence_index.
func (s *SQLiteStore) ChunksBySource(ctx context.Context, sourceID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, sequence_index, content, token_count, source_kind, created_at
		 FROM chunks WHERE source_id = ? ORDER BY sequence_index`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ChunkIDsBySource returns the ids of all chunks for a source.
func (s *SQLiteStore) ChunkIDsBySource(ctx context.Context, sourceID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE source_id = ? ORDER BY id`, sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChunksByIDs returns the chunks with the given ids. Missing ids are
// silently skipped, so the result may be shorter than the input.
func (s *SQLiteStore) ChunksByIDs(ctx context.Context, ids []int64) ([]*models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, sequence_index, content, token_count, source_kind, created_at
		 FROM chunks WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteChunksBySource removes all chunks for a source.
func (s *SQLiteStore) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID)
	return err
}

// HasChunks reports whether any chunk exists for the source.
func (s *SQLiteStore) HasChunks(ctx context.Context, sourceID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chunks WHERE source_id = ? LIMIT 1`, sourceID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stats returns corpus totals and a per-kind chunk breakdown.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ChunksByKind: make(map[string]int64)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_id) FROM chunks`,
	).Scan(&stats.TotalChunks, &stats.DistinctSources)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_kind, COUNT(*) FROM chunks GROUP BY source_kind`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.ChunksByKind[kind] = count
	}
	return stats, rows.Err()
}

// CreateOutput inserts an output and writes the assigned id back.
func (s *SQLiteStore) CreateOutput(ctx context.Context, out *models.Output) error {
	if out.Status == "" {
		out.Status = models.OutputStatusPending
	}
	out.CreatedAt = time.Now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outputs (content, status, is_reply, parent_id, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		out.Content, out.Status, out.IsReply, out.ParentID, out.PublishedAt, out.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	out.ID = id
	return nil
}

// GetOutput returns an output by id.
func (s *SQLiteStore) GetOutput(ctx context.Context, id int64) (*models.Output, error) {
	var out models.Output
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content, status, is_reply, parent_id, published_at, created_at
		 FROM outputs WHERE id = ?`, id,
	).Scan(&out.ID, &out.Content, &out.Status, &out.IsReply, &out.ParentID, &out.PublishedAt, &out.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: output %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListApprovedOutputs returns approved and published outputs, oldest first.
func (s *SQLiteStore) ListApprovedOutputs(ctx context.Context) ([]*models.Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, status, is_reply, parent_id, published_at, created_at
		 FROM outputs WHERE status IN (?, ?) ORDER BY id`,
		models.OutputStatusApproved, models.OutputStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outs []*models.Output
	for rows.Next() {
		var out models.Output
		if err := rows.Scan(&out.ID, &out.Content, &out.Status, &out.IsReply, &out.ParentID, &out.PublishedAt, &out.CreatedAt); err != nil {
			return nil, err
		}
		outs = append(outs, &out)
	}
	return outs, rows.Err()
}

// InsertRetrievalLog records one retrieval call. Failures here must not
// fail the retrieval itself; callers log and continue.
func (s *SQLiteStore) InsertRetrievalLog(ctx context.Context, log *models.RetrievalLog) error {
	idsJSON, err := json.Marshal(log.ChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk ids: %w", err)
	}
	log.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO retrieval_logs (id, query, chunk_ids, avg_score, min_score, max_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Query, string(idsJSON), log.AvgScore, log.MinScore, log.MaxScore, log.CreatedAt,
	)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanChunks(rows *sql.Rows) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		var kind string
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.SequenceIndex,
			&chunk.Content, &chunk.TokenCount, &kind, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunk.SourceKind = models.SourceKind(kind)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
