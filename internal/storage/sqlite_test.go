package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/feedforge/ragcore/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_InsertChunksAssignsIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "first", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "doc-1", SequenceIndex: 1, Content: "second", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
	}
	if err := store.InsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if chunks[0].ID == 0 || chunks[1].ID == 0 {
		t.Fatalf("ids not assigned: %d, %d", chunks[0].ID, chunks[1].ID)
	}
	if chunks[1].ID <= chunks[0].ID {
		t.Errorf("ids not monotonic: %d then %d", chunks[0].ID, chunks[1].ID)
	}
	if chunks[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestSQLiteStore_IDsNeverReused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "old", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
	}
	_ = store.InsertChunks(ctx, first)
	oldID := first[0].ID

	if err := store.DeleteChunksBySource(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}

	second := []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "new", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
	}
	_ = store.InsertChunks(ctx, second)
	if second[0].ID <= oldID {
		t.Errorf("id %d reused after delete (previous %d)", second[0].ID, oldID)
	}
}

func TestSQLiteStore_ChunksBySource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 1, Content: "b", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "doc-1", SequenceIndex: 0, Content: "a", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "doc-2", SequenceIndex: 0, Content: "c", TokenCount: 1, SourceKind: models.SourceKindApprovedOutput},
	}
	_ = store.InsertChunks(ctx, chunks)

	got, err := store.ChunksBySource(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Content != "a" || got[1].Content != "b" {
		t.Errorf("not ordered by sequence_index: %q, %q", got[0].Content, got[1].Content)
	}
	if got[0].SourceKind != models.SourceKindExternalDoc {
		t.Errorf("SourceKind=%q", got[0].SourceKind)
	}

	ids, err := store.ChunkIDsBySource(ctx, "doc-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 id, got %v", ids)
	}
}

func TestSQLiteStore_ChunksByIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "a", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "doc-1", SequenceIndex: 1, Content: "b", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
	}
	_ = store.InsertChunks(ctx, chunks)

	// Unknown ids are skipped, not errors.
	got, err := store.ChunksByIDs(ctx, []int64{chunks[1].ID, 99999})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "b" {
		t.Errorf("got %+v", got)
	}

	got, err = store.ChunksByIDs(ctx, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty input: %v, %d chunks", err, len(got))
	}
}

func TestSQLiteStore_HasChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	has, err := store.HasChunks(ctx, "doc-1")
	if err != nil || has {
		t.Errorf("HasChunks on empty store: %v, %v", has, err)
	}

	_ = store.InsertChunks(ctx, []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "a", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
	})
	has, err = store.HasChunks(ctx, "doc-1")
	if err != nil || !has {
		t.Errorf("HasChunks after insert: %v, %v", has, err)
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.InsertChunks(ctx, []*models.Chunk{
		{SourceID: "doc-1", SequenceIndex: 0, Content: "a", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "doc-1", SequenceIndex: 1, Content: "b", TokenCount: 1, SourceKind: models.SourceKindExternalDoc},
		{SourceID: "out-1", SequenceIndex: 0, Content: "c", TokenCount: 1, SourceKind: models.SourceKindApprovedOutput},
	})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 3 {
		t.Errorf("TotalChunks=%d", stats.TotalChunks)
	}
	if stats.DistinctSources != 2 {
		t.Errorf("DistinctSources=%d", stats.DistinctSources)
	}
	if stats.ChunksByKind["external-doc"] != 2 || stats.ChunksByKind["approved-output"] != 1 {
		t.Errorf("ChunksByKind=%v", stats.ChunksByKind)
	}
}

func TestSQLiteStore_Outputs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent := &models.Output{Content: "original post", Status: models.OutputStatusApproved}
	if err := store.CreateOutput(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if parent.ID == 0 {
		t.Fatal("id not assigned")
	}

	reply := &models.Output{Content: "a reply", Status: models.OutputStatusPublished, IsReply: true, ParentID: &parent.ID}
	_ = store.CreateOutput(ctx, reply)
	pending := &models.Output{Content: "awaiting review"}
	_ = store.CreateOutput(ctx, pending)

	got, err := store.GetOutput(ctx, reply.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsReply || got.ParentID == nil || *got.ParentID != parent.ID {
		t.Errorf("got %+v", got)
	}
	if pending.Status != models.OutputStatusPending {
		t.Errorf("default status = %q", pending.Status)
	}

	approved, err := store.ListApprovedOutputs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(approved) != 2 {
		t.Errorf("expected 2 approved outputs, got %d", len(approved))
	}

	if _, err := store.GetOutput(ctx, 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing output err=%v", err)
	}
}

func TestSQLiteStore_RetrievalLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	log := &models.RetrievalLog{
		ID:       "b3a2f9bc-0000-4000-8000-000000000001",
		Query:    "machine learning",
		ChunkIDs: []int64{3, 7},
		AvgScore: 0.72,
		MinScore: 0.61,
		MaxScore: 0.83,
	}
	if err := store.InsertRetrievalLog(ctx, log); err != nil {
		t.Fatal(err)
	}
	if log.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}
