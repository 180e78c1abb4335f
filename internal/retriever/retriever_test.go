package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/feedforge/ragcore/internal/chunker"
	"github.com/feedforge/ragcore/internal/embedding"
	"github.com/feedforge/ragcore/internal/indexer"
	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/token"
	"github.com/feedforge/ragcore/internal/vector"
)

type testEnv struct {
	retriever *Retriever
	indexer   *indexer.Indexer
	store     *storage.SQLiteStore
}

func newTestEnv(t *testing.T, provider *embedding.Provider, opts Options) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	lex, err := lexical.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = lex.Close() })

	vec, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = vec.Close() })

	if provider == nil {
		provider = embedding.NewStaticProvider(embedding.NewMockEmbedder(8))
	}
	ch := chunker.New(60, 10, token.Default())
	return &testEnv{
		retriever: New(store, provider, vec, lex, opts, nil),
		indexer:   indexer.New(store, provider, vec, lex, ch),
		store:     store,
	}
}

func TestRetrieve_EndToEnd(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	doc := &models.SourceDocument{
		ID:    "doc-1",
		Title: "Demo",
		Content: "The demo environment mirrors production configuration closely.\n\n" +
			"Operators reset the demo data set every night at two.",
	}
	if _, err := env.indexer.IndexSource(ctx, doc); err != nil {
		t.Fatal(err)
	}

	result, err := env.retriever.Retrieve(ctx, "demo", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Succeeded {
		t.Error("retrieval should succeed with a matching chunk indexed")
	}
	if len(result.Chunks) == 0 {
		t.Fatal("no chunks returned")
	}
	top := result.Chunks[0]
	if top.SourceID != "doc-1" {
		t.Errorf("top chunk source = %q", top.SourceID)
	}
	if top.FusedScore < 0.5 {
		t.Errorf("top fused score = %f, want >= 0.5", top.FusedScore)
	}
	if top.Content == "" || top.ID == 0 {
		t.Errorf("chunk not hydrated: %+v", top)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	result, err := env.retriever.Retrieve(context.Background(), "anything at all", 0)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded {
		t.Error("empty index must not report success")
	}
	if len(result.Chunks) != 0 {
		t.Errorf("got %d chunks from empty index", len(result.Chunks))
	}
}

func TestRetrieve_InvalidQuery(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	doc := &models.SourceDocument{
		ID:      "doc-1",
		Content: "Some indexed content so an unexpected hit would show.",
	}
	if _, err := env.indexer.IndexSource(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	for _, q := range []string{"", "ab", "!!!"} {
		result, err := env.retriever.Retrieve(context.Background(), q, 0)
		if err != nil {
			t.Fatalf("Retrieve(%q) err = %v, want nil", q, err)
		}
		if result.Succeeded {
			t.Errorf("Retrieve(%q) succeeded, want Succeeded=false", q)
		}
		if len(result.Chunks) != 0 {
			t.Errorf("Retrieve(%q) returned %d chunks, want 0", q, len(result.Chunks))
		}
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	docs := []*models.SourceDocument{
		{ID: "doc-1", Content: "Postgres tuning for large analytical workloads."},
		{ID: "doc-2", Content: "Postgres connection pooling with pgbouncer."},
		{ID: "doc-3", Content: "Sizing a postgres buffer cache for mixed workloads."},
	}
	env.indexer.IndexBatch(ctx, docs)

	first, err := env.retriever.Retrieve(ctx, "postgres workloads", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.retriever.Retrieve(ctx, "postgres workloads", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("result sizes differ: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		if first.Chunks[i].ID != second.Chunks[i].ID {
			t.Errorf("position %d differs: %d vs %d", i, first.Chunks[i].ID, second.Chunks[i].ID)
		}
	}
}

func TestRetrieve_LexicalOnlyDegradation(t *testing.T) {
	provider := embedding.NewProvider(embedding.Config{
		ModelPath:  filepath.Join(t.TempDir(), "absent.onnx"),
		Dimensions: 8,
	}, nil)
	env := newTestEnv(t, provider, Options{})
	ctx := context.Background()

	_, err := env.indexer.IndexSource(ctx, &models.SourceDocument{
		ID:      "doc-1",
		Content: "Release notes for the ingestion service.",
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := env.retriever.Retrieve(ctx, "ingestion release", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Succeeded {
		t.Error("lexical-only retrieval should still succeed")
	}
	for _, c := range result.Chunks {
		if c.VectorScore != 0 {
			t.Errorf("vector score should be zero without an embedder, got %f", c.VectorScore)
		}
	}
}

func TestRetrieve_ThresholdFiltersWeakHits(t *testing.T) {
	provider := embedding.NewProvider(embedding.Config{
		ModelPath:  filepath.Join(t.TempDir(), "absent.onnx"),
		Dimensions: 8,
	}, nil)
	env := newTestEnv(t, provider, Options{})
	ctx := context.Background()

	// With lexical-only scoring the fused score is 0.5 * normalized BM25,
	// so the weakest candidate normalizes to 0 and must be filtered.
	docs := []*models.SourceDocument{
		{ID: "doc-1", Content: "alpha alpha alpha signal"},
		{ID: "doc-2", Content: "alpha mentioned once here"},
		{ID: "doc-3", Content: "alpha in passing with much other unrelated text padding the body"},
	}
	env.indexer.IndexBatch(ctx, docs)

	result, err := env.retriever.Retrieve(ctx, "alpha signal", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) == 0 || len(result.Chunks) >= 3 {
		t.Fatalf("threshold should keep some but not all of 3 candidates, kept %d", len(result.Chunks))
	}
	for _, c := range result.Chunks {
		if c.FusedScore < 0.5 {
			t.Errorf("chunk %d below threshold: %f", c.ID, c.FusedScore)
		}
	}
}

func TestRetrieve_TopKTruncation(t *testing.T) {
	env := newTestEnv(t, nil, Options{ScoreThreshold: 0.0001})
	ctx := context.Background()

	docs := []*models.SourceDocument{
		{ID: "doc-1", Content: "gopher one writing tests"},
		{ID: "doc-2", Content: "gopher two writing docs"},
		{ID: "doc-3", Content: "gopher three writing code"},
	}
	env.indexer.IndexBatch(ctx, docs)

	result, err := env.retriever.Retrieve(ctx, "gopher writing", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) > 2 {
		t.Errorf("topK 2 returned %d chunks", len(result.Chunks))
	}
}
