package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/feedforge/ragcore/internal/chunker"
	"github.com/feedforge/ragcore/internal/embedding"
	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/token"
	"github.com/feedforge/ragcore/internal/vector"
)

type testEnv struct {
	indexer *Indexer
	store   *storage.SQLiteStore
	lexical *lexical.Index
	vector  vector.Index
}

func newTestEnv(t *testing.T, provider *embedding.Provider) *testEnv {
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

	vec, err := vector.NewMemoryIndex(4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = vec.Close() })

	if provider == nil {
		provider = embedding.NewStaticProvider(embedding.NewMockEmbedder(4))
	}
	ch := chunker.New(40, 5, token.Default())
	return &testEnv{
		indexer: New(store, provider, vec, lex, ch),
		store:   store,
		lexical: lex,
		vector:  vec,
	}
}

func TestIndexSource(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	doc := &models.SourceDocument{
		ID:      "doc-1",
		Content: "The quarterly revenue grew by twelve percent.\n\nCustomer churn dropped for the third month in a row.",
	}
	n, err := env.indexer.IndexSource(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("expected at least one chunk")
	}

	chunks, err := env.store.ChunksBySource(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != n {
		t.Errorf("stored %d chunks, indexer reported %d", len(chunks), n)
	}
	if chunks[0].SourceKind != models.SourceKindExternalDoc {
		t.Errorf("default kind = %q", chunks[0].SourceKind)
	}
	if env.vector.Size() != n {
		t.Errorf("vector index has %d entries, want %d", env.vector.Size(), n)
	}

	hits, err := env.lexical.Search(ctx, "revenue", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Error("indexed content not lexically searchable")
	}
}

func TestIndexSource_ReindexReplacesGeneration(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	doc := &models.SourceDocument{ID: "doc-1", Content: "Original text about databases."}
	if _, err := env.indexer.IndexSource(ctx, doc); err != nil {
		t.Fatal(err)
	}
	oldIDs, _ := env.store.ChunkIDsBySource(ctx, "doc-1")

	doc.Content = "Replacement text about caching."
	n, err := env.indexer.IndexSource(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}

	newIDs, _ := env.store.ChunkIDsBySource(ctx, "doc-1")
	if len(newIDs) != n {
		t.Fatalf("stored %d chunks, want %d", len(newIDs), n)
	}
	for _, oldID := range oldIDs {
		for _, newID := range newIDs {
			if oldID == newID {
				t.Errorf("chunk id %d survived re-index", oldID)
			}
		}
	}
	if env.vector.Size() != n {
		t.Errorf("vector index has %d entries after re-index, want %d", env.vector.Size(), n)
	}

	// Old generation must be gone from the lexical index too.
	hits, _ := env.lexical.Search(ctx, "databases", 10)
	if len(hits) != 0 {
		t.Errorf("stale lexical hits after re-index: %v", hits)
	}
}

func TestIndexSource_EmptyContent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	n, err := env.indexer.IndexSource(ctx, &models.SourceDocument{ID: "doc-1", Content: "   \n\n  "})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("whitespace-only content produced %d chunks", n)
	}
	has, _ := env.store.HasChunks(ctx, "doc-1")
	if has {
		t.Error("no chunks should be stored for empty content")
	}
}

func TestIndexSource_MissingID(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.indexer.IndexSource(context.Background(), &models.SourceDocument{Content: "text"}); err == nil {
		t.Error("expected error for missing source id")
	}
}

func TestIndexBatch_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	docs := []*models.SourceDocument{
		{ID: "doc-1", Content: "First document body."},
		{Content: "No id, must fail."},
		{ID: "doc-3", Content: "Third document body."},
	}
	results := env.indexer.IndexBatch(ctx, docs)
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy sources failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("source without id should fail")
	}
	for _, id := range []string{"doc-1", "doc-3"} {
		if has, _ := env.store.HasChunks(ctx, id); !has {
			t.Errorf("source %s not indexed", id)
		}
	}
}

func TestIndexSource_EmbedderUnavailable(t *testing.T) {
	// A provider pointed at a missing model degrades to lexical-only.
	provider := embedding.NewProvider(embedding.Config{
		ModelPath:  filepath.Join(t.TempDir(), "absent.onnx"),
		Dimensions: 4,
	}, nil)
	env := newTestEnv(t, provider)
	ctx := context.Background()

	n, err := env.indexer.IndexSource(ctx, &models.SourceDocument{ID: "doc-1", Content: "Text without an embedder."})
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("content should still be chunked")
	}
	if env.vector.Size() != 0 {
		t.Errorf("vector index should stay empty, has %d", env.vector.Size())
	}
	hits, _ := env.lexical.Search(ctx, "embedder", 10)
	if len(hits) == 0 {
		t.Error("lexical indexing must survive embedder loss")
	}
}

func TestPurgeSource(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.indexer.IndexSource(ctx, &models.SourceDocument{ID: "doc-1", Content: "Some content to purge."}); err != nil {
		t.Fatal(err)
	}
	if err := env.indexer.PurgeSource(ctx, "doc-1"); err != nil {
		t.Fatal(err)
	}
	if has, _ := env.store.HasChunks(ctx, "doc-1"); has {
		t.Error("chunks remain after purge")
	}
	if env.vector.Size() != 0 {
		t.Errorf("vector entries remain after purge: %d", env.vector.Size())
	}

	// Unknown source purge is a no-op.
	if err := env.indexer.PurgeSource(ctx, "never-indexed"); err != nil {
		t.Errorf("purge of unknown source: %v", err)
	}
}

func TestSourceLocksReleased(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// Serialized operations across many distinct sources must not leave a
	// lock entry behind per source id.
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("doc-%d", i)
		if _, err := env.indexer.IndexSource(ctx, &models.SourceDocument{ID: id, Content: "Body of " + id}); err != nil {
			t.Fatal(err)
		}
		if err := env.indexer.PurgeSource(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	if n := env.indexer.lockedSources(); n != 0 {
		t.Errorf("%d source lock entries retained", n)
	}

	// Same under contention on a single source.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := &models.SourceDocument{ID: "shared", Content: fmt.Sprintf("Generation %d.", i)}
			if _, err := env.indexer.IndexSource(ctx, doc); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	if n := env.indexer.lockedSources(); n != 0 {
		t.Errorf("%d source lock entries retained after concurrent indexing", n)
	}
}

func TestPreprocess(t *testing.T) {
	in := "Title line\r\n\r\n\r\n\r\nBody paragraph one.  \nStill paragraph one.\n\n\nParagraph two.\n"
	want := "Title line\n\nBody paragraph one.\nStill paragraph one.\n\nParagraph two."
	if got := Preprocess(in); got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}
