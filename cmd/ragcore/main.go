// Package main is the ragcore CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/chunker"
	"github.com/feedforge/ragcore/internal/config"
	"github.com/feedforge/ragcore/internal/contextbuilder"
	"github.com/feedforge/ragcore/internal/embedding"
	"github.com/feedforge/ragcore/internal/extract"
	"github.com/feedforge/ragcore/internal/feedback"
	"github.com/feedforge/ragcore/internal/indexer"
	"github.com/feedforge/ragcore/internal/ingest"
	"github.com/feedforge/ragcore/internal/lexical"
	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/retriever"
	"github.com/feedforge/ragcore/internal/server"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/token"
	"github.com/feedforge/ragcore/internal/vector"
	"github.com/feedforge/ragcore/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragcore/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "ragcore server" from the project dir uses the project's
// config (including debug). Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "stats":
		runStats()
	case "feedback":
		runFeedback()
	case "version", "--version", "-v":
		fmt.Printf("ragcore version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (retrieval scoring, file ingestion, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var dropSvc *ingest.Service
	if cfg.Ingest.DropDir != "" {
		dropSvc, err = ingest.NewService(cfg.Ingest.DropDir, components.Indexer, logger)
		if err != nil {
			logger.Fatal("Failed to create drop-dir watcher", zap.Error(err))
		}
		ingestCtx, ingestCancel := context.WithCancel(context.Background())
		defer ingestCancel()
		if err := dropSvc.Start(ingestCtx); err != nil {
			logger.Fatal("Failed to start drop-dir watcher", zap.Error(err))
		}
		defer dropSvc.Stop()
	}

	srv := server.NewServer(
		components.Retriever,
		components.Indexer,
		components.Builder,
		components.Feedback,
		components.Store,
		components.VectorIndex,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printQueryUsage prints query subcommand usage.
func printQueryUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: ragcore query [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  ragcore query postgres connection pooling
  ragcore query "postgres connection pooling"    # same as above
  ragcore query --top-k 5 --context your query
  ragcore query --output json incident response
`)
}

// buildQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "ragcore query \"q\" -top-k 5"
// would otherwise leave -top-k unparsed.
func queryArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// queryRequest mirrors the POST /api/v1/query request body.
type queryRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	IncludeContext bool   `json:"include_context,omitempty"`
}

// queryResponse mirrors the POST /api/v1/query response body.
type queryResponse struct {
	models.RetrievalResult
	Context string `json:"context,omitempty"`
}

func runQuery() {
	queryArgs := queryArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of chunks to return (0 = configured default)")
	withContext := fs.Bool("context", false, "print the assembled context block instead of per-chunk scores")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printQueryUsage(fs) }
	_ = fs.Parse(queryArgs)

	if fs.NArg() < 1 {
		printQueryUsage(fs)
		os.Exit(1)
	}
	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printQueryUsage(fs)
		os.Exit(1)
	}

	var resp *queryResponse
	if *serverURL != "" {
		// Use the HTTP API when the server is running. Direct storage access
		// would conflict with the server's Bleve and SQLite locks.
		var err error
		resp, err = queryViaHTTP(*serverURL, &queryRequest{
			Query:          queryStr,
			TopK:           *topK,
			IncludeContext: *withContext,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPathFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		result, err := components.Retriever.Retrieve(context.Background(), queryStr, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		resp = &queryResponse{RetrievalResult: *result}
		if *withContext {
			resp.Context = components.Builder.Build(result.Chunks, true)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeQueryText(os.Stdout, resp, *withContext)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeQueryText(w io.Writer, resp *queryResponse, withContext bool) {
	if withContext {
		fmt.Fprintln(w, resp.Context)
		return
	}
	if !resp.Succeeded {
		fmt.Fprintf(w, "retrieval did not find enough relevant content (%d chunk(s), %dms)\n",
			len(resp.Chunks), resp.QueryTime)
	}
	for i, c := range resp.Chunks {
		fmt.Fprintf(w, "%d. [%.3f] %s #%d (lex %.3f, vec %.3f)\n",
			i+1, c.FusedScore, c.SourceID, c.SequenceIndex, c.LexicalScore, c.VectorScore)
		fmt.Fprintf(w, "   %s\n", utils.Truncate(c.Content, 160))
	}
}

func queryViaHTTP(serverURL string, req *queryRequest) (*queryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// statsResponse is the shape of GET /api/v1/stats response.
type statsResponse struct {
	TotalChunks     int64            `json:"total_chunks"`
	DistinctSources int64            `json:"distinct_sources"`
	ChunksByKind    map[string]int64 `json:"chunks_by_kind"`
	VectorIndexSize int              `json:"vector_index_size"`
	VectorIndexKind string           `json:"vector_index_kind"`
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var stats statsResponse
	if *serverURL != "" {
		res, err := statsViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		stats = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		s, err := components.Store.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		stats = statsResponse{
			TotalChunks:     s.TotalChunks,
			DistinctSources: s.DistinctSources,
			ChunksByKind:    s.ChunksByKind,
			VectorIndexSize: components.VectorIndex.Size(),
			VectorIndexKind: components.VectorIndex.Kind(),
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("total_chunks:       %d\n", stats.TotalChunks)
		fmt.Printf("distinct_sources:   %d\n", stats.DistinctSources)
		fmt.Printf("vector_index_size:  %d\n", stats.VectorIndexSize)
		if stats.VectorIndexKind != "" {
			fmt.Printf("vector_index_kind:  %s\n", stats.VectorIndexKind)
		}
		if len(stats.ChunksByKind) > 0 {
			fmt.Println()
			fmt.Println("# chunks by source kind")
			for kind, n := range stats.ChunksByKind {
				fmt.Printf("%-20s%d\n", kind+":", n)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statsViaHTTP(serverURL string) (*statsResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sourceID := fs.String("id", "", "source id (default: file path relative to the current directory)")
	title := fs.String("title", "", "source title (default: filename without extension)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragcore index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		docs, err := collectDocuments(components.Extractor, path)
		if err != nil {
			fmt.Printf("Reading directory failed: %v\n", err)
			os.Exit(1)
		}
		indexed := 0
		for _, res := range components.Indexer.IndexBatch(ctx, docs) {
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", res.SourceID, res.Err)
				continue
			}
			indexed++
		}
		fmt.Printf("Indexed %d source(s) from %s\n", indexed, path)
		return
	}

	doc, err := documentFromFile(components.Extractor, path, *sourceID, *title)
	if err != nil {
		fmt.Printf("Reading file failed: %v\n", err)
		os.Exit(1)
	}
	n, err := components.Indexer.IndexSource(ctx, doc)
	if err != nil {
		fmt.Printf("Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s (%d chunk(s))\n", doc.ID, n)
}

// collectDocuments walks dir and builds a source document per supported file.
// Source ids are slash-separated paths relative to dir, matching the drop
// directory convention.
func collectDocuments(ex *extract.Extractor, dir string) ([]*models.SourceDocument, error) {
	var docs []*models.SourceDocument
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !extract.Supported(filepath.Ext(path)) {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		doc, docErr := documentFromFile(ex, path, filepath.ToSlash(rel), "")
		if docErr != nil {
			return fmt.Errorf("failed to read %s: %w", path, docErr)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func documentFromFile(ex *extract.Extractor, path, id, title string) (*models.SourceDocument, error) {
	content, err := ex.Extract(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(path)
	if id == "" {
		id = filepath.ToSlash(path)
	}
	if title == "" {
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &models.SourceDocument{
		ID:      id,
		Title:   title,
		Content: content,
		Kind:    models.SourceKindExternalDoc,
	}, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragcore delete [flags] <source-id>")
		os.Exit(1)
	}
	sourceID := fs.Arg(0)

	if *serverURL != "" {
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/sources/"+url.PathEscape(sourceID), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Source deleted: %s\n", sourceID)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Indexer.PurgeSource(context.Background(), sourceID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Source deleted: %s\n", sourceID)
}

func runFeedback() {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	var report feedback.Report
	if *serverURL != "" {
		resp, err := http.Post(*serverURL+"/api/v1/feedback/process", "application/json", nil)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Feedback processing failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		r, err := components.Feedback.ProcessPending(context.Background())
		if err != nil {
			fmt.Printf("Feedback processing failed: %v\n", err)
			os.Exit(1)
		}
		report = *r
	}

	fmt.Printf("processed: %d  skipped: %d  failed: %d  chunks: %d\n",
		report.Processed, report.Skipped, report.Failed, report.Chunks)
}

// Components holds initialized services.
type Components struct {
	Store       storage.Store
	Provider    *embedding.Provider
	VectorIndex vector.Index
	Lexical     *lexical.Index
	Extractor   *extract.Extractor
	Indexer     *indexer.Indexer
	Retriever   *retriever.Retriever
	Builder     *contextbuilder.Builder
	Feedback    *feedback.Loop
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Lexical != nil {
		_ = c.Lexical.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider := embedding.NewProvider(embedding.Config{
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	}, logger)

	vectorIndex, err := vector.New(cfg.Storage.VectorIndexKind, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("kind", cfg.Storage.VectorIndexKind),
		zap.Bool("faiss_available", vector.FAISSAvailable()))

	lex, err := lexical.Open(cfg.Storage.LexicalIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lexical index: %w", err)
	}

	ch := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap, token.Default())

	idx := indexer.New(store, provider, vectorIndex, lex, ch, indexer.WithLogger(logger))

	ret := retriever.New(store, provider, vectorIndex, lex, retriever.Options{
		TopK:            cfg.Retrieval.TopK,
		CandidatePool:   cfg.Retrieval.CandidatePool,
		ScoreThreshold:  cfg.Retrieval.ScoreThreshold,
		LexicalWeight:   cfg.Retrieval.LexicalWeight,
		VectorWeight:    cfg.Retrieval.VectorWeight,
		MinViableChunks: cfg.Retrieval.MinViableChunks,
	}, logger)

	builder := contextbuilder.New(cfg.Retrieval.ContextMaxTokens, token.Default())
	loop := feedback.New(store, idx, logger)

	return &Components{
		Store:       store,
		Provider:    provider,
		VectorIndex: vectorIndex,
		Lexical:     lex,
		Extractor:   extract.NewExtractor(),
		Indexer:     idx,
		Retriever:   ret,
		Builder:     builder,
		Feedback:    loop,
	}, nil
}

func printUsage() {
	fmt.Println(`ragcore - Local hybrid retrieval core for grounded content generation

Usage:
  ragcore server [flags]            Start the HTTP server
  ragcore query [flags] <query>     Run hybrid retrieval
  ragcore index [flags] <path>      Index a file or directory
  ragcore delete [flags] <id>       Delete a source and its chunks
  ragcore stats [flags]             Show storage and index stats
  ragcore feedback [flags]          Index pending approved outputs
  ragcore version                   Show version
  ragcore help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ragcore/config.yaml)
  --debug            Enable debug logging (retrieval scoring, file ingestion, etc.)

Query Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to use direct storage when server is not running.
  --top-k int        Number of chunks to return (0 = configured default)
  --context          Print the assembled context block instead of per-chunk scores
  --output string    Output format: text or json (default: text)

Index Flags:
  --config string    Config file path
  --id string        Source id (default: file path)
  --title string     Source title (default: filename without extension)

Delete, Stats, Feedback Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.

Examples:
  ragcore server
  ragcore query "postgres connection pooling"
  ragcore query --context --top-k 5 incident response
  ragcore query --output json "query"   # structured JSON for other apps
  ragcore index --id guides/scaling.md docs/scaling.md
  ragcore index ./docs
  ragcore delete guides/scaling.md
  ragcore stats
  ragcore feedback`)
}
