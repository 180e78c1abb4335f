package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_retrievalOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  top_k: 25
  score_threshold: 0.3
  lexical_weight: 0.7
  vector_weight: 0.3
  min_viable_chunks: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Retrieval.TopK != 25 || cfg.Retrieval.ScoreThreshold != 0.3 {
		t.Errorf("retrieval overrides lost: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.LexicalWeight != 0.7 || cfg.Retrieval.VectorWeight != 0.3 {
		t.Errorf("weights lost: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.MinViableChunks != 2 {
		t.Errorf("min_viable_chunks = %d", cfg.Retrieval.MinViableChunks)
	}
	// Untouched fields still get defaults.
	if cfg.Retrieval.CandidatePool != 50 || cfg.Retrieval.ContextMaxTokens != 400 {
		t.Errorf("defaults missing: %+v", cfg.Retrieval)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/ragcore.db"
ingest:
  drop_dir: "./dropbox"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "ragcore.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantDrop := filepath.Join(dir, "dropbox")
	if cfg.Ingest.DropDir != wantDrop {
		t.Errorf("drop_dir = %s, want %s", cfg.Ingest.DropDir, wantDrop)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Chunking.Size != 300 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 10 || cfg.Retrieval.ScoreThreshold != 0.5 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.LexicalWeight != 0.5 || cfg.Retrieval.VectorWeight != 0.5 {
		t.Errorf("weight defaults: %+v", cfg.Retrieval)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Storage.VectorIndexKind != "auto" {
		t.Errorf("vector index kind: got %s", cfg.Storage.VectorIndexKind)
	}
	if cfg.Ingest.DropDir != "" {
		t.Errorf("drop_dir should stay empty by default: %q", cfg.Ingest.DropDir)
	}
}

func TestApplyDefaults_KeepsOneSidedWeights(t *testing.T) {
	cfg := &Config{}
	cfg.Retrieval.LexicalWeight = 1.0
	ApplyDefaults(cfg)
	if cfg.Retrieval.LexicalWeight != 1.0 || cfg.Retrieval.VectorWeight != 0 {
		t.Errorf("explicit one-sided weights overwritten: %+v", cfg.Retrieval)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
