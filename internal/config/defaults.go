package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/ragcore/data/db/ragcore.db"
	}
	if cfg.Storage.LexicalIndexPath == "" {
		cfg.Storage.LexicalIndexPath = "/usr/local/var/ragcore/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/ragcore/data/indices/vectors"
	}
	if cfg.Storage.VectorIndexKind == "" {
		cfg.Storage.VectorIndexKind = "auto"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/ragcore/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 300
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.CandidatePool == 0 {
		cfg.Retrieval.CandidatePool = 50
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.5
	}
	if cfg.Retrieval.LexicalWeight == 0 && cfg.Retrieval.VectorWeight == 0 {
		cfg.Retrieval.LexicalWeight = 0.5
		cfg.Retrieval.VectorWeight = 0.5
	}
	if cfg.Retrieval.MinViableChunks == 0 {
		cfg.Retrieval.MinViableChunks = 1
	}
	if cfg.Retrieval.ContextMaxTokens == 0 {
		cfg.Retrieval.ContextMaxTokens = 400
	}
}
