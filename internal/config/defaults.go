package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 50 << 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/yomu.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "./data/indices/vectors"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "./data/uploads"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "./data/indices/bleve"
	}
	if cfg.Ingest.AllowedExtensions == nil {
		cfg.Ingest.AllowedExtensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx"}
	}
	if cfg.Ingest.PreviewChars == 0 {
		cfg.Ingest.PreviewChars = 5000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "googleai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultEmbeddingModel(cfg.Embedding.Provider)
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = defaultKeyEnv(cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "googleai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultChatModel(cfg.LLM.Provider)
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = defaultKeyEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 0.9
	}
	if cfg.LLM.TopK == 0 {
		cfg.LLM.TopK = 40
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 8192
	}
	if cfg.LLM.MinInterval == 0 {
		cfg.LLM.MinInterval = 4 * time.Second
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Summary.ContentChars == 0 {
		cfg.Summary.ContentChars = 8000
	}
	if cfg.Summary.MaxOutputTokens == 0 {
		cfg.Summary.MaxOutputTokens = 200
	}
	if cfg.Quiz.ContentChars == 0 {
		cfg.Quiz.ContentChars = 6000
	}
	if cfg.Quiz.DefaultQuestions == 0 {
		cfg.Quiz.DefaultQuestions = 3
	}
	if cfg.Quiz.MaxQuestions == 0 {
		cfg.Quiz.MaxQuestions = 10
	}
	if cfg.Quiz.DefaultDifficulty == "" {
		cfg.Quiz.DefaultDifficulty = "medium"
	}
	if cfg.Quiz.EvaluationContextChars == 0 {
		cfg.Quiz.EvaluationContextChars = 2000
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}

func defaultChatModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "ollama":
		return "llama3.1"
	default:
		return "gemini-1.5-flash"
	}
}

func defaultEmbeddingModel(provider string) string {
	switch provider {
	case "openai":
		return "text-embedding-3-small"
	default:
		return "text-embedding-004"
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "googleai":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
