package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
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
llm:
  provider: openai
  min_interval: 2s
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
	if cfg.LLM.MinInterval != 2*time.Second {
		t.Errorf("min_interval = %v, want 2s", cfg.LLM.MinInterval)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("openai defaults not applied: %+v", cfg.LLM)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
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
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/yomu.db"
  upload_dir: "./data/uploads"
watch:
  directories: ["./inbox"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "yomu.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if want := filepath.Join(dir, "data", "uploads"); cfg.Storage.UploadDir != want {
		t.Errorf("upload_dir = %s, want %s", cfg.Storage.UploadDir, want)
	}
	if want := filepath.Join(dir, "data", "indices", "vectors"); cfg.Storage.IndexDir != want {
		t.Errorf("default index_dir = %s, want %s", cfg.Storage.IndexDir, want)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "inbox"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestLoad_invalidChunking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
chunking:
  chunk_size: 100
  chunk_overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error when overlap equals chunk size")
	}
	if !strings.Contains(err.Error(), "chunk_overlap") {
		t.Errorf("error should name chunk_overlap: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 50*1024*1024 {
		t.Errorf("default max upload: got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("default chunking: got %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("default top_k: got %d", cfg.Retrieval.TopK)
	}
	if cfg.LLM.Model != "gemini-1.5-flash" || cfg.LLM.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("default llm: got %+v", cfg.LLM)
	}
	if cfg.LLM.MinInterval != 4*time.Second {
		t.Errorf("default min_interval: got %v", cfg.LLM.MinInterval)
	}
	if cfg.Quiz.ContentChars != 6000 || cfg.Summary.ContentChars != 8000 || cfg.Quiz.EvaluationContextChars != 2000 {
		t.Errorf("default content limits: quiz=%d summary=%d eval=%d",
			cfg.Quiz.ContentChars, cfg.Summary.ContentChars, cfg.Quiz.EvaluationContextChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestIngestConfig_IsAllowedExtension(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	for _, ext := range []string{".pdf", "txt", ".TXT", ".docx"} {
		if !cfg.Ingest.IsAllowedExtension(ext) {
			t.Errorf("%s should be allowed", ext)
		}
	}
	if cfg.Ingest.IsAllowedExtension(".exe") {
		t.Error(".exe should not be allowed")
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("YOMU_TEST_KEY", "from-env")
	c := LLMConfig{APIKeyEnv: "YOMU_TEST_KEY"}
	if got := c.ResolveAPIKey(); got != "from-env" {
		t.Errorf("got %q", got)
	}
	c.APIKey = "explicit"
	if got := c.ResolveAPIKey(); got != "explicit" {
		t.Errorf("explicit key should win, got %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := Default(dir)
	cfg.Retrieval.TopK = 7
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieval.TopK != 7 {
		t.Errorf("top_k = %d, want 7", loaded.Retrieval.TopK)
	}
	if loaded.LLM.MinInterval != 4*time.Second {
		t.Errorf("min_interval = %v after round trip", loaded.LLM.MinInterval)
	}
}
