package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fileid"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
)

type testEnv struct {
	idx      *Indexer
	store    *storage.SQLiteStorage
	catalog  *vector.Catalog
	keywords *keyword.BleveIndex
	cfg      *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Storage.DatabasePath = filepath.Join(dir, "yomu.db")
	cfg.Storage.IndexDir = filepath.Join(dir, "indices")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Chunking.ChunkSize = 80
	cfg.Chunking.ChunkOverlap = 10
	cfg.Server.MaxUploadBytes = 1 << 20

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	catalog, err := vector.NewCatalog(cfg.Storage.IndexDir, embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	idx, err := NewIndexer(store, catalog, kw, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{idx: idx, store: store, catalog: catalog, keywords: kw, cfg: cfg}
}

const sampleDoc = `Photosynthesis converts light energy into chemical energy.

Plants use chlorophyll to absorb light. The process releases oxygen as a by-product.

Cellular respiration is the reverse process, consuming oxygen and releasing carbon dioxide.`

func TestIngestBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.idx.IngestBytes(ctx, "biology notes.txt", []byte(sampleDoc))
	if err != nil {
		t.Fatalf("IngestBytes: %v", err)
	}
	if doc.ChunkCount < 2 {
		t.Errorf("expected several chunks, got %d", doc.ChunkCount)
	}
	if doc.ContentType != "text/plain" {
		t.Errorf("ContentType = %q", doc.ContentType)
	}

	stored, err := env.store.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if stored.ChunkCount != doc.ChunkCount || stored.Filename != "biology notes.txt" {
		t.Errorf("stored document mismatch: %+v", stored)
	}
	content, err := env.store.GetDocumentContent(ctx, doc.ID)
	if err != nil || !strings.Contains(content, "chlorophyll") {
		t.Errorf("content not stored: %q, %v", content, err)
	}

	ix, err := env.catalog.Load(doc.ID)
	if err != nil {
		t.Fatalf("vector index missing: %v", err)
	}
	if ix.Size() != doc.ChunkCount {
		t.Errorf("vector index has %d chunks, document says %d", ix.Size(), doc.ChunkCount)
	}

	hits, err := env.keywords.Search(ctx, "chlorophyll", 5)
	if err != nil || len(hits) != 1 || hits[0].ID != doc.ID {
		t.Errorf("keyword index missing document: %+v, %v", hits, err)
	}

	if filepath.Base(doc.FilePath) != doc.ID+"_biology notes.txt" {
		t.Errorf("unexpected upload path %q", doc.FilePath)
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		t.Errorf("upload copy missing: %v", err)
	}
}

func TestIngestBytes_rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.idx.IngestBytes(ctx, "script.go", []byte("package main")); !errors.Is(err, extract.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := env.idx.IngestBytes(ctx, "blank.txt", []byte(" \n\n\t ")); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
	big := make([]byte, env.cfg.Server.MaxUploadBytes+1)
	if _, err := env.idx.IngestBytes(ctx, "big.txt", big); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	n, _ := env.store.CountDocuments(ctx)
	if n != 0 {
		t.Errorf("rejected uploads must not be registered, got %d documents", n)
	}
	entries, _ := os.ReadDir(env.cfg.Storage.UploadDir)
	if len(entries) != 0 {
		t.Errorf("rejected uploads must not be kept, found %d files", len(entries))
	}
}

func TestIngestBytes_excel(t *testing.T) {
	env := newTestEnv(t)
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Region")
	_ = f.SetCellValue("Sheet1", "B1", "Revenue")
	_ = f.SetCellValue("Sheet1", "A2", "North")
	_ = f.SetCellValue("Sheet1", "B2", 1200)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	doc, err := env.idx.IngestBytes(context.Background(), "sales.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("IngestBytes: %v", err)
	}
	content, _ := env.store.GetDocumentContent(context.Background(), doc.ID)
	if !strings.Contains(content, "North") {
		t.Errorf("spreadsheet text missing: %q", content)
	}
}

func TestIngestFileWithID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "inbox note.md")
	if err := os.WriteFile(path, []byte("# Title\n\nFirst version about rivers."), 0644); err != nil {
		t.Fatal(err)
	}
	id := fileid.ForPath(path)

	first, err := env.idx.IngestFileWithID(ctx, id, path)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.ID != id {
		t.Errorf("ID = %q, want %q", first.ID, id)
	}

	// Unchanged file is skipped.
	again, err := env.idx.IngestFileWithID(ctx, id, path)
	if err != nil {
		t.Fatal(err)
	}
	if !again.UpdatedAt.Equal(first.UpdatedAt) {
		t.Error("unchanged file should not be re-ingested")
	}

	// A rewrite replaces the document under the same ID.
	later := time.Now().Add(time.Minute)
	if err := os.WriteFile(path, []byte("# Title\n\nSecond version about mountains and valleys."), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if _, err := env.idx.IngestFileWithID(ctx, id, path); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	content, _ := env.store.GetDocumentContent(ctx, id)
	if !strings.Contains(content, "mountains") || strings.Contains(content, "rivers") {
		t.Errorf("document not replaced: %q", content)
	}
	n, _ := env.store.CountDocuments(ctx)
	if n != 1 {
		t.Errorf("expected one document, got %d", n)
	}
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc, err := env.idx.IngestBytes(ctx, "notes.txt", []byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}

	if err := env.idx.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := env.store.GetDocument(ctx, doc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("registry row should be gone, got %v", err)
	}
	if _, err := env.catalog.Load(doc.ID); !errors.Is(err, vector.ErrNotFound) {
		t.Errorf("vector index should be gone, got %v", err)
	}
	if hits, _ := env.keywords.Search(ctx, "chlorophyll", 5); len(hits) != 0 {
		t.Errorf("keyword index should be empty, got %d hits", len(hits))
	}
	if _, err := os.Stat(doc.FilePath); !os.IsNotExist(err) {
		t.Errorf("upload should be removed, got %v", err)
	}

	if err := env.idx.DeleteDocument(ctx, doc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd.txt", "passwd.txt"},
		{`C:\Users\me\notes.md`, "notes.md"},
		{"a:b.txt", "a_b.txt"},
		{"", "upload"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
