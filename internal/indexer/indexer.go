package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/fileid"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"github.com/hyperjump/yomu/internal/vector"
	"github.com/hyperjump/yomu/pkg/utils"
)

var (
	// ErrEmptyContent is returned when a file yields no text to index.
	ErrEmptyContent = errors.New("document has no extractable text")
	// ErrTooLarge is returned when a file exceeds the upload limit.
	ErrTooLarge = errors.New("file exceeds upload size limit")
)

// VectorStore builds and removes per-document vector indices. *vector.Catalog implements it.
type VectorStore interface {
	Build(ctx context.Context, docID string, chunks []models.Chunk) (*vector.Index, error)
	Delete(docID string) error
}

// Indexer ingests files into the registry, the vector store and the keyword index.
type Indexer struct {
	storage   storage.Storage
	vectors   VectorStore
	keywords  keyword.Index
	chunker   *Chunker
	extractor *extract.Extractor
	ingest    config.IngestConfig
	uploadDir string
	maxBytes  int64
	logger    *zap.Logger // optional; when set, logs ingest events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingest events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer. Upload copies are kept in cfg.Storage.UploadDir.
func NewIndexer(
	store storage.Storage,
	vectors VectorStore,
	keywords keyword.Index,
	cfg *config.Config,
	opts ...IndexerOption,
) (*Indexer, error) {
	chunker, err := NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	idx := &Indexer{
		storage:   store,
		vectors:   vectors,
		keywords:  keywords,
		chunker:   chunker,
		extractor: extract.NewExtractor(),
		ingest:    cfg.Ingest,
		uploadDir: cfg.Storage.UploadDir,
		maxBytes:  cfg.Server.MaxUploadBytes,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// IngestBytes ingests an uploaded file under a new random ID.
func (idx *Indexer) IngestBytes(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	return idx.ingestBytes(ctx, fileid.New(), filename, data)
}

// IngestFile reads the file at path and ingests it under a new random ID.
func (idx *Indexer) IngestFile(ctx context.Context, path string) (*models.Document, error) {
	data, err := idx.readFile(path)
	if err != nil {
		return nil, err
	}
	return idx.IngestBytes(ctx, filepath.Base(path), data)
}

// IngestFileWithID ingests the file at path under id, replacing any document
// already stored under that id. A file whose size matches the stored document
// and that has not been modified since it was ingested is skipped.
func (idx *Indexer) IngestFileWithID(ctx context.Context, id, path string) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if existing, err := idx.storage.GetDocument(ctx, id); err == nil {
		if existing.FileSize == info.Size() && existing.UpdatedAt.After(info.ModTime()) {
			if idx.logger != nil {
				idx.logger.Debug("skipping unchanged file", zap.String("path", path))
			}
			return existing, nil
		}
		if err := idx.DeleteDocument(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("replace document: %w", err)
		}
	}
	data, err := idx.readFile(path)
	if err != nil {
		return nil, err
	}
	return idx.ingestBytes(ctx, id, filepath.Base(path), data)
}

func (idx *Indexer) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if idx.maxBytes > 0 && info.Size() > idx.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// ingestBytes extracts, chunks and indexes data. The registry row is written
// last, so a registered document always has its indices.
func (idx *Indexer) ingestBytes(ctx context.Context, id, filename string, data []byte) (*models.Document, error) {
	name := sanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !idx.ingest.IsAllowedExtension(ext) || !extract.Supports(ext) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedType, ext)
	}
	if idx.maxBytes > 0 && int64(len(data)) > idx.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	text, err := idx.extractor.ExtractBytes(data, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	text = Preprocess(text)
	chunks, err := idx.chunker.Split(id, text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, name)
	}

	uploadPath := filepath.Join(idx.uploadDir, id+"_"+name)
	if err := os.WriteFile(uploadPath, data, 0644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	doc := &models.Document{
		ID:          id,
		Filename:    name,
		FilePath:    uploadPath,
		ContentType: extract.ContentType(ext),
		FileSize:    int64(len(data)),
		Content:     text,
		Preview:     utils.Truncate(text, idx.ingest.PreviewChars),
		ChunkCount:  len(chunks),
	}

	if _, err := idx.vectors.Build(ctx, id, chunks); err != nil {
		_ = os.Remove(uploadPath)
		return nil, fmt.Errorf("build vector index: %w", err)
	}
	if err := idx.keywords.Index(ctx, doc); err != nil {
		idx.rollback(ctx, id, uploadPath)
		return nil, fmt.Errorf("keyword index: %w", err)
	}
	if err := idx.storage.SaveDocument(ctx, doc); err != nil {
		idx.rollback(ctx, id, uploadPath)
		return nil, fmt.Errorf("save document: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Info("document ingested",
			zap.String("document_id", id),
			zap.String("filename", name),
			zap.Int("chunks", len(chunks)),
			zap.Int("characters", len([]rune(text))))
	}
	return doc, nil
}

func (idx *Indexer) rollback(ctx context.Context, id, uploadPath string) {
	_ = idx.vectors.Delete(id)
	_ = idx.keywords.Delete(ctx, id)
	_ = os.Remove(uploadPath)
}

// DeleteDocument removes a document from the registry, both indices and the
// upload directory. Unknown ids yield an error wrapping storage.ErrNotFound.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := idx.vectors.Delete(id); err != nil {
		return fmt.Errorf("delete vector index: %w", err)
	}
	if err := idx.keywords.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete from keyword index: %w", err)
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) && idx.logger != nil {
			idx.logger.Warn("failed to remove upload", zap.String("path", doc.FilePath), zap.Error(err))
		}
	}
	if idx.logger != nil {
		idx.logger.Info("document deleted", zap.String("document_id", id))
	}
	return nil
}

// sanitizeFilename keeps the base name and drops characters that are unsafe in paths.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '/' || r == ':' {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "" {
		return "upload"
	}
	return name
}
