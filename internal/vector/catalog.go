package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/models"
)

const indexFileExt = ".yvx"

// Catalog persists one Index per document under a directory and keeps recently
// used indices in memory. Builds and deletes take the write lock, loads take the
// read lock, so a query never observes a half-written index.
type Catalog struct {
	dir      string
	embedder embedding.Embedder
	loaded   *gocache.Cache
	mu       sync.RWMutex
	logger   *zap.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = l }
}

// WithCacheTTL sets how long a loaded index stays in memory after its last use.
func WithCacheTTL(ttl time.Duration) CatalogOption {
	return func(c *Catalog) { c.loaded = gocache.New(ttl, ttl) }
}

// NewCatalog opens (creating if needed) an index directory. The embedder is
// used for both chunk and question embeddings.
func NewCatalog(dir string, embedder embedding.Embedder, opts ...CatalogOption) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	c := &Catalog{
		dir:      dir,
		embedder: embedder,
		loaded:   gocache.New(30*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Catalog) path(docID string) (string, error) {
	if docID == "" || strings.ContainsAny(docID, `/\`) || strings.Contains(docID, "..") {
		return "", fmt.Errorf("invalid document id %q", docID)
	}
	return filepath.Join(c.dir, docID+indexFileExt), nil
}

// Build embeds every chunk and persists the index for docID, replacing any
// previous one. Building with no chunks is an error.
func (c *Catalog) Build(ctx context.Context, docID string, chunks []models.Chunk) (*Index, error) {
	path, err := c.path(docID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("build index for %s: no chunks", docID)
	}
	vecs, err := c.embedder.EmbedBatch(ctx, models.Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d embeddings for %d chunks", len(vecs), len(chunks))
	}
	ix, err := NewIndex(docID, len(vecs[0]))
	if err != nil {
		return nil, err
	}
	for i, ch := range chunks {
		if err := ix.Add(ch, vecs[i]); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", ch.Index, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := saveFile(path, ix); err != nil {
		return nil, err
	}
	c.loaded.Set(docID, ix, gocache.DefaultExpiration)
	if c.logger != nil {
		c.logger.Debug("vector index built", zap.String("document_id", docID), zap.Int("chunks", ix.Size()))
	}
	return ix, nil
}

// Load returns the index for docID, or an error wrapping ErrNotFound when none exists.
func (c *Catalog) Load(docID string) (*Index, error) {
	if v, ok := c.loaded.Get(docID); ok {
		return v.(*Index), nil
	}
	path, err := c.path(docID)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	ix, err := loadFile(path)
	c.mu.RUnlock()
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", docID, err)
	}
	c.loaded.Set(docID, ix, gocache.DefaultExpiration)
	return ix, nil
}

// Query embeds question and returns the k most similar chunks of ix. A nil or
// empty index yields an empty result.
func (c *Catalog) Query(ctx context.Context, ix *Index, question string, k int) ([]models.Chunk, error) {
	if ix == nil || ix.Size() == 0 || k <= 0 {
		return nil, nil
	}
	qvec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return ix.Search(qvec, k)
}

// Delete removes the index for docID. Deleting a missing index is not an error.
func (c *Catalog) Delete(docID string) error {
	path, err := c.path(docID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded.Delete(docID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove index %s: %w", docID, err)
	}
	if c.logger != nil {
		c.logger.Debug("vector index deleted", zap.String("document_id", docID))
	}
	return nil
}

// Exists reports whether an index file exists for docID.
func (c *Catalog) Exists(docID string) bool {
	path, err := c.path(docID)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Count returns the number of persisted indices.
func (c *Catalog) Count() (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*"+indexFileExt))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Loaded returns the number of indices currently held in memory.
func (c *Catalog) Loaded() int {
	return c.loaded.ItemCount()
}
