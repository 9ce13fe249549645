// Package retrieval returns the chunks of a document most relevant to a question.
package retrieval

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/vector"
)

// DefaultTopK is used when a caller passes a non-positive k.
const DefaultTopK = 5

// IndexStore loads and queries per-document vector indices. *vector.Catalog implements it.
type IndexStore interface {
	Load(docID string) (*vector.Index, error)
	Query(ctx context.Context, ix *vector.Index, question string, k int) ([]models.Chunk, error)
}

// Retriever looks up relevant chunk texts. An empty result means nothing
// relevant was found; it is never an error.
type Retriever struct {
	store  IndexStore
	topK   int
	logger *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for index failures.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithTopK sets the k used when Retrieve is called with k <= 0.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewRetriever creates a retriever over store.
func NewRetriever(store IndexStore, opts ...Option) *Retriever {
	r := &Retriever{store: store, topK: DefaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k chunk texts ordered by relevance. A missing index
// or any index error yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, docID, question string, k int) []string {
	return models.Texts(r.RetrieveChunks(ctx, docID, question, k))
}

// RetrieveChunks is Retrieve keeping chunk positions.
func (r *Retriever) RetrieveChunks(ctx context.Context, docID, question string, k int) []models.Chunk {
	if k <= 0 {
		k = r.topK
	}
	ix, err := r.store.Load(docID)
	if err != nil {
		r.warn("index unavailable", docID, err)
		return []models.Chunk{}
	}
	chunks, err := r.store.Query(ctx, ix, question, k)
	if err != nil {
		r.warn("index query failed", docID, err)
		return []models.Chunk{}
	}
	if chunks == nil {
		return []models.Chunk{}
	}
	return chunks
}

func (r *Retriever) warn(msg, docID string, err error) {
	if r.logger == nil {
		return
	}
	if errors.Is(err, vector.ErrNotFound) {
		r.logger.Debug(msg, zap.String("document_id", docID), zap.Error(err))
		return
	}
	r.logger.Warn(msg, zap.String("document_id", docID), zap.Error(err))
}
