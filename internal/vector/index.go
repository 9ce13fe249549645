// Package vector stores per-document chunk embeddings and ranks chunks by cosine similarity.
package vector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/yomu/internal/models"
)

// ErrNotFound is returned when no index exists for a document.
var ErrNotFound = errors.New("vector index not found")

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk  models.Chunk
	Vector []float32
}

// Index holds the embeddings of one document's chunks. An Index is not
// modified after it is published by a Catalog, so concurrent searches are safe.
type Index struct {
	documentID string
	dimensions int
	entries    []Entry
}

// NewIndex creates an empty index for docID with the given vector dimension.
func NewIndex(docID string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{documentID: docID, dimensions: dimensions}, nil
}

// Add appends a chunk and its vector. The vector is copied.
func (ix *Index) Add(chunk models.Chunk, vec []float32) error {
	if len(vec) != ix.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), ix.dimensions)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	ix.entries = append(ix.entries, Entry{Chunk: chunk, Vector: cp})
	return nil
}

// Search returns up to k chunks ordered by descending cosine similarity to
// query. Equal scores keep the lower chunk index first.
func (ix *Index) Search(query []float32, k int) ([]models.Chunk, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.dimensions)
	}
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}
	type scored struct {
		chunk models.Chunk
		score float64
	}
	scores := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		scores[i] = scored{chunk: e.Chunk, score: CosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].chunk.Index < scores[j].chunk.Index
	})
	k = min(k, len(scores))
	result := make([]models.Chunk, k)
	for i := 0; i < k; i++ {
		result[i] = scores[i].chunk
	}
	return result, nil
}

// DocumentID returns the document the index belongs to.
func (ix *Index) DocumentID() string { return ix.documentID }

// Dimensions returns the vector dimension.
func (ix *Index) Dimensions() int { return ix.dimensions }

// Size returns the number of chunks in the index.
func (ix *Index) Size() int { return len(ix.entries) }

// Chunks returns the indexed chunks in document order.
func (ix *Index) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.Chunk
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
