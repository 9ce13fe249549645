package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/embedding"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/vector"
)

type failingStore struct {
	loadErr  error
	queryErr error
}

func (f *failingStore) Load(docID string) (*vector.Index, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return vector.NewIndex(docID, 2)
}

func (f *failingStore) Query(context.Context, *vector.Index, string, int) ([]models.Chunk, error) {
	return nil, f.queryErr
}

func newCatalog(t *testing.T) *vector.Catalog {
	t.Helper()
	c, err := vector.NewCatalog(t.TempDir(), embedding.NewMockEmbedder(128))
	require.NoError(t, err)
	texts := []string{
		"The mitochondria is the powerhouse of the cell.",
		"Rivers flow from mountains to the sea.",
		"Cell membranes control what enters the cell.",
	}
	chunks := make([]models.Chunk, len(texts))
	for i, s := range texts {
		chunks[i] = models.Chunk{Index: i, Text: s, DocumentID: "doc"}
	}
	_, err = c.Build(context.Background(), "doc", chunks)
	require.NoError(t, err)
	return c
}

func TestRetriever(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return the most relevant chunk texts first", func(t *testing.T) {
		r := NewRetriever(newCatalog(t))
		got := r.Retrieve(ctx, "doc", "Where do rivers flow to the sea?", 1)
		require.Len(t, got, 1)
		assert.Equal(t, "Rivers flow from mountains to the sea.", got[0])
	})

	t.Run("Should return every chunk when k exceeds the index size", func(t *testing.T) {
		r := NewRetriever(newCatalog(t))
		assert.Len(t, r.Retrieve(ctx, "doc", "cell", 50), 3)
	})

	t.Run("Should use the default k when k is not positive", func(t *testing.T) {
		r := NewRetriever(newCatalog(t), WithTopK(2))
		assert.Len(t, r.Retrieve(ctx, "doc", "cell", 0), 2)
	})

	t.Run("Should return an empty result for an unknown document", func(t *testing.T) {
		r := NewRetriever(newCatalog(t), WithLogger(zap.NewNop()))
		got := r.Retrieve(ctx, "missing", "cell", 3)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Should swallow index errors", func(t *testing.T) {
		r := NewRetriever(&failingStore{loadErr: errors.New("disk on fire")}, WithLogger(zap.NewNop()))
		assert.Empty(t, r.Retrieve(ctx, "doc", "q", 3))

		r = NewRetriever(&failingStore{queryErr: errors.New("embedding quota")})
		assert.Empty(t, r.Retrieve(ctx, "doc", "q", 3))
	})

	t.Run("Should be deterministic for the same question", func(t *testing.T) {
		r := NewRetriever(newCatalog(t))
		first := r.Retrieve(ctx, "doc", "what controls the cell", 3)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, r.Retrieve(ctx, "doc", "what controls the cell", 3))
		}
	})
}
