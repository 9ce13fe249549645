package vector

import (
	"math"
	"testing"

	"github.com/hyperjump/yomu/internal/models"
)

func chunk(i int, text string) models.Chunk {
	return models.Chunk{Index: i, Text: text, DocumentID: "doc"}
}

func TestIndex_Search(t *testing.T) {
	ix, err := NewIndex("doc", 3)
	if err != nil {
		t.Fatal(err)
	}
	vecs := [][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.9, 0.1, 0},
	}
	for i, v := range vecs {
		if err := ix.Add(chunk(i, "c"), v); err != nil {
			t.Fatal(err)
		}
	}
	if ix.Size() != 3 {
		t.Errorf("Size=%d", ix.Size())
	}

	results, err := ix.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Index != 1 || results[1].Index != 2 {
		t.Errorf("unexpected order: %d, %d", results[0].Index, results[1].Index)
	}
}

func TestIndex_SearchTiesKeepChunkOrder(t *testing.T) {
	ix, _ := NewIndex("doc", 2)
	// Added out of order on purpose; every vector scores the same.
	for _, i := range []int{3, 0, 2, 1} {
		if err := ix.Add(chunk(i, "same"), []float32{1, 1}); err != nil {
			t.Fatal(err)
		}
	}
	results, err := ix.Search([]float32{1, 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	for want, got := range results {
		if got.Index != want {
			t.Errorf("position %d has chunk %d", want, got.Index)
		}
	}
}

func TestIndex_SearchMoreThanAvailable(t *testing.T) {
	ix, _ := NewIndex("doc", 2)
	_ = ix.Add(chunk(0, "a"), []float32{1, 0})
	_ = ix.Add(chunk(1, "b"), []float32{0, 1})
	results, err := ix.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected all 2 chunks, got %d", len(results))
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ix, _ := NewIndex("doc", 2)
	if err := ix.Add(chunk(0, "a"), []float32{1, 0, 0}); err == nil {
		t.Error("expected error adding wrong dimension")
	}
	if _, err := ix.Search([]float32{1}, 1); err == nil {
		t.Error("expected error searching wrong dimension")
	}
	if _, err := NewIndex("doc", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestIndex_Chunks(t *testing.T) {
	ix, _ := NewIndex("doc", 1)
	_ = ix.Add(chunk(1, "b"), []float32{1})
	_ = ix.Add(chunk(0, "a"), []float32{1})
	got := ix.Chunks()
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}
