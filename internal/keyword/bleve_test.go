package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/yomu/internal/models"
)

func newTestIndex(t *testing.T, path string, opts ...Option) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(path, opts...)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "bleve"))
	ctx := context.Background()
	doc := &models.Document{
		ID:       "doc-1",
		Filename: "Monthly Report 17 - May 2023.docx",
		Content:  "This report mentions Omnisyan and other findings. The Bayes app is also referenced.",
	}
	if err := idx.Index(ctx, doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	results, err := idx.Search(ctx, "Omnisyan", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc-1" {
		t.Fatalf("expected doc-1, got %+v", results)
	}
	if results[0].Filename != "Monthly Report 17 - May 2023.docx" {
		t.Errorf("Filename = %q", results[0].Filename)
	}
	if len(results[0].Fragments) == 0 {
		t.Error("expected a highlighted content fragment")
	}

	// No stemming: "bayes" matches "Bayes".
	results, err = idx.Search(ctx, "bayes", 10)
	if err != nil {
		t.Fatalf("Search bayes: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected one hit for bayes, got %d", len(results))
	}
}

func TestBleveIndex_FilenameOutranksContent(t *testing.T) {
	idx := newTestIndex(t, "")
	ctx := context.Background()
	docs := []*models.Document{
		{ID: "body", Filename: "notes.txt", Content: "The budget was discussed at length."},
		{ID: "name", Filename: "annual_budget_2023.xlsx", Content: "Sheet: Totals"},
	}
	for _, d := range docs {
		if err := idx.Index(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	results, err := idx.Search(ctx, "budget", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "name" {
		t.Errorf("filename match should rank first, got %q", results[0].ID)
	}

	// Underscores are indexed as spaces.
	results, err = idx.Search(ctx, "annual", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "name" {
		t.Errorf("expected filename word match, got %+v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t, "", WithFuzziness(1))
	ctx := context.Background()
	if err := idx.Index(ctx, &models.Document{ID: "d", Filename: "a.txt", Content: "photosynthesis in plants"}); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "photosynthesys", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected a fuzzy match, got %d results", len(results))
	}
}

func TestBleveIndex_DeleteAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if err := idx.Index(ctx, &models.Document{ID: id, Filename: id + ".txt", Content: "shared words"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx = newTestIndex(t, path)
	n, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}
	results, err := idx.Search(ctx, "shared", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Errorf("expected only b, got %+v", results)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := newTestIndex(t, "")
	results, err := idx.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
