// Package keyword provides full-text search across documents by filename and content.
package keyword

import (
	"context"

	"github.com/hyperjump/yomu/internal/models"
)

// Index defines keyword search operations over whole documents.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID        string   `json:"document_id"`
	Filename  string   `json:"filename"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}
