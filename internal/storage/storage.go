// Package storage defines the document registry and question history.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/yomu/internal/models"
)

// ErrNotFound is returned when a document does not exist in the registry.
var ErrNotFound = errors.New("document not found")

// Storage defines document registry and question history operations.
type Storage interface {
	// Document operations
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentContent(ctx context.Context, id string) (string, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// History operations
	RecordQuestion(ctx context.Context, rec *models.QuestionRecord) error
	ListQuestions(ctx context.Context, docID string, limit int) ([]*models.QuestionRecord, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountQuestions(ctx context.Context) (int64, error)

	Close() error
}

// ContentSource reads a document's extracted text. Implemented by Storage.
type ContentSource interface {
	GetDocumentContent(ctx context.Context, id string) (string, error)
}
