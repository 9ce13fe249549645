// Package models defines core data structures for documents, chunks, answers, and quizzes.
package models

import "time"

// Document represents an uploaded document in the registry.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	FilePath    string    `json:"file_path" db:"file_path"`
	ContentType string    `json:"content_type" db:"content_type"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	Content     string    `json:"-" db:"content"`
	Preview     string    `json:"preview,omitempty" db:"-"`
	ChunkCount  int       `json:"chunk_count" db:"chunk_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Chunk is a bounded passage of a document. Index is the 0-based position in
// the document's chunk sequence. Chunks are never modified after creation.
type Chunk struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// DocumentStatistics describes how well a document supports challenge mode.
type DocumentStatistics struct {
	DocumentID           string       `json:"document_id"`
	Filename             string       `json:"filename"`
	CreatedAt            time.Time    `json:"created_at"`
	ChunkCount           int          `json:"chunk_count"`
	ContentLength        int          `json:"content_length"`
	WordCount            int          `json:"word_count"`
	SuitableForQuestions bool         `json:"suitable_for_questions"`
	Difficulties         []Difficulty `json:"supported_difficulties"`
}

// UploadResponse is returned after a document is ingested.
type UploadResponse struct {
	Document *Document `json:"document"`
	Summary  string    `json:"summary"`
	Message  string    `json:"message"`
}
