package models

import (
	"fmt"
	"strings"
	"time"
)

// GroundedAnswer is an answer constrained to supplied context. Confidence is a
// fixed heuristic, not a calibrated probability.
type GroundedAnswer struct {
	Text       string   `json:"answer"`
	References []string `json:"references"`
	Confidence float64  `json:"confidence"`
}

// QAResult is a grounded answer with the source passages it was produced from.
type QAResult struct {
	GroundedAnswer
	DocumentID     string   `json:"document_id"`
	Question       string   `json:"question"`
	SourceSnippets []string `json:"source_snippets"`
	ResponseTimeMs int64    `json:"response_time_ms"`
}

// QuestionRequest asks a free-form question about one document.
type QuestionRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
}

// Validate trims the request and checks required fields.
func (r *QuestionRequest) Validate() error {
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	r.Question = strings.TrimSpace(r.Question)
	if r.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidRequest)
	}
	if r.Question == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidRequest)
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", ErrInvalidRequest)
	}
	return nil
}

// QuestionType distinguishes history entries.
type QuestionType string

const (
	QuestionTypeQA        QuestionType = "qa"
	QuestionTypeChallenge QuestionType = "challenge"
)

// QuestionRecord is one entry of a document's question history.
type QuestionRecord struct {
	ID             string       `json:"id"`
	DocumentID     string       `json:"document_id"`
	Question       string       `json:"question"`
	Answer         string       `json:"answer"`
	Type           QuestionType `json:"question_type"`
	ResponseTimeMs int64        `json:"response_time_ms"`
	CreatedAt      time.Time    `json:"created_at"`
}
