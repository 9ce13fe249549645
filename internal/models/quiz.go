package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest marks a request that failed validation.
var ErrInvalidRequest = errors.New("invalid request")

// Difficulty is the quiz difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the supported levels in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty converts s (case-insensitive) to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q (want easy, medium, or hard)", ErrInvalidRequest, s)
}

// QuizQuestion is a multiple-choice comprehension question. CorrectAnswer is
// one of Options unless Degraded is set, in which case it holds the raw token
// the model emitted.
type QuizQuestion struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
	Degraded      bool       `json:"-"`
}

// AnswerInOptions reports whether CorrectAnswer is one of Options.
func (q *QuizQuestion) AnswerInOptions() bool {
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			return true
		}
	}
	return false
}

// EvaluationResult is the outcome of grading one answer. ModelScore is the
// score the model proposed; it is informational and never feeds Score.
type EvaluationResult struct {
	Score         int      `json:"score"`
	Feedback      string   `json:"feedback"`
	References    []string `json:"references"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	ModelScore    *int     `json:"model_score,omitempty"`
}

// ChallengeRequest asks for a set of quiz questions.
type ChallengeRequest struct {
	DocumentID   string     `json:"document_id"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	NumQuestions int        `json:"num_questions,omitempty"`
}

// Validate checks the request, filling defaults for empty difficulty and count.
func (r *ChallengeRequest) Validate(defaultDifficulty Difficulty, defaultCount, maxCount int) error {
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	if r.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidRequest)
	}
	if r.Difficulty == "" {
		r.Difficulty = defaultDifficulty
	}
	d, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return err
	}
	r.Difficulty = d
	if r.NumQuestions < 0 {
		return fmt.Errorf("%w: num_questions must not be negative", ErrInvalidRequest)
	}
	if r.NumQuestions == 0 {
		r.NumQuestions = defaultCount
	}
	if maxCount > 0 && r.NumQuestions > maxCount {
		r.NumQuestions = maxCount
	}
	return nil
}

// ChallengeResponse carries generated questions.
type ChallengeResponse struct {
	DocumentID string          `json:"document_id"`
	Difficulty Difficulty      `json:"difficulty"`
	Questions  []*QuizQuestion `json:"questions"`
}

// EvaluateRequest asks for one answer to be graded.
type EvaluateRequest struct {
	DocumentID    string `json:"document_id"`
	QuestionID    string `json:"question_id,omitempty"`
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Validate checks required fields.
func (r *EvaluateRequest) Validate() error {
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	if r.DocumentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.UserAnswer) == "" {
		return fmt.Errorf("%w: user_answer cannot be empty", ErrInvalidRequest)
	}
	return nil
}
