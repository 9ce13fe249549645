// Package cli provides CLI output formatting and an HTTP client for Yomu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/models"
)

// OutputFormat selects how command results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// FormatFor returns OutputJSON when asJSON is set.
func FormatFor(asJSON bool) OutputFormat {
	if asJSON {
		return OutputJSON
	}
	return OutputText
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes a question answer with its references and source snippets.
func WriteAnswer(w io.Writer, result *models.QAResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, result)
	}
	fmt.Fprintf(w, "\n%s\n\n", result.Text)
	if len(result.References) > 0 {
		fmt.Fprintln(w, "References:")
		for _, ref := range result.References {
			fmt.Fprintf(w, "  - %s\n", ref)
		}
	}
	if len(result.SourceSnippets) > 0 {
		fmt.Fprintln(w, "Sources:")
		for _, s := range result.SourceSnippets {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	fmt.Fprintf(w, "\nconfidence %.2f | %dms\n", result.Confidence, result.ResponseTimeMs)
	return nil
}

// WriteChallenge writes generated quiz questions. Answers are shown only when
// reveal is set.
func WriteChallenge(w io.Writer, resp *models.ChallengeResponse, reveal bool, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	if len(resp.Questions) == 0 {
		fmt.Fprintln(w, "No questions could be generated for this document.")
		return nil
	}
	fmt.Fprintf(w, "\n%d %s question(s)\n", len(resp.Questions), resp.Difficulty)
	for i, q := range resp.Questions {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s   [%s]\n", i+1, q.Prompt, q.ID)
		for j, opt := range q.Options {
			fmt.Fprintf(w, "   %c) %s\n", 'A'+j, opt)
		}
		if reveal {
			fmt.Fprintf(w, "   Answer: %s\n", q.CorrectAnswer)
			if q.Explanation != "" {
				fmt.Fprintf(w, "   %s\n", q.Explanation)
			}
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteEvaluation writes a graded answer.
func WriteEvaluation(w io.Writer, result *models.EvaluationResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, result)
	}
	verdict := "incorrect"
	if result.IsCorrect {
		verdict = "correct"
	}
	fmt.Fprintf(w, "\nScore: %d (%s)\n", result.Score, verdict)
	if result.CorrectAnswer != "" {
		fmt.Fprintf(w, "Correct answer: %s\n", result.CorrectAnswer)
	}
	if result.ModelScore != nil {
		fmt.Fprintf(w, "Model score: %d\n", *result.ModelScore)
	}
	fmt.Fprintf(w, "\n%s\n", result.Feedback)
	return nil
}

// WriteDocuments writes a document listing.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return WriteJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-40s %6d chunks  %s\n",
			d.ID, Truncate(d.Filename, 40), d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// WriteSearchResults writes keyword search hits.
func WriteSearchResults(w io.Writer, query string, results []*keyword.Result, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*keyword.Result{}
		}
		return WriteJSON(w, map[string]interface{}{"query": query, "results": results})
	}
	fmt.Fprintf(w, "\nFound %d document(s) for %q\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%d. %s  (score %.4f)\n", i+1, r.Filename, r.Score)
		fmt.Fprintf(w, "   ID: %s\n", r.ID)
		for _, frag := range r.Fragments {
			fmt.Fprintf(w, "   %s\n", TruncateWords(strings.Join(strings.Fields(frag), " "), 30))
		}
	}
	return nil
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
