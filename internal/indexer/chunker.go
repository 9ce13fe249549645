// Package indexer splits documents into chunks and ingests them into the registry and indices.
package indexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/hyperjump/yomu/internal/models"
)

// sentenceBreak marks the gap after a sentence terminator while splitting. It
// is restored to a space afterwards. Preprocess removes control characters, so
// it cannot occur in document text.
const sentenceBreak = "\x1f"

var sentenceEnd = regexp.MustCompile(`([.!?])[ \t]+`)

// Chunker splits text into overlapping passages bounded by a character count.
// Splitting prefers paragraph breaks, then line breaks, then sentence ends,
// then spaces, and finally cuts between characters.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Requires chunkSize > 0 and 0 <= chunkOverlap < chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", sentenceBreak, " ", ""}),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

// ChunkSize returns the configured maximum chunk length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Split returns the chunks of text in document order. Empty or whitespace-only
// text yields no chunks; text shorter than the chunk size yields one.
func (c *Chunker) Split(docID, text string) ([]models.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(sentenceEnd.ReplaceAllString(text, "${1}"+sentenceBreak))
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	chunks := make([]models.Chunk, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, sentenceBreak, " "))
		if p == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Index:      len(chunks),
			Text:       p,
			DocumentID: docID,
		})
	}
	return chunks, nil
}
