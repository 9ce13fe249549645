package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/yomu/internal/models"
)

// DefaultFilenameBoost makes filename matches outrank content matches.
const DefaultFilenameBoost = 3.0

// indexedDocument is the shape stored in Bleve.
type indexedDocument struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index         bleve.Index
	filenameBoost float64
	fuzziness     int
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithFilenameBoost sets the score multiplier for filename matches.
func WithFilenameBoost(boost float64) Option {
	return func(b *BleveIndex) {
		if boost > 0 {
			b.filenameBoost = boost
		}
	}
}

// WithFuzziness enables typo tolerance up to the given edit distance (1 or 2).
func WithFuzziness(n int) Option {
	return func(b *BleveIndex) { b.fuzziness = n }
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "bayes" matches
	// "Bayes" but not "bay".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates
// an in-memory index.
func NewBleveIndex(path string, opts ...Option) (*BleveIndex, error) {
	var (
		index bleve.Index
		err   error
	)
	switch {
	case path == "":
		index, err = bleve.NewMemOnly(newMapping())
	case exists(path):
		index, err = bleve.Open(path)
	default:
		if err = os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			index, err = bleve.New(path, newMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}
	b := &BleveIndex{index: index, filenameBoost: DefaultFilenameBoost}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Index adds or replaces doc. Underscores in the filename are indexed as
// spaces so "annual_report_2023.pdf" matches "annual report".
func (b *BleveIndex) Index(_ context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, indexedDocument{
		Filename: normalizeFilename(doc.Filename),
		Content:  doc.Content,
	})
}

func normalizeFilename(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// Search matches query against filename and content and returns up to limit
// documents by descending score, with highlighted content fragments.
func (b *BleveIndex) Search(_ context.Context, query string, limit int) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []*Result{}, nil
	}
	fq := bleve.NewMatchQuery(query)
	fq.SetField("filename")
	fq.SetBoost(b.filenameBoost)
	cq := bleve.NewMatchQuery(query)
	cq.SetField("content")
	if b.fuzziness > 0 {
		fq.SetFuzziness(b.fuzziness)
		cq.SetFuzziness(b.fuzziness)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fq, cq))
	req.Size = limit
	req.Fields = []string{"filename"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		r := &Result{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments["content"]}
		if name, ok := hit.Fields["filename"].(string); ok {
			r.Filename = name
		}
		out[i] = r
	}
	return out, nil
}

// Delete removes a document from the index. Unknown ids are ignored.
func (b *BleveIndex) Delete(_ context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
