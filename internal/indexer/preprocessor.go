package indexer

import (
	"regexp"
	"strings"
	"unicode"
)

var blankRun = regexp.MustCompile(`\n{3,}`)

// Preprocess normalizes extracted text before chunking. Line endings become
// "\n", control characters other than newline and tab are dropped, trailing
// spaces are trimmed from each line, and runs of blank lines collapse to one.
// Paragraph structure is kept for the chunker.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\ufeff' {
			return -1
		}
		return r
	}, text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	text = strings.Join(lines, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
