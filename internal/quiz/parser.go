// Package quiz generates multiple-choice comprehension questions from
// document text and grades answers to them.
package quiz

import (
	"strings"

	"github.com/hyperjump/yomu/internal/models"
)

// lineKind classifies one trimmed line of model output.
type lineKind int

const (
	lineOther lineKind = iota
	lineQuestion
	lineOption
	lineCorrect
	lineExplanation
)

func (k lineKind) String() string {
	switch k {
	case lineQuestion:
		return "question"
	case lineOption:
		return "option"
	case lineCorrect:
		return "correct"
	case lineExplanation:
		return "explanation"
	}
	return "other"
}

func classify(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "Question"):
		return lineQuestion
	case strings.HasPrefix(line, "A)"), strings.HasPrefix(line, "B)"),
		strings.HasPrefix(line, "C)"), strings.HasPrefix(line, "D)"):
		return lineOption
	case strings.HasPrefix(line, "Correct:"):
		return lineCorrect
	case strings.HasPrefix(line, "Explanation:"):
		return lineExplanation
	}
	return lineOther
}

type parseState int

const (
	betweenQuestions parseState = iota
	collectingOptions
)

func (s parseState) String() string {
	if s == collectingOptions {
		return "collecting_options"
	}
	return "between_questions"
}

type transition struct {
	next   parseState
	action func(p *parser, line string)
}

// transitions is the complete parser table. A (state, kind) pair missing from
// the table leaves the state unchanged and ignores the line.
var transitions = map[parseState]map[lineKind]transition{
	betweenQuestions: {
		lineQuestion: {collectingOptions, (*parser).startQuestion},
	},
	collectingOptions: {
		lineQuestion:    {collectingOptions, (*parser).startQuestion},
		lineOption:      {collectingOptions, (*parser).addOption},
		lineCorrect:     {collectingOptions, (*parser).setCorrect},
		lineExplanation: {collectingOptions, (*parser).setExplanation},
	},
}

type parser struct {
	state     parseState
	current   *models.QuizQuestion
	options   []string
	questions []*models.QuizQuestion
}

// Parse reads questions in the line format requested by BuildQuizPrompt:
//
//	Question 1: text
//	A) option
//	B) option
//	C) option
//	D) option
//	Correct: B
//	Explanation: text
//
// Lines are trimmed and anything unrecognized is ignored. A "Correct:" letter
// is resolved against the options seen so far; when it cannot be, the raw
// token is kept and the question is marked Degraded.
func Parse(output string) []*models.QuizQuestion {
	p := &parser{state: betweenQuestions}
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		t, ok := transitions[p.state][classify(line)]
		if !ok {
			continue
		}
		t.action(p, line)
		p.state = t.next
	}
	p.finish()
	return p.questions
}

func (p *parser) finish() {
	if p.current == nil {
		return
	}
	p.current.Options = p.options
	p.questions = append(p.questions, p.current)
	p.current = nil
	p.options = nil
}

func (p *parser) startQuestion(line string) {
	p.finish()
	text := line
	if _, after, ok := strings.Cut(line, ":"); ok {
		text = strings.TrimSpace(after)
	}
	p.current = &models.QuizQuestion{Prompt: text}
	p.options = []string{}
}

func (p *parser) addOption(line string) {
	p.options = append(p.options, strings.TrimSpace(line[2:]))
}

func (p *parser) setCorrect(line string) {
	_, token, _ := strings.Cut(line, ":")
	token = strings.TrimSpace(token)
	if i, ok := letterIndex(token); ok && i < len(p.options) {
		p.current.CorrectAnswer = p.options[i]
		p.current.Degraded = false
		return
	}
	p.current.CorrectAnswer = token
	p.current.Degraded = true
}

func (p *parser) setExplanation(line string) {
	_, text, _ := strings.Cut(line, ":")
	p.current.Explanation = strings.TrimSpace(text)
}

// letterIndex maps an answer token such as "C", "c", "C)" or "C. Berlin" to
// its option index.
func letterIndex(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	c := token[0]
	if c >= 'a' && c <= 'd' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'D' {
		return 0, false
	}
	if len(token) > 1 {
		next := token[1]
		if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') {
			return 0, false
		}
	}
	return int(c - 'A'), true
}
