package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeQuestions = `Question 1: What is the capital of France?
A) Paris
B) London
C) Berlin
D) Madrid
Correct: A
Explanation: The document states Paris is the capital.

Question 2: Which organelle produces energy?
A) Nucleus
B) Ribosome
C) Mitochondria
D) Golgi body
Correct: C
Explanation: Mitochondria are called the powerhouse of the cell.

Question 3: What do rivers flow into?
A) Mountains
B) The sea
C) Deserts
D) Glaciers
Correct: B
Explanation: Rivers flow from mountains to the sea.
`

func TestParse(t *testing.T) {
	t.Run("Should parse well formed output into complete questions", func(t *testing.T) {
		qs := Parse(threeQuestions)
		require.Len(t, qs, 3)
		for _, q := range qs {
			assert.Len(t, q.Options, 4)
			assert.True(t, q.AnswerInOptions(), "answer %q not in %v", q.CorrectAnswer, q.Options)
			assert.False(t, q.Degraded)
			assert.NotEmpty(t, q.Explanation)
		}
		assert.Equal(t, "What is the capital of France?", qs[0].Prompt)
		assert.Equal(t, "Mitochondria", qs[1].CorrectAnswer)
		assert.Equal(t, "Rivers flow from mountains to the sea.", qs[2].Explanation)
	})

	t.Run("Should map the correct letter to option text", func(t *testing.T) {
		qs := Parse("Question 1: Which city is in Germany?\nA) Paris\nB) London\nC) Berlin\nD) Madrid\nCorrect: C")
		require.Len(t, qs, 1)
		assert.Equal(t, "Berlin", qs[0].CorrectAnswer)
	})

	t.Run("Should keep the raw letter when Correct comes before the options", func(t *testing.T) {
		qs := Parse("Question 1: Pick one\nCorrect: B\nA) one\nB) two")
		require.Len(t, qs, 1)
		assert.Equal(t, "B", qs[0].CorrectAnswer)
		assert.True(t, qs[0].Degraded)
		assert.Equal(t, []string{"one", "two"}, qs[0].Options)
	})

	t.Run("Should keep the raw token for a letter beyond the options", func(t *testing.T) {
		qs := Parse("Question 1: Pick\nA) one\nB) two\nCorrect: D")
		require.Len(t, qs, 1)
		assert.Equal(t, "D", qs[0].CorrectAnswer)
		assert.True(t, qs[0].Degraded)
	})

	t.Run("Should trim whitespace and ignore unrecognized lines", func(t *testing.T) {
		out := "Here are your questions!\n\n   Question 1: Indented?  \n  A) yes \nnoise line\n  B)no\n**bold**\nCorrect:   a\n"
		qs := Parse(out)
		require.Len(t, qs, 1)
		assert.Equal(t, "Indented?", qs[0].Prompt)
		assert.Equal(t, []string{"yes", "no"}, qs[0].Options)
		assert.Equal(t, "yes", qs[0].CorrectAnswer)
	})

	t.Run("Should ignore option and answer lines before the first question", func(t *testing.T) {
		qs := Parse("A) stray\nCorrect: A\nExplanation: stray\nQuestion 1: Real?\nA) x\nB) y\nCorrect: B")
		require.Len(t, qs, 1)
		assert.Equal(t, []string{"x", "y"}, qs[0].Options)
		assert.Equal(t, "y", qs[0].CorrectAnswer)
		assert.Empty(t, qs[0].Explanation)
	})

	t.Run("Should use the whole line when a question line has no colon", func(t *testing.T) {
		qs := Parse("Question one without colon\nA) x")
		require.Len(t, qs, 1)
		assert.Equal(t, "Question one without colon", qs[0].Prompt)
	})

	t.Run("Should keep text after the first colon of an explanation", func(t *testing.T) {
		qs := Parse("Question 1: q\nA) x\nCorrect: A\nExplanation: Ratio is 3:1 here")
		require.Len(t, qs, 1)
		assert.Equal(t, "Ratio is 3:1 here", qs[0].Explanation)
	})

	t.Run("Should return nothing for empty or unstructured output", func(t *testing.T) {
		assert.Empty(t, Parse(""))
		assert.Empty(t, Parse("I am sorry, I cannot help with that."))
	})

	t.Run("Should not carry options across questions", func(t *testing.T) {
		qs := Parse("Question 1: a\nA) 1\nB) 2\nQuestion 2: b\nC) 3")
		require.Len(t, qs, 2)
		assert.Equal(t, []string{"1", "2"}, qs[0].Options)
		assert.Equal(t, []string{"3"}, qs[1].Options)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"Question 3: x", lineQuestion},
		{"Questions:", lineQuestion},
		{"A) a", lineOption},
		{"D) d", lineOption},
		{"E) e", lineOther},
		{"a) lower", lineOther},
		{"Correct: B", lineCorrect},
		{"Correct answer: B", lineOther},
		{"Explanation: e", lineExplanation},
		{"", lineOther},
	}
	for _, tt := range tests {
		t.Run(tt.want.String()+"/"+tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.line))
		})
	}
}

func TestTransitions(t *testing.T) {
	t.Run("Should only start questions between questions", func(t *testing.T) {
		for _, k := range []lineKind{lineOther, lineOption, lineCorrect, lineExplanation} {
			_, ok := transitions[betweenQuestions][k]
			assert.False(t, ok, "unexpected transition on %s", k)
		}
		assert.Equal(t, collectingOptions, transitions[betweenQuestions][lineQuestion].next)
	})

	t.Run("Should stay in collecting_options for every handled line", func(t *testing.T) {
		for k, tr := range transitions[collectingOptions] {
			assert.Equal(t, collectingOptions, tr.next, "kind %s", k)
		}
		_, ok := transitions[collectingOptions][lineOther]
		assert.False(t, ok)
	})

	t.Run("Should treat a leading Questions header as an empty question", func(t *testing.T) {
		qs := Parse("Questions:\n" + threeQuestions)
		require.Len(t, qs, 4)
		assert.Empty(t, qs[0].Prompt)
		assert.Empty(t, qs[0].Options)
	})
}

func TestLetterIndex(t *testing.T) {
	tests := []struct {
		token string
		want  int
		ok    bool
	}{
		{"A", 0, true},
		{"d", 3, true},
		{"C)", 2, true},
		{"B. London", 1, true},
		{"E", 0, false},
		{"Berlin", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := letterIndex(tt.token)
		assert.Equal(t, tt.ok, ok, tt.token)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.token)
		}
	}
}
