package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
)

type scriptedGenerator struct {
	reply   string
	err     error
	prompts []string
	opts    []llm.Options
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, opts llm.Options) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return exactly the requested questions from well formed output", func(t *testing.T) {
		g := NewGenerator(llm.NewMockGenerator(threeQuestions), 0)
		qs, err := g.Generate(ctx, "Paris is the capital of France.", models.DifficultyEasy, 3)
		require.NoError(t, err)
		require.Len(t, qs, 3)
		for _, q := range qs {
			assert.Len(t, q.Options, 4)
			assert.Contains(t, q.Options, q.CorrectAnswer)
			assert.Equal(t, models.DifficultyEasy, q.Difficulty)
		}
	})

	t.Run("Should cap the result at the requested number", func(t *testing.T) {
		g := NewGenerator(&scriptedGenerator{reply: threeQuestions}, 0)
		qs, err := g.Generate(ctx, "content", models.DifficultyMedium, 2)
		require.NoError(t, err)
		assert.Len(t, qs, 2)
	})

	t.Run("Should return fewer questions without padding", func(t *testing.T) {
		g := NewGenerator(&scriptedGenerator{reply: threeQuestions}, 0)
		qs, err := g.Generate(ctx, "content", models.DifficultyHard, 5)
		require.NoError(t, err)
		assert.Len(t, qs, 3)
	})

	t.Run("Should repair a letter given before the options", func(t *testing.T) {
		out := "Question 1: Which city is in Germany?\nCorrect: C\nA) Paris\nB) London\nC) Berlin\nD) Madrid"
		g := NewGenerator(&scriptedGenerator{reply: out}, 0, WithGeneratorLogger(zap.NewNop()))
		qs, err := g.Generate(ctx, "content", models.DifficultyMedium, 1)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "Berlin", qs[0].CorrectAnswer)
		assert.False(t, qs[0].Degraded)
	})

	t.Run("Should reject questions whose answer cannot be resolved", func(t *testing.T) {
		out := "Questions:\n" +
			"Question 1: No answer\nA) a\nB) b\nC) c\nD) d\n" +
			"Question 2: Bad letter\nA) a\nB) b\nCorrect: D\n" +
			"Question 3: Word answer\nA) a\nB) b\nCorrect: maybe\n" +
			"Question 4: Too few options\nA) only\nCorrect: A\n" +
			"Question 5: Good\nA) a\nB) b\nC) c\nD) d\nCorrect: B\n"
		g := NewGenerator(&scriptedGenerator{reply: out}, 0, WithGeneratorLogger(zap.NewNop()))
		qs, err := g.Generate(ctx, "content", models.DifficultyMedium, 5)
		require.NoError(t, err)
		require.Len(t, qs, 1)
		assert.Equal(t, "Good", qs[0].Prompt)
		assert.Equal(t, "b", qs[0].CorrectAnswer)
	})

	t.Run("Should cut long content and ask for the requested count and level", func(t *testing.T) {
		gen := &scriptedGenerator{reply: threeQuestions}
		g := NewGenerator(gen, 20)
		content := strings.Repeat("a", 20) + strings.Repeat("Z", 50)
		_, err := g.Generate(ctx, content, models.DifficultyHard, 3)
		require.NoError(t, err)
		p := gen.prompts[0]
		assert.Contains(t, p, strings.Repeat("a", 20)+"...")
		assert.NotContains(t, p, "ZZ")
		assert.Contains(t, p, "create 3 hard level comprehension questions")
		assert.Contains(t, p, "Correct: [A/B/C/D]")
		assert.Equal(t, DefaultGenerateOptions, gen.opts[0])
	})

	t.Run("Should propagate generation failures", func(t *testing.T) {
		g := NewGenerator(&scriptedGenerator{err: fmt.Errorf("%w: timeout", llm.ErrGenerationFailed)}, 0)
		_, err := g.Generate(ctx, "content", models.DifficultyMedium, 3)
		assert.True(t, errors.Is(err, llm.ErrGenerationFailed))
	})

	t.Run("Should reject a non-positive count without calling the model", func(t *testing.T) {
		gen := &scriptedGenerator{reply: threeQuestions}
		_, err := NewGenerator(gen, 0).Generate(ctx, "content", models.DifficultyMedium, 0)
		assert.ErrorIs(t, err, models.ErrInvalidRequest)
		assert.Empty(t, gen.prompts)
	})
}
