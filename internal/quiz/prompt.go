package quiz

import (
	"fmt"
	"strings"

	"github.com/hyperjump/yomu/internal/models"
)

// BuildQuizPrompt asks for n questions at difficulty in the format Parse reads.
func BuildQuizPrompt(content string, difficulty models.Difficulty, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following document, create %d %s level comprehension questions.\n\n", n, difficulty)
	b.WriteString("Each question should:\n")
	b.WriteString("1. Test understanding of key concepts\n")
	b.WriteString("2. Require reasoning about the content\n")
	b.WriteString("3. Have 4 multiple choice options (A, B, C, D)\n")
	b.WriteString("4. Include the correct answer\n")
	b.WriteString("5. Be challenging but fair\n\n")
	b.WriteString("Document content:\n")
	b.WriteString(content)
	b.WriteString("\n\nGenerate questions in exactly this format, one item per line, without markdown:\n")
	b.WriteString("Question 1: [Question text]\n")
	b.WriteString("A) [Option A]\n")
	b.WriteString("B) [Option B]\n")
	b.WriteString("C) [Option C]\n")
	b.WriteString("D) [Option D]\n")
	b.WriteString("Correct: [A/B/C/D]\n")
	b.WriteString("Explanation: [Brief explanation]\n\n")
	b.WriteString("Questions:")
	return b.String()
}

// BuildEvaluationPrompt asks the model to judge userAnswer against the context.
func BuildEvaluationPrompt(question, userAnswer, correctAnswer, context string) string {
	if correctAnswer == "" {
		correctAnswer = "(not provided, judge from the document)"
	}
	var b strings.Builder
	b.WriteString("Evaluate the user's answer to this question based on the document context.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "User's Answer: %s\n", userAnswer)
	fmt.Fprintf(&b, "Correct Answer: %s\n\n", correctAnswer)
	b.WriteString("Document Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. Score (0-100)\n")
	b.WriteString("2. Detailed feedback explaining why the answer is correct or incorrect\n")
	b.WriteString("3. Key references from the document that support the correct answer\n\n")
	b.WriteString("Evaluation:")
	return b.String()
}
