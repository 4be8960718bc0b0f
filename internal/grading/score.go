package grading

import (
	"fmt"

	"github.com/mind-engage/examvault/internal/exam"
)

// Tally is the outcome of scoring one answer sheet.
type Tally struct {
	CorrectCount   int
	TotalQuestions int
	Score          float64 // 0..100
}

// Score compares answers with the answer key of doc. Unanswered questions
// and indexes outside the document count as incorrect.
func Score(doc exam.Document, answers exam.Answers) (Tally, error) {
	total := len(doc.Questions)
	if total == 0 {
		return Tally{}, fmt.Errorf("exam has no questions: %w", exam.ErrInvalidContent)
	}
	correct := 0
	for i, q := range doc.Questions {
		if picked, ok := answers[i]; ok && picked == q.CorrectAnswerIndex {
			correct++
		}
	}
	return Tally{
		CorrectCount:   correct,
		TotalQuestions: total,
		Score:          100 * float64(correct) / float64(total),
	}, nil
}
