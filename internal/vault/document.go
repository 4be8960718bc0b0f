package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/examvault/internal/exam"
)

// errNotDocument marks plaintext that is not a single JSON exam document.
var errNotDocument = errors.New("not an exam document")

// documentJSON mirrors exam.Document with the answer index optional, so a
// question that omits it is told apart from one whose answer is option 0.
type documentJSON struct {
	Questions []struct {
		Prompt        string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer *int     `json:"correctAnswer"`
	} `json:"questions"`
}

// ParseDocument decodes and validates a plaintext exam document. Trailing
// bytes after the document are rejected.
func ParseDocument(raw []byte) (exam.Document, error) {
	var in documentJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return exam.Document{}, fmt.Errorf("%w: %v", errNotDocument, err)
	}
	doc := exam.Document{Questions: make([]exam.Question, 0, len(in.Questions))}
	for i, q := range in.Questions {
		if q.CorrectAnswer == nil {
			return exam.Document{}, fmt.Errorf("question %d has no correctAnswer: %w", i, exam.ErrInvalidContent)
		}
		doc.Questions = append(doc.Questions, exam.Question{
			Prompt:             q.Prompt,
			Options:            q.Options,
			CorrectAnswerIndex: *q.CorrectAnswer,
		})
	}
	if err := Validate(doc); err != nil {
		return exam.Document{}, err
	}
	return doc, nil
}
