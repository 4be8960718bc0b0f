package exam

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Exam is the catalog entry for one published exam. The encryption key stays
// on the server: it is never serialized.
type Exam struct {
	ID               string        `json:"id"`
	InstituteID      string        `json:"instituteId"`
	ContentAddress   string        `json:"contentAddress"`
	EncryptionKey    string        `json:"-"`
	Name             string        `json:"name"`
	TimeLimitMinutes int           `json:"timeLimitMinutes"`
	QuestionCount    int           `json:"questionCount"`
	ApprovalState    ApprovalState `json:"approvalState"`
	ResultsReleased  bool          `json:"resultsReleased"`
	CreatedAt        int64         `json:"createdAt,omitempty"`
}

func (e Exam) Approved() bool { return e.ApprovalState == ApprovalApproved }

// ExamSummary is what a student sees when browsing available exams.
type ExamSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	TimeLimitMinutes int    `json:"timeLimitMinutes"`
	TotalQuestions   int    `json:"totalQuestions"`
	ContentAddress   string `json:"contentAddress"`
}

// Question is one decrypted question including its answer key.
type Question struct {
	Prompt             string   `json:"question" validate:"required"`
	Options            []string `json:"options" validate:"required,min=1"`
	CorrectAnswerIndex int      `json:"correctAnswer" validate:"gte=0"`
}

// Document is the plaintext exam recovered from an envelope. It is never
// stored; it is rebuilt for every start and every grading pass.
type Document struct {
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
}

type SanitizedQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// SanitizedExam is the only exam view a student receives before submitting.
type SanitizedExam struct {
	ExamID           string              `json:"examId"`
	ExamName         string              `json:"examName"`
	TimeLimitMinutes int                 `json:"timeLimitMinutes"`
	TotalQuestions   int                 `json:"totalQuestions"`
	Questions        []SanitizedQuestion `json:"questions"`
}

// Sanitize drops the answer keys and keeps question order.
func (d Document) Sanitize(e Exam) SanitizedExam {
	qs := make([]SanitizedQuestion, len(d.Questions))
	for i, q := range d.Questions {
		opts := make([]string, len(q.Options))
		copy(opts, q.Options)
		qs[i] = SanitizedQuestion{Prompt: q.Prompt, Options: opts}
	}
	return SanitizedExam{
		ExamID:           e.ID,
		ExamName:         e.Name,
		TimeLimitMinutes: e.TimeLimitMinutes,
		TotalQuestions:   len(d.Questions),
		Questions:        qs,
	}
}

// Answers maps a question index to the selected option index. Unanswered
// questions are absent.
type Answers map[int]int

// UnmarshalJSON reads `{"<question>": <option>}`. A null option marks the
// question as unanswered and drops it; a key that is not a decimal index is
// an error.
func (a *Answers) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw map[string]*int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Answers, len(raw))
	for k, v := range raw {
		q, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("answers: question key %q is not an index", k)
		}
		if v == nil {
			continue
		}
		out[q] = *v
	}
	*a = out
	return nil
}

// AttemptRecord is immutable once created.
type AttemptRecord struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"studentId"`
	ExamID         string    `json:"examId"`
	Answers        Answers   `json:"answers"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}
