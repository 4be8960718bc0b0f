package exam

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecodeclub/ekit/slice"
)

// Catalog answers exam metadata questions for the attempt, grading and
// results flows.
type Catalog struct {
	exams    ExamStore
	attempts AttemptStore
}

func NewCatalog(exams ExamStore, attempts AttemptStore) *Catalog {
	return &Catalog{exams: exams, attempts: attempts}
}

// ListAvailable returns approved exams the student has not attempted yet.
// The attempt set is read first so an exam submitted concurrently is not
// offered after its record exists.
func (c *Catalog) ListAvailable(ctx context.Context, studentID string) ([]ExamSummary, error) {
	attempted, err := c.attempts.AttemptedExamIDs(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("attempted exams: %w", err)
	}
	approved, err := c.exams.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("approved exams: %w", err)
	}
	skip := slice.ToMapV(attempted, func(id string) (string, struct{}) { return id, struct{}{} })
	return slice.FilterMap(approved, func(_ int, e Exam) (ExamSummary, bool) {
		if _, done := skip[e.ID]; done || !e.Approved() {
			return ExamSummary{}, false
		}
		// duplicates are dropped on the way through
		skip[e.ID] = struct{}{}
		return ExamSummary{
			ID:               e.ID,
			Name:             e.Name,
			TimeLimitMinutes: e.TimeLimitMinutes,
			TotalQuestions:   e.QuestionCount,
			ContentAddress:   e.ContentAddress,
		}, true
	}), nil
}

// FindByAddress resolves an attemptable exam. Missing and unapproved exams
// are both reported as ErrNotFound.
func (c *Catalog) FindByAddress(ctx context.Context, address string) (Exam, error) {
	e, err := c.exams.GetExamByAddress(ctx, address)
	if err != nil {
		return Exam{}, err
	}
	if !e.Approved() {
		return Exam{}, fmt.Errorf("exam at %s: %w", address, ErrNotFound)
	}
	return e, nil
}

// FindByID resolves an attemptable exam by id.
func (c *Catalog) FindByID(ctx context.Context, id string) (Exam, error) {
	e, err := c.exams.GetExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	if !e.Approved() {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, nil
}

// Lookup returns any exam by id regardless of approval state.
func (c *Catalog) Lookup(ctx context.Context, id string) (Exam, error) {
	return c.exams.GetExam(ctx, id)
}

// Owned returns the exam only when instituteID owns it.
func (c *Catalog) Owned(ctx context.Context, examID, instituteID string) (Exam, error) {
	e, err := c.exams.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, err
	}
	if e.InstituteID != instituteID {
		return Exam{}, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
	}
	return e, nil
}

// Release marks the results of an owned exam as visible. Releasing twice
// succeeds both times.
func (c *Catalog) Release(ctx context.Context, examID, requesterID string) (Exam, error) {
	if examID == "" || requesterID == "" {
		return Exam{}, fmt.Errorf("release: %w", ErrNotFound)
	}
	e, err := c.exams.SetResultsReleased(ctx, examID, requesterID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Exam{}, err
		}
		return Exam{}, fmt.Errorf("release %s: %w", examID, err)
	}
	return e, nil
}
