// Package attempt builds the answer-free exam view a student works from.
package attempt

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/metrics"
)

type Builder struct {
	catalog  *exam.Catalog
	attempts exam.AttemptStore
	docs     exam.DocumentSource
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

func NewBuilder(c *exam.Catalog, attempts exam.AttemptStore, docs exam.DocumentSource,
	log logrus.FieldLogger, m *metrics.Metrics) *Builder {
	return &Builder{catalog: c, attempts: attempts, docs: docs, log: log, metrics: m}
}

// Start resolves the exam at address and returns it without answer keys.
// Nothing is reserved: the one-attempt rule is settled when the student
// submits, so two concurrent starts both succeed.
func (b *Builder) Start(ctx context.Context, studentID, address string) (exam.SanitizedExam, error) {
	view, err := b.start(ctx, studentID, address)
	b.metrics.AttemptStarted(outcome(err))
	return view, err
}

func (b *Builder) start(ctx context.Context, studentID, address string) (exam.SanitizedExam, error) {
	if studentID == "" {
		return exam.SanitizedExam{}, fmt.Errorf("start: empty student: %w", exam.ErrForbidden)
	}
	e, err := b.catalog.FindByAddress(ctx, address)
	if err != nil {
		return exam.SanitizedExam{}, err
	}

	_, err = b.attempts.FindAttempt(ctx, studentID, e.ID)
	switch {
	case err == nil:
		return exam.SanitizedExam{}, fmt.Errorf("exam %s: %w", e.ID, exam.ErrAlreadyAttempted)
	case !errors.Is(err, exam.ErrNotFound):
		return exam.SanitizedExam{}, fmt.Errorf("check attempt: %w", err)
	}

	doc, err := b.docs.Load(ctx, e)
	if err != nil {
		b.log.WithFields(logrus.Fields{
			"exam_id": e.ID,
			"address": e.ContentAddress,
			"kind":    exam.Kind(err),
		}).WithError(err).Error("load exam content")
		return exam.SanitizedExam{}, err
	}
	b.log.WithFields(logrus.Fields{"exam_id": e.ID, "student_id": studentID}).Debug("exam started")
	return doc.Sanitize(e), nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return exam.Kind(err)
}
