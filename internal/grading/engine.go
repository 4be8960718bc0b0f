// Package grading scores submitted answer sheets against a freshly
// decrypted answer key and records the attempt.
package grading

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/metrics"
	syncx "github.com/mind-engage/examvault/internal/sync"
)

// Result is a stored attempt together with the exam it belongs to.
type Result struct {
	Record          exam.AttemptRecord
	ExamName        string
	ResultsReleased bool
}

// Engine options

type Option func(*config)

type config struct {
	now    func() time.Time
	newID  func() string
	events syncx.Appender
}

func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }
func WithIDs(newID func() string) Option    { return func(c *config) { c.newID = newID } }
func WithEvents(a syncx.Appender) Option    { return func(c *config) { c.events = a } }

type Engine struct {
	catalog  *exam.Catalog
	attempts exam.AttemptStore
	docs     exam.DocumentSource
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	cfg      config
}

func NewEngine(c *exam.Catalog, attempts exam.AttemptStore, docs exam.DocumentSource,
	log logrus.FieldLogger, m *metrics.Metrics, opts ...Option) *Engine {
	cfg := config{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine{catalog: c, attempts: attempts, docs: docs, log: log, metrics: m, cfg: cfg}
}

// Submit grades answers for studentID and stores the attempt. Only the
// answer map comes from the client; the key, the question count and the
// score are derived here. The store's uniqueness on (student, exam) is
// what rejects a second submission.
func (g *Engine) Submit(ctx context.Context, studentID, examID string, answers exam.Answers) (Result, error) {
	res, err := g.submit(ctx, studentID, examID, answers)
	g.metrics.Submitted(outcome(err))
	return res, err
}

func (g *Engine) submit(ctx context.Context, studentID, examID string, answers exam.Answers) (Result, error) {
	if studentID == "" {
		return Result{}, fmt.Errorf("submit: empty student: %w", exam.ErrForbidden)
	}
	e, err := g.catalog.FindByID(ctx, examID)
	if err != nil {
		return Result{}, err
	}
	doc, err := g.docs.Load(ctx, e)
	if err != nil {
		g.log.WithFields(logrus.Fields{
			"exam_id": e.ID,
			"address": e.ContentAddress,
			"kind":    exam.Kind(err),
		}).WithError(err).Error("load exam content for grading")
		return Result{}, err
	}
	tally, err := Score(doc, answers)
	if err != nil {
		return Result{}, err
	}

	if answers == nil {
		answers = exam.Answers{}
	}
	rec := exam.AttemptRecord{
		ID:             g.cfg.newID(),
		StudentID:      studentID,
		ExamID:         e.ID,
		Answers:        answers,
		Score:          tally.Score,
		CorrectCount:   tally.CorrectCount,
		TotalQuestions: tally.TotalQuestions,
		SubmittedAt:    g.cfg.now().UTC().Truncate(time.Millisecond),
	}
	if err := g.attempts.CreateAttempt(ctx, rec); err != nil {
		return Result{}, err
	}

	g.appendEvent(ctx, rec)
	g.log.WithFields(logrus.Fields{
		"exam_id":    e.ID,
		"student_id": studentID,
		"attempt_id": rec.ID,
	}).Info("attempt recorded")

	return Result{Record: rec, ExamName: e.Name, ResultsReleased: e.ResultsReleased}, nil
}

// appendEvent is best effort: the attempt is already durable.
func (g *Engine) appendEvent(ctx context.Context, rec exam.AttemptRecord) {
	if g.cfg.events == nil {
		return
	}
	ev := syncx.NewEvent(syncx.TypeAttemptSubmitted, rec.ID, map[string]any{
		"examId":       rec.ExamID,
		"studentId":    rec.StudentID,
		"correctCount": rec.CorrectCount,
		"total":        rec.TotalQuestions,
	})
	if err := g.cfg.events.Append(ctx, ev); err != nil {
		g.log.WithError(err).WithField("attempt_id", rec.ID).Warn("append event")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return exam.Kind(err)
}
