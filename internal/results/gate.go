// Package results controls when stored scores become visible and tells
// students when they do.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/metrics"
	"github.com/mind-engage/examvault/internal/notify"
	syncx "github.com/mind-engage/examvault/internal/sync"
)

const defaultConcurrency = 4

type ExamRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ResultsReleased bool   `json:"resultsReleased"`
}

// StudentResult is one row of a student's own results.
type StudentResult struct {
	ID             string    `json:"id"`
	Exam           ExamRef   `json:"exam"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// ExamResult is one row of an institute's view of an exam.
type ExamResult struct {
	ID             string           `json:"id"`
	Student        notify.Recipient `json:"student"`
	Score          float64          `json:"score"`
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	SubmittedAt    time.Time        `json:"submittedAt"`
}

// ReleaseReport summarises one release. Notification failures are
// counted, never returned.
type ReleaseReport struct {
	Exam     exam.Exam
	Notified int
	Failed   int
	Skipped  int
}

type Gate struct {
	catalog     *exam.Catalog
	attempts    exam.AttemptStore
	dir         notify.Directory
	sender      notify.Sender
	events      syncx.Appender
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Gate)

func WithEvents(a syncx.Appender) Option { return func(g *Gate) { g.events = a } }
func WithConcurrency(n int) Option       { return func(g *Gate) { g.concurrency = n } }

func NewGate(c *exam.Catalog, attempts exam.AttemptStore, dir notify.Directory, sender notify.Sender,
	log logrus.FieldLogger, m *metrics.Metrics, opts ...Option) *Gate {
	g := &Gate{
		catalog:     c,
		attempts:    attempts,
		dir:         dir,
		sender:      sender,
		log:         log,
		metrics:     m,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(g)
	}
	if g.concurrency < 1 {
		g.concurrency = 1
	}
	return g
}

// Release makes the results of examID visible and notifies every student
// with an attempt. The release has succeeded once the flag is stored;
// delivery problems are logged per recipient.
func (g *Gate) Release(ctx context.Context, examID, instituteID string) (ReleaseReport, error) {
	e, err := g.catalog.Release(ctx, examID, instituteID)
	if err != nil {
		return ReleaseReport{}, err
	}
	report := ReleaseReport{Exam: e}
	log := g.log.WithFields(logrus.Fields{"exam_id": e.ID, "institute_id": instituteID})
	log.Info("results released")

	if g.events != nil {
		ev := syncx.NewEvent(syncx.TypeResultsReleased, e.ID, map[string]any{"instituteId": instituteID})
		if err := g.events.Append(ctx, ev); err != nil {
			log.WithError(err).Warn("append event")
		}
	}

	recs, err := g.attempts.ListAttemptsByExam(ctx, e.ID)
	if err != nil {
		log.WithError(err).Error("list attempts for notification")
		return report, nil
	}
	if len(recs) == 0 || g.sender == nil {
		return report, nil
	}
	contacts := map[string]notify.Recipient{}
	if g.dir != nil {
		ids := slice.Map(recs, func(_ int, r exam.AttemptRecord) string { return r.StudentID })
		if contacts, err = g.dir.Recipients(ctx, ids); err != nil {
			log.WithError(err).Error("resolve recipients")
			return report, nil
		}
	}

	// Notifications outlive the request that triggered them.
	sendCtx := context.WithoutCancel(ctx)
	var notified, failed, skipped atomic.Int32
	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for _, rec := range recs {
		rec := rec
		to := contacts[rec.StudentID]
		if to.Email == "" {
			skipped.Add(1)
			g.metrics.Notified("skipped")
			continue
		}
		eg.Go(func() error {
			msg := notify.ResultsMessage(to.Email, e.Name, rec.Score, rec.CorrectCount, rec.TotalQuestions)
			if err := g.sender.Send(sendCtx, msg); err != nil {
				failed.Add(1)
				g.metrics.Notified("failed")
				log.WithField("student_id", rec.StudentID).WithError(err).Warn("notify student")
				return nil
			}
			notified.Add(1)
			g.metrics.Notified("sent")
			return nil
		})
	}
	_ = eg.Wait()

	report.Notified = int(notified.Load())
	report.Failed = int(failed.Load())
	report.Skipped = int(skipped.Load())
	return report, nil
}

// MyResults lists every attempt of studentID, newest first, with the
// current release flag of each exam. Scores are returned as stored.
func (g *Gate) MyResults(ctx context.Context, studentID string) ([]StudentResult, error) {
	recs, err := g.attempts.ListAttemptsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	exams := map[string]ExamRef{}
	out := make([]StudentResult, 0, len(recs))
	for _, r := range recs {
		ref, ok := exams[r.ExamID]
		if !ok {
			ref = ExamRef{ID: r.ExamID, Name: "N/A"}
			e, err := g.catalog.Lookup(ctx, r.ExamID)
			switch {
			case err == nil:
				ref = ExamRef{ID: e.ID, Name: e.Name, ResultsReleased: e.ResultsReleased}
			case !errors.Is(err, exam.ErrNotFound):
				return nil, err
			}
			exams[r.ExamID] = ref
		}
		out = append(out, StudentResult{
			ID:             r.ID,
			Exam:           ref,
			Score:          r.Score,
			CorrectCount:   r.CorrectCount,
			TotalQuestions: r.TotalQuestions,
			SubmittedAt:    r.SubmittedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

// ExamResults lists the attempts of an exam owned by instituteID, newest
// first, with student contact data where the directory has it.
func (g *Gate) ExamResults(ctx context.Context, examID, instituteID string) (exam.Exam, []ExamResult, error) {
	e, err := g.catalog.Owned(ctx, examID, instituteID)
	if err != nil {
		return exam.Exam{}, nil, err
	}
	recs, err := g.attempts.ListAttemptsByExam(ctx, e.ID)
	if err != nil {
		return exam.Exam{}, nil, fmt.Errorf("list attempts: %w", err)
	}
	contacts := map[string]notify.Recipient{}
	if g.dir != nil && len(recs) > 0 {
		ids := slice.Map(recs, func(_ int, r exam.AttemptRecord) string { return r.StudentID })
		if contacts, err = g.dir.Recipients(ctx, ids); err != nil {
			return exam.Exam{}, nil, fmt.Errorf("resolve students: %w", err)
		}
	}
	out := slice.Map(recs, func(_ int, r exam.AttemptRecord) ExamResult {
		who, ok := contacts[r.StudentID]
		if !ok {
			who = notify.Recipient{ID: r.StudentID}
		}
		return ExamResult{
			ID:             r.ID,
			Student:        who,
			Score:          r.Score,
			CorrectCount:   r.CorrectCount,
			TotalQuestions: r.TotalQuestions,
			SubmittedAt:    r.SubmittedAt,
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return e, out, nil
}
