package http

import (
	"net/http"
	"time"

	"github.com/mind-engage/examvault/internal/attempt"
	auth "github.com/mind-engage/examvault/internal/auth/middleware"
	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/grading"
)

// GET /exams/available
func ListAvailableHandler(c *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := c.ListAvailable(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.ExamSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /exams/start {"contentAddress": "..."}
func StartExamHandler(b *attempt.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ContentAddress string `json:"contentAddress" validate:"required"`
		}
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		view, err := b.Start(r.Context(), auth.SubjectFromContext(r.Context()), req.ContentAddress)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type examRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ResultsReleased bool   `json:"resultsReleased"`
}

type submitResponse struct {
	Message        string    `json:"message"`
	ID             string    `json:"id"`
	Exam           examRef   `json:"exam"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// POST /exams/submit {"examId": "...", "answers": {"0": 2, "1": 0}}
// Any other field in the body, a score included, is ignored.
func SubmitExamHandler(g *grading.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExamID  string       `json:"examId" validate:"required"`
			Answers exam.Answers `json:"answers" validate:"required"`
		}
		if err := decode(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		res, err := g.Submit(r.Context(), auth.SubjectFromContext(r.Context()), req.ExamID, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		rec := res.Record
		out := submitResponse{
			Message:        "Exam submitted successfully",
			ID:             rec.ID,
			Exam:           examRef{ID: rec.ExamID, Name: res.ExamName, ResultsReleased: res.ResultsReleased},
			Score:          rec.Score,
			CorrectCount:   rec.CorrectCount,
			TotalQuestions: rec.TotalQuestions,
			SubmittedAt:    rec.SubmittedAt,
		}
		if !res.ResultsReleased {
			out.Score, out.CorrectCount = 0, 0
		}
		writeJSON(w, http.StatusOK, out)
	}
}
