package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/examvault/internal/auth/middleware"
	"github.com/mind-engage/examvault/internal/results"
)

// GET /results/me
// Scores of unreleased exams are zeroed; the stored values are untouched.
func MyResultsHandler(g *results.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := g.MyResults(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		for i := range list {
			if !list[i].Exam.ResultsReleased {
				list[i].Score, list[i].CorrectCount = 0, 0
			}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /exams/{examID}/release
func ReleaseResultsHandler(g *results.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := g.Release(r.Context(), chi.URLParam(r, "examID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Results released successfully",
			"examId":          rep.Exam.ID,
			"resultsReleased": rep.Exam.ResultsReleased,
			"notified":        rep.Notified,
			"failed":          rep.Failed,
			"skipped":         rep.Skipped,
		})
	}
}

// GET /exams/{examID}/results
func ExamResultsHandler(g *results.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, rows, err := g.ExamResults(r.Context(), chi.URLParam(r, "examID"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		if rows == nil {
			rows = []results.ExamResult{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"exam":    examRef{ID: e.ID, Name: e.Name, ResultsReleased: e.ResultsReleased},
			"results": rows,
		})
	}
}
