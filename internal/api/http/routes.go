package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examvault/internal/attempt"
	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/grading"
	"github.com/mind-engage/examvault/internal/rbac"
	"github.com/mind-engage/examvault/internal/results"
)

type Services struct {
	Catalog *exam.Catalog
	Builder *attempt.Builder
	Engine  *grading.Engine
	Gate    *results.Gate
}

// Mount registers the exam routes. identity runs before every route and
// must put the caller's subject and role on the context.
func Mount(r chi.Router, s Services, identity ...func(http.Handler) http.Handler) {
	r.Group(func(pr chi.Router) {
		pr.Use(identity...)

		// Student flow
		pr.With(rbac.Require(rbac.PermExamList)).
			Get("/exams/available", ListAvailableHandler(s.Catalog))
		pr.With(rbac.Require(rbac.PermAttemptStart)).
			Post("/exams/start", StartExamHandler(s.Builder))
		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/exams/submit", SubmitExamHandler(s.Engine))
		pr.With(rbac.Require(rbac.PermResultsViewOwn)).
			Get("/results/me", MyResultsHandler(s.Gate))

		// Institute
		pr.With(rbac.Require(rbac.PermResultsRelease)).
			Post("/exams/{examID}/release", ReleaseResultsHandler(s.Gate))
		pr.With(rbac.Require(rbac.PermResultsViewAll)).
			Get("/exams/{examID}/results", ExamResultsHandler(s.Gate))
	})
}

// MountHealth registers liveness and readiness probes. ready may be nil.
func MountHealth(r chi.Router, ready func(ctx context.Context) error) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "NotReady", Message: "dependency unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}
