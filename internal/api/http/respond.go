package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/examvault/internal/exam"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses. Internal errors
// are not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	msg := "internal error"
	switch {
	case errors.Is(err, errBadRequest):
		status, kind, msg = http.StatusBadRequest, "BadRequest", err.Error()
	case errors.Is(err, exam.ErrNotFound):
		status, kind, msg = http.StatusNotFound, exam.Kind(err), "exam not found"
	case errors.Is(err, exam.ErrAlreadyAttempted), errors.Is(err, exam.ErrDuplicateAttempt):
		status, kind, msg = http.StatusConflict, exam.Kind(err), "exam already attempted"
	case errors.Is(err, exam.ErrContentUnavailable):
		w.Header().Set("Retry-After", "5")
		status, kind, msg = http.StatusServiceUnavailable, exam.Kind(err), "exam content is temporarily unavailable"
	case errors.Is(err, exam.ErrDecryptionFailed), errors.Is(err, exam.ErrInvalidContent):
		status, kind, msg = http.StatusUnprocessableEntity, exam.Kind(err), "exam content cannot be opened"
	case errors.Is(err, exam.ErrForbidden):
		status, kind, msg = http.StatusForbidden, exam.Kind(err), "forbidden"
	}
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return badRequest("bad json")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return badRequest("invalid fields: " + strings.Join(fields, ", "))
		}
		return badRequest(err.Error())
	}
	return nil
}

type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }
func (e requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error { return requestError{msg: msg} }
