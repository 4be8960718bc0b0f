package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/examvault/internal/exam"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		q := sl.Current().Interface().(exam.Question)
		if q.CorrectAnswerIndex >= len(q.Options) {
			sl.ReportError(q.CorrectAnswerIndex, "CorrectAnswerIndex", "correctAnswer", "ltoptions", "")
		}
	}, exam.Question{})
	return v
}

// Validate checks that doc has at least one question and that every
// question has options and an answer index inside them.
func Validate(doc exam.Document) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Namespace()+":"+fe.Tag())
		}
		return fmt.Errorf("document fails %s: %w", strings.Join(fields, ", "), exam.ErrInvalidContent)
	}
	return fmt.Errorf("document: %v: %w", err, exam.ErrInvalidContent)
}
