package auth

import "context"

type subjectKey struct{}

// WithSubject stores the verified caller id. Whether it names a student or an
// institute depends on the role attached next to it.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns "" for anonymous requests; services reject an
// empty caller with exam.ErrForbidden.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
