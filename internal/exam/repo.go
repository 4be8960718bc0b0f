package exam

import "context"

type ExamStore interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	GetExamByAddress(ctx context.Context, address string) (Exam, error)
	// ListApproved returns approved exams in catalog order (oldest first).
	ListApproved(ctx context.Context) ([]Exam, error)
	// SetResultsReleased flips the flag on an exam owned by instituteID.
	// Unknown or foreign exams surface as ErrNotFound.
	SetResultsReleased(ctx context.Context, examID, instituteID string) (Exam, error)
}

type AttemptStore interface {
	// CreateAttempt inserts rec; a second record for the same
	// (StudentID, ExamID) fails with ErrDuplicateAttempt.
	CreateAttempt(ctx context.Context, rec AttemptRecord) error
	FindAttempt(ctx context.Context, studentID, examID string) (AttemptRecord, error)
	AttemptedExamIDs(ctx context.Context, studentID string) ([]string, error)
	// ListAttemptsByStudent and ListAttemptsByExam order by SubmittedAt desc.
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptRecord, error)
	ListAttemptsByExam(ctx context.Context, examID string) ([]AttemptRecord, error)
}

type Store interface {
	ExamStore
	AttemptStore
}

// DocumentSource fetches and decrypts the content of an exam. Every call
// goes back to the content store.
type DocumentSource interface {
	Load(ctx context.Context, e Exam) (Document, error)
}
