package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/examvault/internal/db"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite", "postgres" or "mysql"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// q rewrites `?` placeholders for the store's driver.
func (s *SQLStore) q(query string) string {
	return db.Rebind(db.Driver(s.driver), query)
}

const examColumns = `id,institute_id,content_address,encryption_key,name,time_limit_minutes,question_count,approval_state,results_released,created_at`

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	upsert := ` ON CONFLICT (id) DO UPDATE SET institute_id=EXCLUDED.institute_id, content_address=EXCLUDED.content_address,
		encryption_key=EXCLUDED.encryption_key, name=EXCLUDED.name, time_limit_minutes=EXCLUDED.time_limit_minutes,
		question_count=EXCLUDED.question_count, approval_state=EXCLUDED.approval_state`
	if s.driver == "mysql" {
		upsert = ` ON DUPLICATE KEY UPDATE institute_id=VALUES(institute_id), content_address=VALUES(content_address),
		encryption_key=VALUES(encryption_key), name=VALUES(name), time_limit_minutes=VALUES(time_limit_minutes),
		question_count=VALUES(question_count), approval_state=VALUES(approval_state)`
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO exams (`+examColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?)`+upsert),
		e.ID, e.InstituteID, e.ContentAddress, e.EncryptionKey, e.Name, e.TimeLimitMinutes,
		e.QuestionCount, string(e.ApprovalState), e.ResultsReleased, e.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (Exam, error) {
	var e Exam
	var state string
	err := row.Scan(&e.ID, &e.InstituteID, &e.ContentAddress, &e.EncryptionKey, &e.Name,
		&e.TimeLimitMinutes, &e.QuestionCount, &state, &e.ResultsReleased, &e.CreatedAt)
	e.ApprovalState = ApprovalState(state)
	return e, err
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := scanExam(s.db.QueryRowContext(ctx, s.q(`SELECT `+examColumns+` FROM exams WHERE id=?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, err
}

func (s *SQLStore) GetExamByAddress(ctx context.Context, address string) (Exam, error) {
	e, err := scanExam(s.db.QueryRowContext(ctx, s.q(`SELECT `+examColumns+` FROM exams WHERE content_address=?`), address))
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("exam at %s: %w", address, ErrNotFound)
	}
	return e, err
}

func (s *SQLStore) ListApproved(ctx context.Context) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+examColumns+` FROM exams
		WHERE approval_state=? ORDER BY created_at, id`), string(ApprovalApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetResultsReleased(ctx context.Context, examID, instituteID string) (Exam, error) {
	// Rows affected is not used for the ownership check: mysql reports 0 for
	// an UPDATE that leaves the row unchanged, which a repeat release does.
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE exams SET results_released=? WHERE id=? AND institute_id=?`),
		true, examID, instituteID); err != nil {
		return Exam{}, err
	}
	e, err := s.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, err
	}
	if e.InstituteID != instituteID {
		return Exam{}, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
	}
	return e, nil
}

const attemptColumns = `id,student_id,exam_id,answers_json,score,correct_count,total_questions,submitted_at`

func (s *SQLStore) CreateAttempt(ctx context.Context, rec AttemptRecord) error {
	answers := rec.Answers
	if answers == nil {
		answers = Answers{}
	}
	buf, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO attempts (`+attemptColumns+`) VALUES (?,?,?,?,?,?,?,?)`),
		rec.ID, rec.StudentID, rec.ExamID, string(buf), rec.Score, rec.CorrectCount, rec.TotalQuestions,
		rec.SubmittedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("student %s exam %s: %w", rec.StudentID, rec.ExamID, ErrDuplicateAttempt)
		}
		return err
	}
	return nil
}

func scanAttempt(row rowScanner) (AttemptRecord, error) {
	var a AttemptRecord
	var ajson string
	var submitted int64
	if err := row.Scan(&a.ID, &a.StudentID, &a.ExamID, &ajson, &a.Score, &a.CorrectCount,
		&a.TotalQuestions, &submitted); err != nil {
		return AttemptRecord{}, err
	}
	a.SubmittedAt = time.UnixMilli(submitted).UTC()
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return AttemptRecord{}, fmt.Errorf("attempt %s answers: %w", a.ID, err)
	}
	return a, nil
}

func (s *SQLStore) FindAttempt(ctx context.Context, studentID, examID string) (AttemptRecord, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, s.q(`SELECT `+attemptColumns+` FROM attempts
		WHERE student_id=? AND exam_id=?`), studentID, examID))
	if errors.Is(err, sql.ErrNoRows) {
		return AttemptRecord{}, fmt.Errorf("attempt: %w", ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) AttemptedExamIDs(ctx context.Context, studentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT exam_id FROM attempts WHERE student_id=? ORDER BY exam_id`), studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptRecord, error) {
	return s.listAttempts(ctx, `student_id=?`, studentID)
}

func (s *SQLStore) ListAttemptsByExam(ctx context.Context, examID string) ([]AttemptRecord, error) {
	return s.listAttempts(ctx, `exam_id=?`, examID)
}

func (s *SQLStore) listAttempts(ctx context.Context, where string, arg string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+attemptColumns+` FROM attempts WHERE `+where+`
		ORDER BY submitted_at DESC, id DESC`), arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AttemptRecord
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
