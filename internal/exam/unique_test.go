package exam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAttempt_MapsUniqueViolations(t *testing.T) {
	testCases := []struct {
		name    string
		driver  string
		dbErr   error
		wantDup bool
	}{
		{"postgres unique", "postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", "postgres", &pgconn.PgError{Code: "23503"}, false},
		{"mysql duplicate", "mysql", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", "mysql", &mysql.MySQLError{Number: 1452}, false},
		{"plain error", "sqlite", errors.New("disk I/O error"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer conn.Close()

			mock.ExpectExec("INSERT INTO attempts").WillReturnError(tc.dbErr)

			s := NewSQLStore(conn, tc.driver)
			err = s.CreateAttempt(context.Background(), AttemptRecord{
				ID: "a1", StudentID: "stu", ExamID: "e1", SubmittedAt: time.Now(),
			})
			require.Error(t, err)
			assert.Equal(t, tc.wantDup, errors.Is(err, ErrDuplicateAttempt))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	s := NewSQLStore(nil, "postgres")
	assert.Equal(t, "SELECT 1 WHERE a=$1 AND b=$2", s.q("SELECT 1 WHERE a=? AND b=?"))
	assert.Equal(t, "a=?", NewSQLStore(nil, "mysql").q("a=?"))
}

func TestSQLStore_CorruptAnswersSurface(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	cols := []string{"id", "student_id", "exam_id", "answers_json", "score", "correct_count", "total_questions", "submitted_at"}
	mock.ExpectQuery("SELECT (.+) FROM attempts").
		WithArgs("stu-1", "e1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("a1", "stu-1", "e1", `{"0":`, 50.0, 1, 2, int64(1000)))
	mock.ExpectQuery("SELECT (.+) FROM attempts").
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a1", "stu-1", "e1", `{"0":1}`, 50.0, 1, 2, int64(1000)).
			AddRow("a2", "stu-2", "e1", `not json`, 0.0, 0, 2, int64(2000)))

	s := NewSQLStore(conn, "sqlite")
	_, err = s.FindAttempt(context.Background(), "stu-1", "e1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt a1 answers")
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = s.ListAttemptsByExam(context.Background(), "e1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt a2 answers")
	assert.NoError(t, mock.ExpectationsWereMet())
}
