package exam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T) (*Catalog, Store) {
	t.Helper()
	ctx := context.Background()
	s := NewInMemoryStore()
	exams := []Exam{
		{ID: "e1", InstituteID: "inst-a", ContentAddress: "Qm1", EncryptionKey: "k", Name: "Algebra", TimeLimitMinutes: 30, QuestionCount: 4, ApprovalState: ApprovalApproved},
		{ID: "e2", InstituteID: "inst-a", ContentAddress: "Qm2", EncryptionKey: "k", Name: "Geometry", TimeLimitMinutes: 45, QuestionCount: 10, ApprovalState: ApprovalApproved},
		{ID: "e3", InstituteID: "inst-b", ContentAddress: "Qm3", EncryptionKey: "k", Name: "Draft", TimeLimitMinutes: 10, QuestionCount: 2, ApprovalState: ApprovalPending},
	}
	for _, e := range exams {
		require.NoError(t, s.PutExam(ctx, e))
	}
	return NewCatalog(s, s), s
}

func TestCatalog_ListAvailable(t *testing.T) {
	ctx := context.Background()
	c, s := seedCatalog(t)

	got, err := c.ListAvailable(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ExamSummary{ID: "e1", Name: "Algebra", TimeLimitMinutes: 30, TotalQuestions: 4, ContentAddress: "Qm1"}, got[0])
	assert.Equal(t, "e2", got[1].ID)

	require.NoError(t, s.CreateAttempt(ctx, AttemptRecord{ID: "a1", StudentID: "stu-1", ExamID: "e1", SubmittedAt: time.Now()}))

	got, err = c.ListAvailable(ctx, "stu-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].ID)

	// other students are unaffected
	got, err = c.ListAvailable(ctx, "stu-2")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCatalog_FindRejectsUnapproved(t *testing.T) {
	ctx := context.Background()
	c, _ := seedCatalog(t)

	e, err := c.FindByAddress(ctx, "Qm2")
	require.NoError(t, err)
	assert.Equal(t, "e2", e.ID)

	_, err = c.FindByAddress(ctx, "Qm3")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.FindByAddress(ctx, "QmNope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.FindByID(ctx, "e3")
	assert.ErrorIs(t, err, ErrNotFound)

	e, err = c.Lookup(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, "Draft", e.Name)
}

func TestCatalog_Release(t *testing.T) {
	ctx := context.Background()
	c, _ := seedCatalog(t)

	testCases := []struct {
		name      string
		examID    string
		requester string
		wantErr   error
	}{
		{"owner", "e1", "inst-a", nil},
		{"owner again", "e1", "inst-a", nil},
		{"foreign institute", "e2", "inst-b", ErrNotFound},
		{"unknown exam", "e9", "inst-a", ErrNotFound},
		{"empty exam id", "", "inst-a", ErrNotFound},
		{"empty requester", "e1", "", ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := c.Release(ctx, tc.examID, tc.requester)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, e.ResultsReleased)
		})
	}

	e, err := c.Lookup(ctx, "e2")
	require.NoError(t, err)
	assert.False(t, e.ResultsReleased)
}

func TestCatalog_Owned(t *testing.T) {
	ctx := context.Background()
	c, _ := seedCatalog(t)

	_, err := c.Owned(ctx, "e1", "inst-a")
	assert.NoError(t, err)
	_, err = c.Owned(ctx, "e1", "inst-b")
	assert.ErrorIs(t, err, ErrNotFound)
}
