package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type attemptKey struct{ student, exam string }

type memoryStore struct {
	mu       sync.RWMutex
	exams    map[string]Exam
	order    []string
	attempts map[attemptKey]AttemptRecord
}

// NewInMemoryStore returns a Store kept in process memory. Attempt
// uniqueness is enforced under the same lock as the insert.
func NewInMemoryStore() Store {
	return &memoryStore{
		exams:    map[string]Exam{},
		attempts: map[attemptKey]AttemptRecord{},
	}
}

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" || e.ContentAddress == "" {
		return fmt.Errorf("exam id and content address required")
	}
	for id, other := range m.exams {
		if id != e.ID && other.ContentAddress == e.ContentAddress {
			return fmt.Errorf("content address %s already used by exam %s", e.ContentAddress, id)
		}
	}
	if _, ok := m.exams[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	m.exams[e.ID] = e
	return nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %s: %w", id, ErrNotFound)
	}
	return e, nil
}

func (m *memoryStore) GetExamByAddress(_ context.Context, address string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.exams {
		if e.ContentAddress == address {
			return e, nil
		}
	}
	return Exam{}, fmt.Errorf("exam at %s: %w", address, ErrNotFound)
}

func (m *memoryStore) ListApproved(_ context.Context) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Exam, 0, len(m.order))
	for _, id := range m.order {
		if e := m.exams[id]; e.Approved() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) SetResultsReleased(_ context.Context, examID, instituteID string) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[examID]
	if !ok || e.InstituteID != instituteID {
		return Exam{}, fmt.Errorf("exam %s: %w", examID, ErrNotFound)
	}
	e.ResultsReleased = true
	m.exams[examID] = e
	return e, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, rec AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attemptKey{student: rec.StudentID, exam: rec.ExamID}
	if _, ok := m.attempts[k]; ok {
		return fmt.Errorf("student %s exam %s: %w", rec.StudentID, rec.ExamID, ErrDuplicateAttempt)
	}
	m.attempts[k] = cloneRecord(rec)
	return nil
}

func (m *memoryStore) FindAttempt(_ context.Context, studentID, examID string) (AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.attempts[attemptKey{student: studentID, exam: examID}]
	if !ok {
		return AttemptRecord{}, fmt.Errorf("attempt: %w", ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (m *memoryStore) AttemptedExamIDs(_ context.Context, studentID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.attempts {
		if k.student == studentID {
			out = append(out, k.exam)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryStore) ListAttemptsByStudent(_ context.Context, studentID string) ([]AttemptRecord, error) {
	return m.filter(func(r AttemptRecord) bool { return r.StudentID == studentID }), nil
}

func (m *memoryStore) ListAttemptsByExam(_ context.Context, examID string) ([]AttemptRecord, error) {
	return m.filter(func(r AttemptRecord) bool { return r.ExamID == examID }), nil
}

func (m *memoryStore) filter(keep func(AttemptRecord) bool) []AttemptRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AttemptRecord
	for _, r := range m.attempts {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sortBySubmittedDesc(out)
	return out
}

func sortBySubmittedDesc(recs []AttemptRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].SubmittedAt.Equal(recs[j].SubmittedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].SubmittedAt.After(recs[j].SubmittedAt)
	})
}

func cloneRecord(r AttemptRecord) AttemptRecord {
	if r.Answers != nil {
		a := make(Answers, len(r.Answers))
		for k, v := range r.Answers {
			a[k] = v
		}
		r.Answers = a
	}
	return r
}
