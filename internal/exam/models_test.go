package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswers_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    Answers
		wantErr bool
	}{
		{name: "sparse", in: `{"0":1,"3":2}`, want: Answers{0: 1, 3: 2}},
		{name: "null options are unanswered", in: `{"0":null,"1":2,"2":null}`, want: Answers{1: 2}},
		{name: "all null", in: `{"0":null,"1":null}`, want: Answers{}},
		{name: "empty", in: `{}`, want: Answers{}},
		{name: "non numeric key", in: `{"first":1}`, wantErr: true},
		{name: "string option", in: `{"0":"1"}`, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Answers
			err := json.Unmarshal([]byte(tc.in), &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAnswers_NullBodyStaysNil(t *testing.T) {
	var req struct {
		Answers Answers `json:"answers"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"answers":null}`), &req))
	assert.Nil(t, req.Answers)
}

func TestAttemptRecord_JSONIsCamelCase(t *testing.T) {
	buf, err := json.Marshal(AttemptRecord{ID: "a1", StudentID: "s", ExamID: "e", CorrectCount: 1, TotalQuestions: 2})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf, &m))
	for _, k := range []string{"studentId", "examId", "correctCount", "totalQuestions", "submittedAt"} {
		assert.Contains(t, m, k)
	}
}
