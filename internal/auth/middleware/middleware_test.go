package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examvault/internal/db"
	"github.com/mind-engage/examvault/internal/rbac"
)

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sub", SubjectFromContext(r.Context()))
		w.Header().Set("X-Role", rbac.RoleFromContext(r.Context()))
	})
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret")
	good, err := a.IssueJWT("stu-1", rbac.RoleStudent)
	require.NoError(t, err)
	foreign, err := NewAuthService("other").IssueJWT("stu-1", rbac.RoleStudent)
	require.NoError(t, err)

	expired := &AuthService{hmac: []byte("secret"), ttl: -time.Minute}
	old, err := expired.IssueJWT("stu-1", rbac.RoleStudent)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "stu-1", Role: rbac.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"valid", "Bearer " + good, http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "missing bearer"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "missing bearer"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "bad token"},
		{"expired", "Bearer " + old, http.StatusUnauthorized, "bad token"},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized, "bad token"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			JWTMiddleware(a)(echoIdentity()).ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, "stu-1", rec.Header().Get("X-Sub"))
				assert.Equal(t, rbac.RoleStudent, rec.Header().Get("X-Role"))
			} else {
				assert.JSONEq(t, `{"error":"Unauthorized","message":"`+tc.wantMsg+`"}`, rec.Body.String())
			}
		})
	}
}

func TestAttachRoleFromDB(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, `INSERT INTO users (id, name, email, role) VALUES ('inst-1','Inst','', 'institute')`)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		sub       string
		claimRole string
		fallback  bool
		wantCode  int
		wantRole  string
	}{
		{"db role wins", "inst-1", rbac.RoleStudent, false, http.StatusOK, rbac.RoleInstitute},
		{"unknown user with fallback", "stu-9", rbac.RoleStudent, true, http.StatusOK, rbac.RoleStudent},
		{"unknown user strict", "stu-9", rbac.RoleStudent, false, http.StatusForbidden, ""},
		{"unknown user without claim", "stu-9", "", true, http.StatusForbidden, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rctx := rbac.WithRole(WithSubject(req.Context(), tc.sub), tc.claimRole)
			rec := httptest.NewRecorder()
			AttachRoleFromDB(conn, "sqlite", tc.fallback)(echoIdentity()).ServeHTTP(rec, req.WithContext(rctx))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantRole, rec.Header().Get("X-Role"))
		})
	}
}
