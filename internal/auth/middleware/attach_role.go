package auth

import (
	"database/sql"
	"net/http"

	"github.com/mind-engage/examvault/internal/rbac"
)

// AttachRoleFromDB replaces the token role with the one in the users
// table. A user missing from the table keeps the claimed role only when
// allowClaimFallback is set (dev and offline mode).
func AttachRoleFromDB(db *sql.DB, driver string, allowClaimFallback bool) func(http.Handler) http.Handler {
	query := `SELECT role FROM users WHERE id=?`
	if driver == "postgres" {
		query = `SELECT role FROM users WHERE id=$1`
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx, query, sub).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case allowClaimFallback && claimRole != "":
				// unknown user or failed lookup; keep what JWTMiddleware set
				next.ServeHTTP(w, r)
			default:
				rbac.Deny(w)
			}
		})
	}
}
