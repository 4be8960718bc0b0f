package rbac

import (
	"context"
	"slices"
	"strings"
)

const (
	RoleStudent   = "student"
	RoleInstitute = "institute"
	RoleAdmin     = "admin"
)

// Checker answers whether a role holds a permission. Grants may end in "*"
// to cover a whole prefix, e.g. "results:*".
type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	return slices.ContainsFunc(c.RolePermissions[role], func(grant string) bool {
		return grants(grant, perm)
	})
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	return slices.ContainsFunc(perms, func(p string) bool { return c.Has(role, p) })
}

func grants(grant, perm string) bool {
	prefix, wildcard := strings.CutSuffix(grant, "*")
	if !wildcard {
		return grant == perm
	}
	return strings.HasPrefix(perm, prefix)
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns "" when no role was attached; no permission is
// granted to the empty role.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
