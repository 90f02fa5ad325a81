package rbac

import (
	"context"
	"strings"
)

type ctxKey string

const ctxKeyRole ctxKey = "role"

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRole); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Has reports whether the role grants the permission.
func Has(role, perm string) bool {
	for _, p := range RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

// Any reports whether the role grants at least one of the permissions.
func Any(role string, perms ...string) bool {
	for _, p := range perms {
		if Has(role, p) {
			return true
		}
	}
	return false
}

// matchPerm supports exact matches, a global "*" and trailing wildcards such
// as "attempt:*".
func matchPerm(granted, want string) bool {
	if granted == "*" || granted == want {
		return true
	}
	if strings.HasSuffix(granted, ":*") {
		return strings.HasPrefix(want, strings.TrimSuffix(granted, "*"))
	}
	return false
}
