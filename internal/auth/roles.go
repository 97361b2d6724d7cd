package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// HasAnyRole reports whether callerRoles satisfies the allow-list. ADMIN passes
// every check; comparison ignores case.
func HasAnyRole(callerRoles []string, allowed ...string) bool {
	for _, role := range callerRoles {
		if strings.EqualFold(role, RoleAdmin) {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(role, strings.TrimSpace(a)) {
				return true
			}
		}
	}
	return false
}

// RoleAuthorization gates routes on the roles carried in the access token.
type RoleAuthorization struct {
	logger *slog.Logger
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleAuthorization{logger: logger}
}

// Require lets the request through when the caller holds any of allowed.
// Failures are answered with a bare status so the locale middleware can render them.
func (ra *RoleAuthorization) Require(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			if !HasAnyRole(user.Roles, allowed...) {
				ra.logger.Warn("role check denied",
					"user_id", user.ID,
					"roles", user.Roles,
					"allowed", allowed)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
