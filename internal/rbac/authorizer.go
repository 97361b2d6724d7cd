package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

// PermissionChecker answers whether userID holds an active grant through any
// active role. Implementations must hit the store on every call.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID int64, module, permission string) (bool, error)
}

type Authorizer struct {
	checker  PermissionChecker
	provider PolicyProvider
	logger   *slog.Logger
}

func NewAuthorizer(checker PermissionChecker, lg *slog.Logger) *Authorizer {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Authorizer{checker: checker, logger: lg}
}

// Authorize evaluates a named policy for user. Anything that cannot be proven
// allowed is denied; errors are returned for logging only.
func (a *Authorizer) Authorize(ctx context.Context, user *auth.User, policy string) (bool, error) {
	if user == nil {
		return false, nil
	}

	req, err := a.provider.GetPolicy(policy)
	if err != nil {
		return false, err
	}

	switch r := req.(type) {
	case PermissionRequirement:
		return a.checker.HasPermission(ctx, user.ID, r.Module, r.Permission)
	case RoleRequirement:
		return auth.HasAnyRole(user.Roles, r.Roles...), nil
	default:
		return false, nil
	}
}

// Require guards a route with a named policy: 401 without a caller, 403 when the
// policy is not satisfied or could not be evaluated.
func (a *Authorizer) Require(policy string) func(http.Handler) http.Handler {
	if _, err := a.provider.GetPolicy(policy); err != nil {
		a.logger.Error("route guarded by unresolvable policy, all requests will be denied", "policy", policy, "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			allowed, err := a.Authorize(r.Context(), user, policy)
			if err != nil {
				logger.From(r.Context()).Error("authorization lookup failed", "policy", policy, "error", err)
			}
			if !allowed {
				logger.From(r.Context()).Warn("access denied", "policy", policy, "user_id", user.ID)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authorizer) RequirePermission(module, permission string) func(http.Handler) http.Handler {
	return a.Require(PermissionPolicy(module, permission))
}
