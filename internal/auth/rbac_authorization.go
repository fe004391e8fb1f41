package auth

import (
	"log/slog"
	"net/http"

	"github.com/widgetlabs/widget-api/internal/transport"
)

// RBACAuthorization wraps routes with active-account and permission checks.
// It assumes AuthMiddleware has already placed the user in the context.
type RBACAuthorization struct {
	base   *transport.BaseHandler
	logger *slog.Logger
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		base:   transport.NewBaseHandler(logger),
		logger: logger,
	}
}

// RequireActive rejects disabled accounts with 403. The identity is valid,
// the account just may not act.
func (ra *RBACAuthorization) RequireActive() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.base.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			if user.Disabled {
				ra.logger.Warn("access denied: account disabled", "user_id", user.ID)
				ra.base.WriteError(w, http.StatusForbidden, "Inactive user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission enforces the active check plus membership of the
// required permission in the user's effective set.
func (ra *RBACAuthorization) RequirePermission(permission Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.base.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			if user.Disabled {
				ra.logger.Warn("access denied: account disabled", "user_id", user.ID)
				ra.base.WriteError(w, http.StatusForbidden, "Inactive user")
				return
			}
			if !user.HasPermission(permission) {
				ra.logger.Warn("access denied: insufficient permissions",
					"user_id", user.ID,
					"required_permission", permission)
				ra.base.WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
