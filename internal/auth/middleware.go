package auth

import (
	"context"
	"net/http"
	"slices"

	"ms-preorder/internal/logger"
	"ms-preorder/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Middleware verifies the caller's token and puts the identity in the request context.
func Middleware(verifier TokenVerifier, cookieName string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r, cookieName)
			if err != nil {
				utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", err.Error()))
				return
			}

			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", r.Method+" "+r.URL.Path+": "+err.Error())
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok || !slices.Contains(roles, id.Role) {
				utils.WriteJSON(w, http.StatusForbidden, utils.ErrorResponse("forbidden", "access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// IsStaff reports whether the caller may act on any order.
func IsStaff(ctx context.Context) bool {
	id, _ := FromContext(ctx)
	return id.Role == RoleStaff || id.Role == RoleAdmin
}
