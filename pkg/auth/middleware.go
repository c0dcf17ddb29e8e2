package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/branchpos/pkg/httpx"
	"github.com/ghuser/branchpos/pkg/logger"
)

// Session layout written by the login flow, which lives outside this service.
const (
	SessionName        = "branchpos_session"
	SessionUserIDKey   = "user_id"
	SessionRoleKey     = "role"
	SessionBranchIDKey = "branch_id"
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// It reads the session cookie, rebuilds the Actor and injects it into the request context.
// Returns 401 Unauthorized if the session is missing, invalid, or lacks a user or role.
//
// After this middleware, handlers can safely call auth.ActorFromCtx(r.Context()).
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, SessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userIDStr, ok := session.Values[SessionUserIDKey].(string)
			if !ok || userIDStr == "" {
				log.WarnContext(r.Context(), "session missing user_id")
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				log.WarnContext(r.Context(), "invalid user_id in session", "user_id", userIDStr, "error", err)
				httpx.JSONError(w, http.StatusUnauthorized, "invalid session data")
				return
			}

			roleStr, _ := session.Values[SessionRoleKey].(string)
			role, err := ParseRole(roleStr)
			if err != nil {
				log.WarnContext(r.Context(), "invalid role in session", "user_id", userID, "error", err)
				httpx.JSONError(w, http.StatusUnauthorized, "invalid session data")
				return
			}

			var branchID uuid.UUID
			if s, ok := session.Values[SessionBranchIDKey].(string); ok && s != "" {
				if branchID, err = uuid.Parse(s); err != nil {
					log.WarnContext(r.Context(), "invalid branch_id in session", "user_id", userID, "error", err)
					httpx.JSONError(w, http.StatusUnauthorized, "invalid session data")
					return
				}
			}

			ctx := WithActor(r.Context(), Actor{UserID: userID, Role: role, BranchID: branchID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose actor does not hold one of roles with
// 403 Forbidden. Mount it after RequireAuth.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromCtx(r.Context())
			if err != nil {
				httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !actor.HasRole(roles...) {
				httpx.JSONError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
