package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

// UserIDKey holds the caller identity taken from UserIDHeader.
const UserIDKey ContextKey = "userID"

// UserIDFromContext returns the identity stored by RequireUser.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// RequireUser rejects requests without a caller identity and stores the
// identity in the request context otherwise.
func (h responder) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			h.logger.WarnContext(r.Context(), "User identity header missing", slog.String("path", r.URL.Path))
			h.respondError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		h.logger.DebugContext(ctx, "Caller identified", slog.String("userID", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
