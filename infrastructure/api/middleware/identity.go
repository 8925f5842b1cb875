package middleware

import (
	"context"
	"net/http"
	"strconv"
)

// userIDHeader is set by the upstream auth gateway after session
// verification. Session issuance itself lives outside this service.
const userIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "codeowl.user_id"

// RequireUser rejects requests without a resolvable user identity and
// stores the user ID in the request context.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(userIDHeader), 10, 64)
		if err != nil || id <= 0 {
			WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user identity"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID returns a context carrying the user ID.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the user ID stored by RequireUser.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
