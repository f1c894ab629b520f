package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const userIDKey contextKey = 0

// authMiddleware validates the bearer JWT and attaches the token's
// subject (the caller's user ID) to the request context, becoming
// Metadata.UserID for any insert/delete this request performs.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if s.noAuth || s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) []byte {
	v, _ := ctx.Value(userIDKey).(string)
	return []byte(v)
}
