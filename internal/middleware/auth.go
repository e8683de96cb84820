package middleware

import (
	"context"
	"net/http"

	"github.com/arko-chat/flurrybridge/internal/session"
)

type contextKey string

const claimsKey = contextKey("claims")

// Auth rejects requests without a valid bridge token. A token passed in
// the query string is moved into a cookie so later requests from the
// same page authenticate without it.
func Auth(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromQuery := session.Token(r)
			if token == "" {
				http.Error(w, "missing bridge token", http.StatusUnauthorized)
				return
			}
			claims, err := store.Verify(token)
			if err != nil {
				http.Error(w, "invalid bridge token", http.StatusUnauthorized)
				return
			}
			if fromQuery {
				store.SetCookie(w, token)
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClaims(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(session.Claims)
	return c, ok
}
