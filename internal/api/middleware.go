// Package api implements the daybook JSON API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenCookie holds the token for browser clients. Page loads and
// EventSource streams cannot set an Authorization header.
const TokenCookie = "daybook_token"

// Authorized reports whether r carries token, either as
// "Authorization: Bearer <token>" or in the TokenCookie cookie.
// An empty token never matches.
func Authorized(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		c, err := r.Cookie(TokenCookie)
		if err != nil {
			return false
		}
		got = c.Value
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// AuthMiddleware returns middleware that validates the API token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry the token (see Authorized).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled && !Authorized(r, token) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
