package middle

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Sammk21/medusa-admin/infra/response"
)

// AuthMiddleware admits requests carrying "Authorization: Bearer <apiKey>".
// An empty apiKey fails every request with 500 so a misconfigured server never runs open.
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				response.Error(w, http.StatusInternalServerError, "API key not configured", nil)
				return
			}

			token, problem := bearerToken(r)
			if problem != "" {
				response.Error(w, http.StatusUnauthorized, problem, nil)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				response.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken returns the token, or a client facing message describing what is wrong with the header
func bearerToken(r *http.Request) (token, problem string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Authorization header required"
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", "Invalid authorization format. Use: Bearer <api_key>"
	}

	if token = strings.TrimSpace(token); token == "" {
		return "", "API key required"
	}
	return token, ""
}
