package server

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the pre-shared key.
const APIKeyHeader = "x-api-key"

// requireAPIKey rejects requests whose x-api-key header does not match key.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid API key", Code: CodeUnauthorized})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
