package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// WrapWithAuth guards the API behind a static bearer-token list. The health
// and metrics endpoints stay open for probes and scrapers. An empty token
// list disables authentication entirely (local development).
func WrapWithAuth(next http.Handler, tokens []string) http.Handler {
	if len(tokens) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		for _, token := range tokens {
			if subtle.ConstantTimeCompare([]byte(raw), []byte(token)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})
}
