package httpapi

import "net/http"

// authMiddleware enforces the X-API-Key header when the server was
// configured with a non-empty key. A missing header is UNAUTHENTICATED
// (401); a present but wrong header is FORBIDDEN (403).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get("X-API-Key")
		if got == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing X-API-Key header")
			return
		}
		if got != s.apiKey {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
