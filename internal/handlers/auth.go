package handlers

import (
	"net/http"
	"strings"

	"media-relay/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// AuthEnabled reports whether a token hash is configured.
func (h *Handlers) AuthEnabled() bool {
	return len(h.tokenHash) > 0
}

// AuthMiddleware requires a bearer token matching the configured bcrypt hash
// on /api routes. Health and version endpoints stay open.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.AuthEnabled() || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="media-relay"`)
			writeJSONError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)); err != nil {
			logging.Debug("Rejected API token from %s", r.RemoteAddr)
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
