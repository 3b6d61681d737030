package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"chat-hive/domain"
	"chat-hive/transport/ws"
)

type contextKey string

const userKey contextKey = "user"

// authenticated admits a request through the auth gate and stores the
// resolved identity on the context. The credential can arrive as the
// session cookie, a bearer header, or the query fallback.
func (h *handlers) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.Gate.Admit(httpCredential(r))
		if err != nil {
			h.Log.Debug("Request rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func httpCredential(r *http.Request) string {
	if cookie, err := r.Cookie(ws.CredentialCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get(ws.CredentialQuery)
}

func requestUser(r *http.Request) domain.User {
	user, _ := r.Context().Value(userKey).(domain.User)
	return user
}

// adminOnly guards the dashboard with a shared key.
func (h *handlers) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if h.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.AdminKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
