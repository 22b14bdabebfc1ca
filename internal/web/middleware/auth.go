package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/outreach/internal/logging"
)

// APIKeyAuth returns middleware that checks the X-API-Key header against
// keys. When required is false every request passes. When required is true
// and keys is empty every request is rejected.
func APIKeyAuth(required bool, keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			logger := logging.FromContext(r.Context())

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				logger.Warn("auth: missing API key", "path", r.URL.Path, "ip", ClientIP(r))
				denied(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			if !isValidAPIKey(apiKey, keys) {
				logger.Warn("auth: invalid API key", "path", r.URL.Path, "ip", ClientIP(r))
				denied(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denied(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

// isValidAPIKey compares key against every configured key in constant time,
// whichever key (if any) matches.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
