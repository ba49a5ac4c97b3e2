package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"imeigate/pkg/requestcontext"
)

// RequireAPIToken gates a route behind a static bearer credential. Both the
// raw token and the "Bearer <token>" form are accepted; existing clients
// send either. Comparison is constant-time to prevent timing attacks.
func RequireAPIToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			candidate := header
			if after, ok := strings.CutPrefix(header, "Bearer "); ok {
				candidate = after
			}
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(expectedToken)) != 1 {
				logger.WarnContext(r.Context(), "api token mismatch",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"invalid token"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
