package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"trustid/pkg/requestcontext"
)

// RequireAdminToken guards operator-only routes. The optional
// X-Admin-Actor-ID header is recorded for audit attribution.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			actor := r.Header.Get("X-Admin-Actor-ID")
			if actor == "" {
				actor = "unknown-admin"
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminActor(ctx, actor)))
		})
	}
}
