// Package admin gates operator endpoints behind a shared admin token.
package admin

import (
	"log/slog"
	"net/http"

	dErrors "garrison/pkg/domain-errors"
	"garrison/pkg/platform/httputil"
	"garrison/pkg/platform/secrets"
	"garrison/pkg/requestcontext"
)

// RequireAdminToken verifies the X-Admin-Token header against a bcrypt hash
// of the expected token. Only the hash is ever held in config; bcrypt's
// comparison is constant-time.
func RequireAdminToken(expectedTokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" || secrets.Verify(token, expectedTokenHash) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
