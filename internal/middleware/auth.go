package middleware

import (
	"net/http"
	"strings"

	"github.com/draftpool/backend/internal/auth"
	"github.com/draftpool/backend/internal/handler"
	"github.com/draftpool/backend/internal/logging"
)

// Auth guards the operator surface: settlement, reconciliation and ledger
// statement endpoints all require a valid operator token.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logging.FromContext(r.Context()).Warn("token validation failed", "error", err)
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithOperatorID(r.Context(), claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
