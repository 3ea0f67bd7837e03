package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/jengatrack/jengatrack-api/internal/service"
	"go.uber.org/zap"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// devAccountHeader is honoured only when dev auth is enabled.
const devAccountHeader = "X-Account-ID"

// AuthMiddleware validates Bearer tokens and injects the account ID into the
// request context. With devAuth set, a bare X-Account-ID header is accepted
// instead of a token.
func AuthMiddleware(tokens *service.TokenVerifier, devAuth bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devAuth {
				if id := strings.TrimSpace(r.Header.Get(devAccountHeader)); id != "" {
					next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), id)))
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			if tokens == nil {
				writeError(w, http.StatusUnauthorized, "token verification is not configured")
				return
			}
			claims, err := tokens.Verify(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), claims.AccountID())))
		})
	}
}

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountIDFromContext extracts the authenticated account ID from context.
func AccountIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}
