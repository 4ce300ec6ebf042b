package middleware

import (
	"context"
	"errors"
	"net/http"

	"vieux-grimoire-api/internal/auth"
	"vieux-grimoire-api/internal/logger"
	"vieux-grimoire-api/internal/utils"
)

type contextKey string

const ContextUserID contextKey = "user_id"

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

func JWTAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := auth.GetBearerToken(r.Header)
			if err != nil {
				if errors.Is(err, auth.ErrNoAuthHeader) {
					utils.JSONError(w, "No token provided", http.StatusUnauthorized)
					return
				}
				utils.JSONError(w, "Invalid token format", http.StatusUnauthorized)
				return
			}

			userID, err := verifier.Verify(tokenStr)
			if err != nil {
				log := logger.Get()
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
				utils.JSONError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id stored by JWTAuthMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextUserID).(string)
	return userID, ok && userID != ""
}

// WithUserID stores userID the same way JWTAuthMiddleware does.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserID, userID)
}
