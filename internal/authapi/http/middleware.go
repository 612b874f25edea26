package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/paybackfitness/authapi/internal/authapi/domain"
	"github.com/paybackfitness/authapi/internal/authapi/service"
	"github.com/paybackfitness/authapi/pkg/httpx"
)

type ctxKey string

const (
	ctxKeyUser  ctxKey = "auth_user"
	ctxKeyToken ctxKey = "auth_token"
)

// UserFromContext returns the user the bearer guard resolved.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(domain.User)
	return user, ok
}

// tokenFromContext returns the raw bearer token the guard admitted.
func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ctxKeyToken).(string)
	return token
}

// RequireAuth admits requests carrying a valid bearer token and attaches
// the resolved user to the context. Every failure mode gets the same 401
// so callers cannot probe which check failed.
func RequireAuth(auth *service.AuthService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, service.Unauthorized("Invalid or expired token"))
				return
			}

			user, err := auth.ValidateToken(r.Context(), token)
			if err != nil {
				writeError(w, service.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			ctx = context.WithValue(ctx, ctxKeyToken, token)
			ctx = httpx.ContextWithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header. The scheme
// must be exactly "Bearer"; anything else is treated as absent.
func bearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authorization, " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return token
}
