package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated user's id. Set by the bearer
	// guard, read by RateLimitByUser.
	CtxKeyUserID ctxKey = "user_id"
)

// UserIDFromContext returns the authenticated user id, or "" when the request
// is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ContextWithUserID stamps the authenticated user id onto the context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}
