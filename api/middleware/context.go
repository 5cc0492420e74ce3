package middleware

import "context"

type contextKey string

const ctxUserID contextKey = "user_id"

// WithUserID stamps the authenticated user's id onto the context. Auth is
// the only writer; controllers read it back through UserIDFromContext.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserIDFromContext returns the authenticated user id, or "" when the
// request never passed the auth middleware.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxUserID).(string)
	return id
}
