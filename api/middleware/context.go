package middleware

import "context"

type contextKey string

const (
	ctxSubject   contextKey = "subject"
	ctxScope     contextKey = "scope"
	ctxRequestID contextKey = "request_id"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxSubject)
}

func ScopeFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxScope)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRequestID)
}
