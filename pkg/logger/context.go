package logger

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestID returns "" when ctx carries none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// FromContext tags l with request_id and user_id when ctx has them, and
// returns l itself otherwise.
func FromContext(ctx context.Context, l Logger) Logger {
	var fields []Field
	if id := RequestID(ctx); id != "" {
		fields = append(fields, String("request_id", id))
	}
	if id, _ := ctx.Value(userIDKey).(string); id != "" {
		fields = append(fields, String("user_id", id))
	}
	if fields == nil {
		return l
	}
	return l.With(fields...)
}
