// Package requestctx carries per-request values that outlive the HTTP layer,
// such as audit and log correlation data.
package requestctx

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	clientIPKey  ctxKey = "client_ip"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func GetClientIP(ctx context.Context) string {
	if value, ok := ctx.Value(clientIPKey).(string); ok {
		return value
	}
	return ""
}

// LogAttrs returns slog key/value pairs identifying the request.
func LogAttrs(ctx context.Context) []any {
	attrs := make([]any, 0, 4)
	if id := GetRequestID(ctx); id != "" {
		attrs = append(attrs, "requestId", id)
	}
	if ip := GetClientIP(ctx); ip != "" {
		attrs = append(attrs, "clientIp", ip)
	}
	return attrs
}
