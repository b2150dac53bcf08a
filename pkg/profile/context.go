package profile

import "context"

type visitorKey struct{}

// WithVisitorID stores the visitor identifier on the context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, visitorKey{}, visitorID)
}

// VisitorIDFromContext returns the visitor identifier, or "" when absent.
func VisitorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(visitorKey{}).(string); ok {
		return v
	}
	return ""
}
