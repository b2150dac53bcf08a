package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
)

type contextKey string

const (
	ctxSession   contextKey = "session"
	ctxRequestID contextKey = "request_id"
	ctxClientIP  contextKey = "client_ip"
)

// VisitorIDFromContext returns the visitor id set by the Visitor middleware.
func VisitorIDFromContext(ctx context.Context) string {
	return profile.VisitorIDFromContext(ctx)
}

// SessionFromContext returns the restored session snapshot. Requests that
// never went through the Session middleware read as anonymous.
func SessionFromContext(ctx context.Context) session.Snapshot {
	if ctx == nil {
		return session.Snapshot{State: session.StateAnonymous}
	}
	if v, ok := ctx.Value(ctxSession).(session.Snapshot); ok {
		return v
	}
	return session.Snapshot{State: session.StateAnonymous}
}

// WithSession injects the session snapshot into the context.
func WithSession(ctx context.Context, snap session.Snapshot) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, snap)
}

func UserIDFromContext(ctx context.Context) string {
	snap := SessionFromContext(ctx)
	if !snap.Authenticated() {
		return ""
	}
	return snap.Session.User.ID
}

func RoleFromContext(ctx context.Context) enums.Role {
	snap := SessionFromContext(ctx)
	if !snap.Authenticated() {
		return ""
	}
	return snap.Session.User.Role
}

func TokenFromContext(ctx context.Context) string {
	snap := SessionFromContext(ctx)
	if !snap.Authenticated() {
		return ""
	}
	return snap.Session.Token
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// ClientIPFromContext returns the caller address resolved by the Visitor middleware.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}
