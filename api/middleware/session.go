package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type sessionRestorer interface {
	Restore(ctx context.Context, visitorID string) (session.Snapshot, error)
}

// Session restores the visitor's persisted session and seeds the context
// with it. A restore failure degrades to anonymous.
func Session(restorer sessionRestorer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			snap := session.Snapshot{State: session.StateAnonymous}
			if visitorID := VisitorIDFromContext(ctx); visitorID != "" && restorer != nil {
				restored, err := restorer.Restore(ctx, visitorID)
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "session.restore_failed", err)
					}
				} else {
					snap = restored
				}
			}

			ctx = WithSession(ctx, snap)
			if snap.Authenticated() && logg != nil {
				ctx = logg.WithUserID(ctx, snap.Session.User.ID)
				ctx = logg.WithActorRole(ctx, snap.Session.User.Role.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
