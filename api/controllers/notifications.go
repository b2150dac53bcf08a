package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/notifications"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

// NotificationsDrain returns and removes the visitor's pending notices.
func NotificationsDrain(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		notices, err := svc.Drain(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if notices == nil {
			notices = []notifications.Notice{}
		}
		responses.WriteSuccess(w, notices)
	}
}
