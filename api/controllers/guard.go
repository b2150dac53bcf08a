package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/routeguard"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type guardRequest struct {
	Path string `json:"path" validate:"required,max=2048"`
}

// GuardDecide evaluates page access for the current session.
func GuardDecide(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guardRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap := middleware.SessionFromContext(r.Context())
		in := routeguard.Input{
			SessionLoading:  snap.State == session.StateLoading,
			IsAuthenticated: snap.Authenticated(),
			Path:            req.Path,
		}
		if snap.Authenticated() {
			in.Role = snap.Session.User.Role
		}
		responses.WriteSuccess(w, routeguard.Decide(in))
	}
}
