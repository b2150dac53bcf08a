package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/preferences"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

func PreferencesGet(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "preferences")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		prefs, err := svc.Get(r.Context(), visitorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}

// PreferencesUpdate applies a partial update; omitted fields stay as they are.
func PreferencesUpdate(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "preferences")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var update preferences.Update
		if err := validators.DecodeJSON(r, &update); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefs, err := svc.Set(r.Context(), visitorID, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}
