package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/delivery"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

func DeliveryGet(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "delivery")
			return
		}
		ctx := r.Context()
		d, err := svc.Get(ctx, middleware.TokenFromContext(ctx), middleware.RoleFromContext(ctx), chi.URLParam(r, "deliveryCode"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, d)
	}
}

func DeliveryConfirm(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "delivery")
			return
		}
		ctx := r.Context()
		d, err := svc.Confirm(ctx, middleware.TokenFromContext(ctx), middleware.RoleFromContext(ctx), chi.URLParam(r, "deliveryCode"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, d)
	}
}
