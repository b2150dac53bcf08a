package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type cartLineRequest struct {
	ProductID string            `json:"productId" validate:"required"`
	Options   map[string]string `json:"selectedOptions,omitempty"`
}

// quantity is a pointer so a missing field is rejected rather than read as 0.
type cartQuantityRequest struct {
	ProductID string            `json:"productId" validate:"required"`
	Quantity  *int              `json:"quantity" validate:"required"`
	Options   map[string]string `json:"selectedOptions,omitempty"`
}

// writeCartResult answers 401 when the backend rejected the session so the UI
// follows RedirectTo; every other outcome is a 200 result object.
func writeCartResult(w http.ResponseWriter, res cart.Result) {
	if res.RedirectTo != "" {
		responses.WriteSuccessStatus(w, http.StatusUnauthorized, res)
		return
	}
	responses.WriteSuccess(w, res)
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		view, err := svc.Get(r.Context(), cartActor(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem adds a product. Backend failures are reported in the result
// object and the previous lines are returned.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		var input cart.AddInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartResult(w, svc.Add(r.Context(), cartActor(r), input))
	}
}

// CartUpdateItem sets a line quantity; zero or less removes the line.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		var req cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartResult(w, svc.UpdateQuantity(r.Context(), cartActor(r), req.ProductID, *req.Quantity, req.Options))
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		var req cartLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCartResult(w, svc.Remove(r.Context(), cartActor(r), req.ProductID, req.Options))
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		writeCartResult(w, svc.Clear(r.Context(), cartActor(r)))
	}
}

// CartSummary returns totals, savings and shipping in the visitor's currency.
func CartSummary(svc cart.Service, currencies currencyResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "cart")
			return
		}
		summary, err := svc.Summary(r.Context(), cartActor(r), visitorSelection(r, currencies, logg))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
