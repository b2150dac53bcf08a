package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/api/validators"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type currencyChangeRequest struct {
	Code string `json:"code" validate:"required"`
}

type currencyChangeResponse struct {
	Selection currency.Selection `json:"selection"`
	Changed   bool               `json:"changed"`
}

type conversionResponse struct {
	Amount    string         `json:"amount"`
	Converted string         `json:"converted"`
	Formatted string         `json:"formatted"`
	Currency  enums.Currency `json:"currency"`
}

// CurrencyGet resolves the visitor's display currency, detecting it from
// the client IP on first visit.
func CurrencyGet(svc currency.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "currency")
			return
		}
		responses.WriteSuccess(w, visitorSelection(r, svc, logg))
	}
}

// CurrencyChange switches the display currency. Unknown codes leave the
// selection untouched and report changed=false.
func CurrencyChange(svc currency.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "currency")
			return
		}
		visitorID, ok := requireVisitor(w, r, logg)
		if !ok {
			return
		}
		var req currencyChangeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sel, changed, err := svc.Change(r.Context(), visitorID, req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, currencyChangeResponse{Selection: sel, Changed: changed})
	}
}

func CurrencyList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, currency.Currencies())
	}
}

// CurrencyConvert converts ?amount= (base currency) into ?to=, or into the
// visitor's currency when to is omitted.
func CurrencyConvert(svc currency.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := validators.ParseQueryDecimal(r, "amount")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if amount == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount is required"))
			return
		}

		code := visitorSelection(r, svc, logg).Code
		if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
			parsed, err := enums.ParseCurrency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported currency").
					WithDetails(map[string]any{"to": raw}))
				return
			}
			code = parsed
		}

		converted := currency.Convert(*amount, code)
		responses.WriteSuccess(w, conversionResponse{
			Amount:    amount.String(),
			Converted: converted.StringFixed(2),
			Formatted: currency.Format(converted, code),
			Currency:  code,
		})
	}
}
