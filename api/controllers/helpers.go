package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/api/responses"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

type currencyResolver interface {
	Resolve(ctx context.Context, visitorID, clientIP string) (currency.Selection, error)
}

// visitorSelection resolves the display currency, falling back to the
// default currency when the profile store is unavailable.
func visitorSelection(r *http.Request, resolver currencyResolver, logg *logger.Logger) currency.Selection {
	ctx := r.Context()
	if resolver != nil {
		sel, err := resolver.Resolve(ctx, middleware.VisitorIDFromContext(ctx), middleware.ClientIPFromContext(ctx))
		if err == nil {
			return sel
		}
		if logg != nil {
			logg.Error(ctx, "currency.resolve_failed", err)
		}
	}
	info, _ := currency.Lookup(currency.DefaultDetectedCurrency)
	return currency.Selection{Info: info, Source: currency.SourceDefault}
}

func cartActor(r *http.Request) cart.Actor {
	ctx := r.Context()
	return cart.ActorFrom(middleware.VisitorIDFromContext(ctx), middleware.SessionFromContext(ctx))
}

func requireVisitor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	visitorID := middleware.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "visitor context missing"))
		return "", false
	}
	return visitorID, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
