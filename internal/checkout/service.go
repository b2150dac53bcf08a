// Package checkout turns the signed-in visitor's cart into a backend order.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Input captures the visitor supplied checkout data.
type Input struct {
	ShippingAddress backend.ShippingAddress `json:"shippingAddress"`
	Notes           string                  `json:"notes" validate:"max=500"`
}

// Confirmation is returned once the backend accepted the order.
type Confirmation struct {
	Order       backend.Order `json:"order"`
	Draft       Draft         `json:"draft"`
	CartCleared bool          `json:"cartCleared"`
}

type cartService interface {
	Summary(ctx context.Context, actor cart.Actor, sel currency.Selection) (cart.Summary, error)
	Clear(ctx context.Context, actor cart.Actor) cart.Result
}

type orderBackend interface {
	CreateOrder(ctx context.Context, token string, order backend.OrderRequest) (backend.Order, error)
}

// Service executes checkout orchestration.
type Service interface {
	Preview(ctx context.Context, actor cart.Actor, sel currency.Selection) (Draft, error)
	Place(ctx context.Context, actor cart.Actor, sel currency.Selection, input Input) (Confirmation, error)
}

type service struct {
	cart    cartService
	backend orderBackend
	base    enums.Currency
	logg    *logger.Logger
}

// NewService builds the checkout service. base is the currency cart prices
// are quoted in and labels the submitted order.
func NewService(cartSvc cartService, be orderBackend, base enums.Currency, logg *logger.Logger) (Service, error) {
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if be == nil {
		return nil, fmt.Errorf("order backend required")
	}
	if base == "" {
		base = enums.BaseCurrency
	}
	if !base.IsValid() {
		return nil, fmt.Errorf("unsupported base currency %q", base)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{cart: cartSvc, backend: be, base: base, logg: logg}, nil
}

func (s *service) Preview(ctx context.Context, actor cart.Actor, sel currency.Selection) (Draft, error) {
	if actor.Token == "" {
		return Draft{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	summary, err := s.cart.Summary(ctx, actor, sel)
	if err != nil {
		return Draft{}, err
	}
	if summary.Stale {
		return Draft{}, pkgerrors.New(pkgerrors.CodeDependency, "cart could not be refreshed")
	}
	if len(summary.Lines) == 0 {
		return Draft{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return draftFrom(summary, sel), nil
}

func (s *service) Place(ctx context.Context, actor cart.Actor, sel currency.Selection, input Input) (Confirmation, error) {
	input = normalizeInput(input)
	if err := validate.Struct(input); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
		}
		return Confirmation{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout details").
			WithDetails(map[string]any{"fields": fields})
	}

	draft, err := s.Preview(ctx, actor, sel)
	if err != nil {
		return Confirmation{}, err
	}

	order, err := s.backend.CreateOrder(ctx, actor.Token, backend.OrderRequest{
		Items:           orderLines(draft),
		ShippingAddress: input.ShippingAddress,
		Subtotal:        draft.Subtotal.Base,
		ShippingCost:    draft.ShippingCost.Base,
		Total:           draft.Total.Base,
		Currency:        s.base.String(),
		Notes:           input.Notes,
	})
	if err != nil {
		return Confirmation{}, err
	}
	ctx = s.logg.WithField(ctx, "order_id", order.ID)
	s.logg.Info(ctx, "order placed")

	cleared := s.cart.Clear(ctx, actor)
	if !cleared.Success {
		s.logg.Warn(ctx, "cart not cleared after order: "+cleared.Error)
	}
	return Confirmation{Order: order, Draft: draft, CartCleared: cleared.Success}, nil
}

func normalizeInput(input Input) Input {
	addr := &input.ShippingAddress
	addr.FullName = strings.TrimSpace(addr.FullName)
	addr.Phone = strings.TrimSpace(addr.Phone)
	addr.Street = strings.TrimSpace(addr.Street)
	addr.City = strings.TrimSpace(addr.City)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	input.Notes = strings.TrimSpace(input.Notes)
	return input
}
