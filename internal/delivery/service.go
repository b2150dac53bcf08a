// Package delivery backs the courier scan pages.
package delivery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/storefront-gateway/internal/routeguard"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)

var scanRoles = []enums.Role{enums.RoleLivreur}

type deliveryBackend interface {
	GetDelivery(ctx context.Context, token, code string) (backend.Delivery, error)
	ConfirmDelivery(ctx context.Context, token, code string) (backend.Delivery, error)
}

type Service interface {
	Get(ctx context.Context, token string, role enums.Role, code string) (backend.Delivery, error)
	Confirm(ctx context.Context, token string, role enums.Role, code string) (backend.Delivery, error)
}

type service struct {
	backend deliveryBackend
}

func NewService(be deliveryBackend) (Service, error) {
	if be == nil {
		return nil, fmt.Errorf("delivery backend required")
	}
	return &service{backend: be}, nil
}

func (s *service) Get(ctx context.Context, token string, role enums.Role, code string) (backend.Delivery, error) {
	code, err := check(token, role, code)
	if err != nil {
		return backend.Delivery{}, err
	}
	return s.backend.GetDelivery(ctx, token, code)
}

func (s *service) Confirm(ctx context.Context, token string, role enums.Role, code string) (backend.Delivery, error) {
	code, err := check(token, role, code)
	if err != nil {
		return backend.Delivery{}, err
	}
	return s.backend.ConfirmDelivery(ctx, token, code)
}

func check(token string, role enums.Role, code string) (string, error) {
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !routeguard.RoleAllowed(role, scanRoles) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "delivery scan requires a courier account")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery code")
	}
	return code, nil
}
