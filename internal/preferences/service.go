// Package preferences persists the visitor's cosmetic settings.
package preferences

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/go-playground/validator/v10"
)

// DefaultPrimaryColor is used until the visitor picks an accent colour.
const DefaultPrimaryColor = "#2563eb"

var validate = validator.New()

type Preferences struct {
	Theme        enums.Theme `json:"theme"`
	PrimaryColor string      `json:"primaryColor"`
}

// Update carries optional changes; nil fields are left alone.
type Update struct {
	Theme        *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	PrimaryColor *string `json:"primaryColor,omitempty" validate:"omitempty,hexcolor"`
}

type Service interface {
	Get(ctx context.Context, visitorID string) (Preferences, error)
	Set(ctx context.Context, visitorID string, update Update) (Preferences, error)
}

type service struct {
	store profile.Store
}

func NewService(store profile.Store) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "profile store required")
	}
	return &service{store: store}, nil
}

// Get returns stored preferences, substituting defaults for missing or invalid values.
func (s *service) Get(ctx context.Context, visitorID string) (Preferences, error) {
	prefs := Preferences{Theme: enums.ThemeLight, PrimaryColor: DefaultPrimaryColor}

	theme, err := s.read(ctx, visitorID, profile.KeyTheme)
	if err != nil {
		return Preferences{}, err
	}
	if parsed, err := enums.ParseTheme(theme); err == nil {
		prefs.Theme = parsed
	}

	color, err := s.read(ctx, visitorID, profile.KeyPrimaryColor)
	if err != nil {
		return Preferences{}, err
	}
	if color != "" && validate.Var(color, "hexcolor") == nil {
		prefs.PrimaryColor = color
	}
	return prefs, nil
}

func (s *service) Set(ctx context.Context, visitorID string, update Update) (Preferences, error) {
	if update.Theme != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*update.Theme))
		update.Theme = &trimmed
	}
	if update.PrimaryColor != nil {
		trimmed := strings.TrimSpace(*update.PrimaryColor)
		update.PrimaryColor = &trimmed
	}
	if err := validate.Struct(update); err != nil {
		return Preferences{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid preferences").
			WithDetails(map[string]any{"fields": fieldNames(err)})
	}

	values := map[string]string{}
	if update.Theme != nil {
		values[profile.KeyTheme] = *update.Theme
	}
	if update.PrimaryColor != nil {
		values[profile.KeyPrimaryColor] = *update.PrimaryColor
	}
	if len(values) > 0 {
		if err := s.store.Set(ctx, visitorID, values); err != nil {
			return Preferences{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist preferences")
		}
	}
	return s.Get(ctx, visitorID)
}

func (s *service) read(ctx context.Context, visitorID, key string) (string, error) {
	raw, err := s.store.Get(ctx, visitorID, key)
	if errors.Is(err, profile.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read preferences")
	}
	return raw, nil
}

func fieldNames(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}
