package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source records how a selection was reached.
type Source string

const (
	SourceSaved    Source = "saved"
	SourceDetected Source = "detected"
	SourceDefault  Source = "default"
	SourceExplicit Source = "explicit"
)

const visitedFlag = "true"

type countryLookup interface {
	CountryCode(ctx context.Context, ip string) (string, error)
}

// Selection is a visitor's resolved display currency.
type Selection struct {
	Info
	Source          Source `json:"source"`
	DetectedCountry string `json:"detectedCountry,omitempty"`
}

// Convert converts a base-currency amount into the selected currency.
func (s Selection) Convert(amountInBase decimal.Decimal) decimal.Decimal {
	return Convert(amountInBase, s.Code)
}

// Format converts and formats a base-currency amount.
func (s Selection) Format(amountInBase decimal.Decimal) string {
	return Format(s.Convert(amountInBase), s.Code)
}

// Service resolves and changes visitor currency selections.
type Service interface {
	Resolve(ctx context.Context, visitorID, clientIP string) (Selection, error)
	Change(ctx context.Context, visitorID, code string) (Selection, bool, error)
}

type service struct {
	store  profile.Store
	geo    countryLookup
	logg   *logger.Logger
	base   enums.Currency
	flight singleflight.Group
}

// NewService builds the currency selection service. geo may be nil to disable detection.
func NewService(store profile.Store, geo countryLookup, base enums.Currency, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if _, ok := Lookup(base); !ok {
		return nil, fmt.Errorf("unsupported base currency %q", base)
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: store, geo: geo, logg: logg, base: base}, nil
}

// Resolve returns the saved selection, or runs one-time country detection on
// a first visit. Concurrent first-visit requests share a single lookup.
func (s *service) Resolve(ctx context.Context, visitorID, clientIP string) (Selection, error) {
	if visitorID == "" {
		return Selection{}, pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	if sel, ok, err := s.saved(ctx, visitorID); err != nil || ok {
		return sel, err
	}

	visited, err := s.get(ctx, visitorID, profile.KeyHasVisitedBefore)
	if err != nil {
		return Selection{}, err
	}
	if visited != "" {
		return s.defaultSelection(), nil
	}

	result, err, _ := s.flight.Do(visitorID, func() (any, error) {
		return s.detect(context.WithoutCancel(ctx), visitorID, clientIP)
	})
	if err != nil {
		return Selection{}, err
	}
	return result.(Selection), nil
}

func (s *service) detect(ctx context.Context, visitorID, clientIP string) (Selection, error) {
	// A flight that finished just before this one may already have persisted a choice.
	if sel, ok, err := s.saved(ctx, visitorID); err != nil || ok {
		return sel, err
	}

	if s.geo == nil {
		return s.markVisited(ctx, visitorID)
	}

	country, err := s.geo.CountryCode(ctx, clientIP)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "currency detection failed; using base currency")
		return s.markVisited(ctx, visitorID)
	}

	code := ForCountry(country)
	if err := s.store.Set(ctx, visitorID, map[string]string{
		profile.KeySelectedCurrency: code.String(),
		profile.KeyDetectedCountry:  country,
		profile.KeyHasVisitedBefore: visitedFlag,
	}); err != nil {
		return Selection{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist detected currency")
	}
	info, _ := Lookup(code)
	return Selection{Info: info, Source: SourceDetected, DetectedCountry: country}, nil
}

func (s *service) markVisited(ctx context.Context, visitorID string) (Selection, error) {
	if err := s.store.Set(ctx, visitorID, map[string]string{profile.KeyHasVisitedBefore: visitedFlag}); err != nil {
		return Selection{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist visited flag")
	}
	return s.defaultSelection(), nil
}

// Change persists an explicit choice. Invalid codes are logged and ignored:
// the current selection is returned with changed=false.
func (s *service) Change(ctx context.Context, visitorID, code string) (Selection, bool, error) {
	if visitorID == "" {
		return Selection{}, false, pkgerrors.New(pkgerrors.CodeValidation, "visitor id is required")
	}
	parsed, err := enums.ParseCurrency(code)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "currency", code), "ignoring invalid currency selection")
		current, curErr := s.current(ctx, visitorID)
		return current, false, curErr
	}

	if err := s.store.Set(ctx, visitorID, map[string]string{
		profile.KeySelectedCurrency: parsed.String(),
		profile.KeyHasVisitedBefore: visitedFlag,
	}); err != nil {
		return Selection{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist currency selection")
	}
	info, _ := Lookup(parsed)
	return Selection{Info: info, Source: SourceExplicit}, true, nil
}

func (s *service) current(ctx context.Context, visitorID string) (Selection, error) {
	if sel, ok, err := s.saved(ctx, visitorID); err != nil || ok {
		return sel, err
	}
	return s.defaultSelection(), nil
}

func (s *service) saved(ctx context.Context, visitorID string) (Selection, bool, error) {
	raw, err := s.get(ctx, visitorID, profile.KeySelectedCurrency)
	if err != nil || raw == "" {
		return Selection{}, false, err
	}
	code, err := enums.ParseCurrency(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "currency", raw), "stored currency is not supported; ignoring")
		return Selection{}, false, nil
	}
	info, _ := Lookup(code)
	country, err := s.get(ctx, visitorID, profile.KeyDetectedCountry)
	if err != nil {
		return Selection{}, false, err
	}
	return Selection{Info: info, Source: SourceSaved, DetectedCountry: country}, true, nil
}

func (s *service) get(ctx context.Context, visitorID, key string) (string, error) {
	raw, err := s.store.Get(ctx, visitorID, key)
	if errors.Is(err, profile.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read visitor "+key)
	}
	return strings.TrimSpace(raw), nil
}

func (s *service) defaultSelection() Selection {
	info, _ := Lookup(s.base)
	return Selection{Info: info, Source: SourceDefault}
}
