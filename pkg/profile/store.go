// Package profile persists per-visitor storefront state: the session, guest
// cart, currency choice, theme and capped diagnostic lists a browser profile
// would otherwise keep in local storage.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Persisted visitor keys.
const (
	KeyToken            = "token"
	KeyUser             = "user"
	KeyRefreshToken     = "refreshToken"
	KeyCart             = "cart"
	KeySelectedCurrency = "selectedCurrency"
	KeyHasVisitedBefore = "hasVisitedBefore"
	KeyDetectedCountry  = "detectedCountry"
	KeyTheme            = "theme"
	KeyPrimaryColor     = "primaryColor"
	KeyCartSnapshot     = "cartSnapshot"
)

// Capped visitor lists.
const (
	ListErrorLogs     = "error_logs"
	ListAppErrors     = "app_errors"
	ListNotifications = "notifications"
)

// ErrNotFound is returned when a visitor key has never been written.
var ErrNotFound = errors.New("profile key not found")

// Store is the persistence surface shared by every storefront service.
type Store interface {
	Get(ctx context.Context, visitorID, key string) (string, error)
	Set(ctx context.Context, visitorID string, values map[string]string) error
	Delete(ctx context.Context, visitorID string, keys ...string) error
	Append(ctx context.Context, visitorID, list string, limit int, entries ...string) error
	List(ctx context.Context, visitorID, list string) ([]string, error)
	ClearList(ctx context.Context, visitorID, list string) error
	// PopList returns every entry and empties the list in one step.
	PopList(ctx context.Context, visitorID, list string) ([]string, error)
}

// GetJSON decodes the JSON document stored at key into dest. It reports false
// when the key is absent.
func GetJSON(ctx context.Context, store Store, visitorID, key string, dest any) (bool, error) {
	raw, err := store.Get(ctx, visitorID, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return true, fmt.Errorf("decode profile key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, store Store, visitorID, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode profile key %s: %w", key, err)
	}
	return store.Set(ctx, visitorID, map[string]string{key: string(payload)})
}
