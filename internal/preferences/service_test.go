package preferences

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
)

func ptr(s string) *string { return &s }

func TestGetDefaults(t *testing.T) {
	svc, _ := NewService(profile.NewMemoryStore())
	prefs, err := svc.Get(context.Background(), "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.Theme != enums.ThemeLight || prefs.PrimaryColor != DefaultPrimaryColor {
		t.Fatalf("unexpected defaults %+v", prefs)
	}
}

func TestSetPartialUpdate(t *testing.T) {
	svc, _ := NewService(profile.NewMemoryStore())
	ctx := context.Background()

	prefs, err := svc.Set(ctx, "v1", Update{Theme: ptr(" Dark ")})
	if err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if prefs.Theme != enums.ThemeDark || prefs.PrimaryColor != DefaultPrimaryColor {
		t.Fatalf("unexpected prefs %+v", prefs)
	}

	prefs, err = svc.Set(ctx, "v1", Update{PrimaryColor: ptr("#ff6600")})
	if err != nil {
		t.Fatalf("set color: %v", err)
	}
	if prefs.Theme != enums.ThemeDark || prefs.PrimaryColor != "#ff6600" {
		t.Fatalf("theme should survive colour change %+v", prefs)
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	svc, _ := NewService(profile.NewMemoryStore())
	_, err := svc.Set(context.Background(), "v1", Update{Theme: ptr("sepia"), PrimaryColor: ptr("orange")})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetIgnoresCorruptStoredValues(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()
	_ = store.Set(ctx, "v1", map[string]string{profile.KeyTheme: "neon", profile.KeyPrimaryColor: "nope"})
	svc, _ := NewService(store)
	prefs, err := svc.Get(ctx, "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prefs.Theme != enums.ThemeLight || prefs.PrimaryColor != DefaultPrimaryColor {
		t.Fatalf("expected defaults for corrupt values, got %+v", prefs)
	}
}
