package enums

import "fmt"

// Theme is the persisted storefront colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// IsValid reports whether the theme is recognized.
func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}

// ParseTheme converts raw input into a Theme.
func ParseTheme(value string) (Theme, error) {
	theme := Theme(value)
	if !theme.IsValid() {
		return "", fmt.Errorf("invalid theme %q", value)
	}
	return theme, nil
}
