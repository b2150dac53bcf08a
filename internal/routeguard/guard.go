// Package routeguard decides whether a storefront path may be rendered for the
// current session.
package routeguard

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
)

// Outcome is the guard verdict.
type Outcome string

const (
	Allow         Outcome = "allow"
	Loading       Outcome = "loading"
	RedirectLogin Outcome = "redirect_login"
	RedirectHome  Outcome = "redirect_home"
	Deny          Outcome = "deny"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Input is everything the guard looks at.
type Input struct {
	SessionLoading  bool       `json:"sessionLoading"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	Role            enums.Role `json:"role,omitempty"`
	Path            string     `json:"path"`
}

// Decision is the guard result. RedirectTo is set for both redirect outcomes;
// Reason is set for Deny.
type Decision struct {
	Outcome    Outcome `json:"outcome"`
	RedirectTo string  `json:"redirectTo,omitempty"`
	ReturnTo   string  `json:"returnTo,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Allowed reports whether the page may render.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

var authOnlyPaths = []string{"/login", "/register", "/forgot-password", "/reset-password"}

var protectedPaths = []string{"/checkout", "/profile", "/become-vendor"}

type rolePrefix struct {
	prefix  string
	allowed []enums.Role
	reason  string
}

// rolePrefixes gate sections by role. Admin passes every prefix.
var rolePrefixes = []rolePrefix{
	{prefix: "/admin", allowed: nil, reason: "This area is reserved for administrators."},
	{prefix: "/moderator", allowed: []enums.Role{enums.RoleModerator}, reason: "This area is reserved for moderators."},
	{prefix: "/vendor", allowed: []enums.Role{enums.RoleVendor}, reason: "This area is reserved for vendors. Apply to become a vendor to access it."},
	{prefix: "/livreur", allowed: []enums.Role{enums.RoleLivreur}, reason: "This area is reserved for delivery partners."},
	{prefix: "/delivery/scan", allowed: []enums.Role{enums.RoleLivreur}, reason: "Only delivery partners can scan deliveries."},
}

// Decide applies the guard rules in order: loading, login redirect, home
// redirect for auth-only pages, then role prefixes.
func Decide(in Input) Decision {
	if in.SessionLoading {
		return Decision{Outcome: Loading}
	}

	path := normalizePath(in.Path)

	if !in.IsAuthenticated {
		if requiresAuth(path) {
			return Decision{
				Outcome:    RedirectLogin,
				RedirectTo: LoginPath + "?returnTo=" + url.QueryEscape(path),
				ReturnTo:   path,
			}
		}
		return Decision{Outcome: Allow}
	}

	if matchesAny(path, authOnlyPaths) {
		return Decision{Outcome: RedirectHome, RedirectTo: HomePath}
	}

	if rule, ok := prefixFor(path); ok && !RoleAllowed(in.Role, rule.allowed) {
		return Decision{Outcome: Deny, Reason: rule.reason}
	}
	return Decision{Outcome: Allow}
}

// RoleAllowed reports whether role is admin or one of allowed.
func RoleAllowed(role enums.Role, allowed []enums.Role) bool {
	if role == enums.RoleAdmin {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

func requiresAuth(path string) bool {
	if matchesAny(path, protectedPaths) {
		return true
	}
	_, ok := prefixFor(path)
	return ok
}

func prefixFor(path string) (rolePrefix, bool) {
	for _, rule := range rolePrefixes {
		if hasSegmentPrefix(path, rule.prefix) {
			return rule, true
		}
	}
	return rolePrefix{}, false
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasSegmentPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// hasSegmentPrefix matches whole path segments so /vendors does not match /vendor.
func hasSegmentPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func normalizePath(raw string) string {
	path := strings.TrimSpace(raw)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToLower(path)
}
