package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/profile"
)

// Visitor assigns every browser a stable visitor id cookie and places it on
// the request context. All per-visitor state is keyed by it.
func Visitor(cfg config.VisitorConfig, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = "sf_visitor"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			visitorID := ""
			if c, err := r.Cookie(name); err == nil {
				if parsed, perr := uuid.Parse(strings.TrimSpace(c.Value)); perr == nil {
					visitorID = parsed.String()
				}
			}
			if visitorID == "" {
				visitorID = uuid.NewString()
			}
			// refreshed on every response so the cookie outlives the profile TTL window
			cookie := &http.Cookie{
				Name:     name,
				Value:    visitorID,
				Path:     "/",
				Domain:   cfg.CookieDomain,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			}
			if cfg.ProfileTTL > 0 {
				cookie.Expires = time.Now().Add(cfg.ProfileTTL)
				cookie.MaxAge = int(cfg.ProfileTTL.Seconds())
			}
			http.SetCookie(w, cookie)

			ctx := profile.WithVisitorID(r.Context(), visitorID)
			ctx = context.WithValue(ctx, ctxClientIP, clientIP(r))
			if logg != nil {
				ctx = logg.WithVisitorID(ctx, visitorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientIP prefers the first forwarded hop; the gateway runs behind a proxy.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
