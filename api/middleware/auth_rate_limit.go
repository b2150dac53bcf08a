package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-gateway/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

// auth bodies are small; anything larger is not worth buffering twice
const maxRateLimitedBody = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface per client address and per
// identity. The identity is the submitted email, or the visitor cookie when
// the body carries none (Google sign-in).
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int
	identityLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identityLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, identityLimit: identityLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identityLimit > 0)
}

// rateCounter is one bucket a request is charged against.
type rateCounter struct {
	scope string
	value string
	limit int
}

func (p AuthRateLimitPolicy) key(c rateCounter) string {
	return fmt.Sprintf("rl:%s:%s:%s", c.scope, p.name, c.value)
}

// AuthRateLimit rejects with 429 once any counter for the request exceeds its limit.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			counters, err := policy.counters(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}

			for _, c := range counters {
				count, err := store.IncrWithTTL(ctx, policy.key(c), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(c.limit) {
					policy.reject(ctx, logg, w, c, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// counters buffers the body when an identity limit applies so the handler
// still sees it.
func (p AuthRateLimitPolicy) counters(r *http.Request) ([]rateCounter, error) {
	var out []rateCounter
	if p.ipLimit > 0 {
		ip := ClientIPFromContext(r.Context())
		if ip == "" {
			ip = clientIP(r)
		}
		if ip != "" {
			out = append(out, rateCounter{scope: "ip", value: ip, limit: p.ipLimit})
		}
	}
	if p.identityLimit <= 0 {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitedBody))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if email := normalizeEmail(extractEmail(body)); email != "" {
		out = append(out, rateCounter{scope: "email", value: hashValue(email), limit: p.identityLimit})
	} else if visitorID := VisitorIDFromContext(r.Context()); visitorID != "" {
		out = append(out, rateCounter{scope: "visitor", value: visitorID, limit: p.identityLimit})
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c rateCounter, count int64) {
	retryAfter := int(p.window.Seconds())
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          c.scope,
			"policy":         p.name,
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": retryAfter,
		})
		logg.Warn(logCtx, "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
		WithDetails(map[string]any{"scope": c.scope, "retryAfterSeconds": retryAfter}))
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
