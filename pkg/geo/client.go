// Package geo resolves a visitor's country from their IP address using a
// primary lookup service and a single fallback.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-gateway/pkg/errors"
)

const (
	defaultTimeout        = 4 * time.Second
	responseBodyReadLimit = 64 << 10
)

// ErrNoCountry is returned when neither endpoint yields a country code.
var ErrNoCountry = errors.New("geolocation returned no country")

type lookupRecorder interface {
	IncGeoLookup(outcome string)
}

// Client looks up country codes.
type Client struct {
	httpClient  *http.Client
	primaryURL  string
	fallbackURL string
	recorder    lookupRecorder
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithRecorder(recorder lookupRecorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// NewClient builds a lookup client. Either URL may be empty to disable that endpoint.
func NewClient(primaryURL, fallbackURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		primaryURL:  strings.TrimRight(strings.TrimSpace(primaryURL), "/"),
		fallbackURL: strings.TrimRight(strings.TrimSpace(fallbackURL), "/"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// CountryCode returns the ISO 3166-1 alpha-2 code for ip, upper-cased. The
// fallback endpoint is tried once when the primary fails.
func (c *Client) CountryCode(ctx context.Context, ip string) (string, error) {
	target := lookupTarget(ip)

	var primaryErr error
	if c.primaryURL != "" {
		code, err := c.lookup(ctx, c.primaryURL+ipapiPath(target), decodeIPAPI)
		if err == nil {
			c.record("primary")
			return code, nil
		}
		primaryErr = err
	}

	if c.fallbackURL != "" {
		code, err := c.lookup(ctx, c.fallbackURL+ipAPIComPath(target), decodeIPAPICom)
		if err == nil {
			c.record("fallback")
			return code, nil
		}
		c.record("failed")
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, errors.Join(primaryErr, err), "geolocation lookup failed")
	}

	c.record("failed")
	if primaryErr == nil {
		primaryErr = errors.New("no geolocation endpoint configured")
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeDependency, primaryErr, "geolocation lookup failed")
}

type decodeFunc func([]byte) (string, error)

func (c *Client) lookup(ctx context.Context, endpoint string, decode decodeFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build geolocation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geolocation request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("geolocation status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return "", fmt.Errorf("read geolocation response: %w", err)
	}

	code, err := decode(body)
	if err != nil {
		return "", err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", ErrNoCountry
	}
	return code, nil
}

func (c *Client) record(outcome string) {
	if c.recorder != nil {
		c.recorder.IncGeoLookup(outcome)
	}
}

// lookupTarget returns the IP to look up, or "" when the address is not
// publicly routable and the service should resolve its caller instead.
func lookupTarget(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return ""
	}
	return addr.String()
}

func ipapiPath(ip string) string {
	if ip == "" {
		return "/json/"
	}
	return "/" + ip + "/json/"
}

func ipAPIComPath(ip string) string {
	if ip == "" {
		return "/json/"
	}
	return "/json/" + ip
}

func decodeIPAPI(body []byte) (string, error) {
	var payload struct {
		CountryCode string `json:"country_code"`
		Error       bool   `json:"error"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode ipapi response: %w", err)
	}
	if payload.Error {
		return "", fmt.Errorf("ipapi: %s", payload.Reason)
	}
	return payload.CountryCode, nil
}

func decodeIPAPICom(body []byte) (string, error) {
	var payload struct {
		Status      string `json:"status"`
		CountryCode string `json:"countryCode"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode ip-api response: %w", err)
	}
	if payload.Status != "" && payload.Status != "success" {
		return "", fmt.Errorf("ip-api: %s", payload.Message)
	}
	return payload.CountryCode, nil
}
