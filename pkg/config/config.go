package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Redis         RedisConfig
	Backend       BackendConfig
	Geo           GeoConfig
	Storefront    StorefrontConfig
	Visitor       VisitorConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	Uploads       UploadsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storefront.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint is configured. Without one the
// gateway keeps visitor profiles in process memory.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"15s"`
}

func (b BackendConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(b.BaseURL))
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", EnvBackendURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvBackendURL)
	}
	return nil
}

type GeoConfig struct {
	PrimaryURL  string        `envconfig:"STOREFRONT_GEO_PRIMARY_URL" default:"https://ipapi.co"`
	FallbackURL string        `envconfig:"STOREFRONT_GEO_FALLBACK_URL" default:"http://ip-api.com"`
	Timeout     time.Duration `envconfig:"STOREFRONT_GEO_TIMEOUT" default:"4s"`
}

type StorefrontConfig struct {
	BaseCurrency          string  `envconfig:"STOREFRONT_BASE_CURRENCY" default:"TND"`
	FreeShippingThreshold float64 `envconfig:"STOREFRONT_FREE_SHIPPING_THRESHOLD" default:"100"`
	ShippingFeePerVendor  float64 `envconfig:"STOREFRONT_SHIPPING_FEE_PER_VENDOR" default:"7"`
}

func (s StorefrontConfig) validate() error {
	if s.FreeShippingThreshold < 0 {
		return fmt.Errorf("%s must not be negative", EnvFreeShippingThreshold)
	}
	if s.ShippingFeePerVendor <= 0 {
		return fmt.Errorf("%s must be positive", EnvShippingFeePerVendor)
	}
	return nil
}

type VisitorConfig struct {
	CookieName   string        `envconfig:"STOREFRONT_VISITOR_COOKIE" default:"sf_visitor"`
	CookieDomain string        `envconfig:"STOREFRONT_VISITOR_COOKIE_DOMAIN"`
	ProfileTTL   time.Duration `envconfig:"STOREFRONT_VISITOR_PROFILE_TTL" default:"8760h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type UploadsConfig struct {
	MaxUploadMB int `envconfig:"STOREFRONT_MAX_UPLOAD_MB" default:"10"`
}

// MaxBytes returns the per-file upload cap in bytes.
func (u UploadsConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(u.MaxUploadMB) << 20
}
