package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                = "STOREFRONT_APP_ENV"
	EnvPort                  = "STOREFRONT_APP_PORT"
	EnvRedisURL              = "STOREFRONT_REDIS_URL"
	EnvBackendURL            = "STOREFRONT_BACKEND_URL"
	EnvBackendTimeout        = "STOREFRONT_BACKEND_TIMEOUT"
	EnvGeoPrimaryURL         = "STOREFRONT_GEO_PRIMARY_URL"
	EnvGeoFallbackURL        = "STOREFRONT_GEO_FALLBACK_URL"
	EnvBaseCurrency          = "STOREFRONT_BASE_CURRENCY"
	EnvFreeShippingThreshold = "STOREFRONT_FREE_SHIPPING_THRESHOLD"
	EnvShippingFeePerVendor  = "STOREFRONT_SHIPPING_FEE_PER_VENDOR"
	EnvCORSAllowedOrigins    = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)
