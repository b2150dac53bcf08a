package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-gateway/api/controllers"
	"github.com/angelmondragon/storefront-gateway/api/middleware"
	"github.com/angelmondragon/storefront-gateway/internal/admin"
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/catalog"
	"github.com/angelmondragon/storefront-gateway/internal/checkout"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/internal/delivery"
	"github.com/angelmondragon/storefront-gateway/internal/errorlog"
	"github.com/angelmondragon/storefront-gateway/internal/messages"
	"github.com/angelmondragon/storefront-gateway/internal/notifications"
	"github.com/angelmondragon/storefront-gateway/internal/preferences"
	"github.com/angelmondragon/storefront-gateway/internal/session"
	"github.com/angelmondragon/storefront-gateway/internal/vendor"
	"github.com/angelmondragon/storefront-gateway/pkg/config"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
	"github.com/angelmondragon/storefront-gateway/pkg/redis"
)

// Deps carries everything the router wires into handlers. Nil services
// answer with a 500 rather than panicking.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	Session       session.Service
	Cart          cart.Service
	Currency      currency.Service
	Preferences   preferences.Service
	Notifications notifications.Service
	ErrorLog      errorlog.Service
	Catalog       catalog.Service
	Messages      messages.Service
	Vendor        vendor.Service
	Delivery      delivery.Service
	Checkout      checkout.Service
	Admin         admin.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger
	dev := cfg.App.IsDev()

	var redisPinger controllers.Pinger
	var idempotencyStore redis.IdempotencyStore
	if d.Redis != nil {
		redisPinger = d.Redis
		idempotencyStore = d.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisPinger, logg))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	loginLimit := passthrough
	registerLimit := passthrough
	if d.Redis != nil {
		loginLimit = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"login",
			cfg.AuthRateLimit.LoginWindow,
			cfg.AuthRateLimit.LoginIPLimit,
			cfg.AuthRateLimit.LoginEmailLimit,
		), d.Redis, logg)
		registerLimit = middleware.AuthRateLimit(middleware.NewAuthRateLimitPolicy(
			"register",
			cfg.AuthRateLimit.RegisterWindow,
			cfg.AuthRateLimit.RegisterIPLimit,
			cfg.AuthRateLimit.RegisterEmailLimit,
		), d.Redis, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Visitor(cfg.Visitor, !dev, logg),
			middleware.Recoverer(logg, d.ErrorLog, dev),
			middleware.Session(d.Session, logg),
			middleware.Idempotency(idempotencyStore, logg),
		)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(logg))
			r.With(loginLimit).Post("/login", controllers.SessionLogin(d.Session, logg))
			r.With(registerLimit).Post("/register", controllers.SessionRegister(d.Session, logg))
			r.With(loginLimit).Post("/google", controllers.SessionGoogle(d.Session, logg))
			r.Post("/logout", controllers.SessionLogout(d.Session, logg))
			r.Post("/forgot-password", controllers.SessionForgotPassword(d.Session, logg))
			r.Post("/reset-password", controllers.SessionResetPassword(d.Session, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
			r.Get("/summary", controllers.CartSummary(d.Cart, d.Currency, logg))
			r.Post("/items", controllers.CartAddItem(d.Cart, logg))
			r.Patch("/items", controllers.CartUpdateItem(d.Cart, logg))
			r.Delete("/items", controllers.CartRemoveItem(d.Cart, logg))
		})

		r.Route("/currency", func(r chi.Router) {
			r.Get("/", controllers.CurrencyGet(d.Currency, logg))
			r.Put("/", controllers.CurrencyChange(d.Currency, logg))
			r.Get("/supported", controllers.CurrencyList())
			r.Get("/convert", controllers.CurrencyConvert(d.Currency, logg))
		})

		r.Get("/preferences", controllers.PreferencesGet(d.Preferences, logg))
		r.Put("/preferences", controllers.PreferencesUpdate(d.Preferences, logg))
		r.Post("/guard", controllers.GuardDecide(logg))
		r.Get("/notifications", controllers.NotificationsDrain(d.Notifications, logg))

		r.Route("/errors", func(r chi.Router) {
			r.Post("/", controllers.ErrorReport(d.ErrorLog, dev, logg))
			r.Get("/", controllers.ErrorList(d.ErrorLog, logg))
			r.Delete("/", controllers.ErrorClear(d.ErrorLog, logg))
		})
		r.Get("/network-error", controllers.NetworkErrorView(logg))

		r.Get("/products", controllers.ProductList(d.Catalog, d.Currency, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(d.Catalog, d.Currency, logg))
		r.Get("/categories", controllers.CategoryList(d.Catalog, logg))
		r.Get("/announcements/active", controllers.AnnouncementsActive(d.Catalog, logg))
		r.Get("/featured-products", controllers.FeaturedProducts(d.Catalog, d.Currency, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))

			r.Route("/messages", func(r chi.Router) {
				r.Get("/unread-count", controllers.MessagesUnreadCount(d.Messages, logg))
				r.Get("/my", controllers.MessagesList(d.Messages, logg))
				r.Post("/{messageId}/read", controllers.MessagesMarkRead(d.Messages, logg))
			})

			r.Post("/vendor-request", controllers.VendorRequest(d.Vendor, cfg.Uploads.MaxBytes(), logg))

			r.Get("/checkout", controllers.CheckoutPreview(d.Checkout, d.Currency, logg))
			r.Post("/checkout", controllers.Checkout(d.Checkout, d.Currency, logg))
		})

		r.Route("/delivery/scan/{deliveryCode}", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleLivreur))
			r.Get("/", controllers.DeliveryGet(d.Delivery, logg))
			r.Post("/confirm", controllers.DeliveryConfirm(d.Delivery, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/announcements", func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.RoleModerator))
				r.Get("/", controllers.AdminAnnouncementList(d.Admin, logg))
				r.Post("/", controllers.AdminAnnouncementCreate(d.Admin, logg))
				r.Put("/{announcementId}", controllers.AdminAnnouncementUpdate(d.Admin, logg))
				r.Delete("/{announcementId}", controllers.AdminAnnouncementDelete(d.Admin, logg))
			})
			r.Route("/featured-products", func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, enums.RoleAdmin))
				r.Get("/", controllers.AdminFeaturedList(d.Admin, logg))
				r.Post("/", controllers.AdminFeaturedCreate(d.Admin, logg))
				r.Put("/{featuredId}", controllers.AdminFeaturedUpdate(d.Admin, logg))
				r.Delete("/{featuredId}", controllers.AdminFeaturedDelete(d.Admin, logg))
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
