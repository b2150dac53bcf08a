package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records gateway state-machine activity.
type StorefrontMetrics struct {
	cartMutations   *prometheus.CounterVec
	staleRefetches  prometheus.Counter
	geoLookups      *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
	backendRequests *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation, mode and outcome.",
	}, []string{"operation", "mode", "outcome"})
	staleRefetches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_stale_refetches_total",
		Help: "Server cart refetches discarded because a newer refetch had already been applied.",
	})
	geoLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_geo_lookups_total",
		Help: "Visitor country lookups by outcome.",
	}, []string{"outcome"})
	forcedLogouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_forced_logouts_total",
		Help: "Sessions cleared after the backend rejected the bearer token.",
	})
	backendRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_backend_requests_total",
		Help: "Backend REST calls by endpoint and status class.",
	}, []string{"endpoint", "status"})
	reg.MustRegister(cartMutations, staleRefetches, geoLookups, forcedLogouts, backendRequests)
	return &StorefrontMetrics{
		cartMutations:   cartMutations,
		staleRefetches:  staleRefetches,
		geoLookups:      geoLookups,
		forcedLogouts:   forcedLogouts,
		backendRequests: backendRequests,
	}
}

// IncCartMutation counts a cart mutation.
func (m *StorefrontMetrics) IncCartMutation(operation, mode, outcome string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(operation), normalizeLabel(mode), normalizeLabel(outcome)).Inc()
}

// IncStaleRefetch counts a discarded refetch.
func (m *StorefrontMetrics) IncStaleRefetch() {
	if m == nil || m.staleRefetches == nil {
		return
	}
	m.staleRefetches.Inc()
}

// IncGeoLookup counts a geolocation attempt.
func (m *StorefrontMetrics) IncGeoLookup(outcome string) {
	if m == nil || m.geoLookups == nil {
		return
	}
	m.geoLookups.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncForcedLogout counts a session cleared by the unauthorized signal.
func (m *StorefrontMetrics) IncForcedLogout() {
	if m == nil || m.forcedLogouts == nil {
		return
	}
	m.forcedLogouts.Inc()
}

// IncBackendRequest counts a backend call.
func (m *StorefrontMetrics) IncBackendRequest(endpoint, status string) {
	if m == nil || m.backendRequests == nil {
		return
	}
	m.backendRequests.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
