package observability

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics instruments the tiered cache.
type CacheMetrics struct {
	Lookups            *prometheus.CounterVec
	FetchErrors        *prometheus.CounterVec
	Tier2WriteFailures *prometheus.CounterVec
	Tier2Available     prometheus.Gauge
	DegradationEvents  *prometheus.CounterVec
	EventsDropped      prometheus.Counter
}

// NewCacheMetrics builds the cache collectors and registers them on reg.
// A nil reg leaves them unregistered, which keeps tests isolated.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_cache_lookups_total",
				Help: "Cache lookups by namespace and the layer that answered",
			},
			[]string{"namespace", "layer"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_cache_origin_errors_total",
				Help: "Origin fetches that failed, by namespace",
			},
			[]string{"namespace"},
		),
		Tier2WriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_cache_tier2_write_failures_total",
				Help: "Failed background writes to the shared cache tier",
			},
			[]string{"namespace"},
		),
		Tier2Available: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "property_cache_tier2_available",
				Help: "1 while the shared cache tier is configured and its circuit is closed",
			},
		),
		DegradationEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_cache_degradation_events_total",
				Help: "Degradation events emitted by the cache orchestrator",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "property_cache_events_dropped_total",
				Help: "Degradation events dropped because no consumer drained the channel",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Lookups, m.FetchErrors, m.Tier2WriteFailures, m.Tier2Available, m.DegradationEvents, m.EventsDropped)
	}
	return m
}

// ProviderMetrics instruments upstream clients and normalization.
type ProviderMetrics struct {
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	SkippedRecords *prometheus.CounterVec
}

// NewProviderMetrics builds the provider collectors and registers them on reg when non-nil.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_provider_requests_total",
				Help: "Upstream provider requests by provider, operation and outcome",
			},
			[]string{"provider", "op", "outcome"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "property_provider_request_duration_seconds",
				Help:    "Upstream provider request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "op"},
		),
		SkippedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "property_normalizer_skipped_records_total",
				Help: "Raw records dropped during normalization",
			},
			[]string{"provider", "reason"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestLatency, m.SkippedRecords)
	}
	return m
}
