package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Session metrics
	ModeSwitchesTotal   *prometheus.CounterVec
	TenantSwitchesTotal *prometheus.CounterVec
	ActiveAdminSessions prometheus.Gauge
	SessionDuration     prometheus.Histogram

	// Permission metrics
	PermissionChecksTotal  *prometheus.CounterVec
	PermissionDenialsTotal *prometheus.CounterVec

	// Tenant cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheLoadsTotal  *prometheus.CounterVec

	// Audit metrics
	AuditAppendsTotal  *prometheus.CounterVec
	AuditBufferedTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ModeSwitchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_mode_switches_total",
				Help: "Total number of resident/admin mode switches",
			},
			[]string{"to"},
		),
		TenantSwitchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_tenant_switches_total",
				Help: "Total number of society switches",
			},
			[]string{"result"},
		),
		ActiveAdminSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "societycore_active_admin_sessions",
				Help: "Number of currently active admin sessions",
			},
		),
		SessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "societycore_admin_session_duration_seconds",
				Help:    "Duration of admin sessions at logout",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"result"},
		),
		PermissionDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_permission_denials_total",
				Help: "Total number of denied permission checks",
			},
			[]string{"resource", "action"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "societycore_tenant_cache_hits_total",
				Help: "Total number of tenant cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "societycore_tenant_cache_misses_total",
				Help: "Total number of tenant cache misses",
			},
		),
		CacheLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_tenant_cache_loads_total",
				Help: "Total number of tenant cache loads",
			},
			[]string{"result"},
		),
		AuditAppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "societycore_audit_appends_total",
				Help: "Total number of audit append attempts",
			},
			[]string{"result"},
		),
		AuditBufferedTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "societycore_audit_buffered_entries",
				Help: "Number of audit entries waiting in the in-memory buffer",
			},
		),
	}

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(
		m.ModeSwitchesTotal,
		m.TenantSwitchesTotal,
		m.ActiveAdminSessions,
		m.SessionDuration,
		m.PermissionChecksTotal,
		m.PermissionDenialsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheLoadsTotal,
		m.AuditAppendsTotal,
		m.AuditBufferedTotal,
	)

	return m
}
