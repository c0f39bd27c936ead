package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all cutoff-service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Decision metrics
	CapacityChecksTotal   *prometheus.CounterVec
	DecisionDuration      *prometheus.HistogramVec
	CacheRequestsTotal    *prometheus.CounterVec
	WarehouseUtilization  *prometheus.GaugeVec
	CutoffMinutesLeft     *prometheus.GaugeVec
	RateLimitRejections   *prometheus.CounterVec
	DataSourceQueries     *prometheus.CounterVec
	DataSourceQueryTiming *prometheus.HistogramVec

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
	Subsystem   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
		Subsystem:   "cutoff",
	}
}

// New creates a new Metrics instance backed by a private registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CapacityChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "capacity_checks_total",
			Help:      "Total capacity checks by decision and priority",
		},
		[]string{"decision", "priority"},
	)

	m.DecisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "decision_duration_seconds",
			Help:      "End-to-end capacity check duration",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"cache"},
	)

	m.CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cache_requests_total",
			Help:      "Decision cache lookups by result",
		},
		[]string{"result"},
	)

	m.WarehouseUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "warehouse_utilization_ratio",
			Help:      "Projected warehouse utilization from the last decision",
		},
		[]string{"warehouse_id"},
	)

	m.CutoffMinutesLeft = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cutoff_minutes_remaining",
			Help:      "Minutes until the effective order cutoff",
		},
		[]string{"warehouse_id"},
	)

	m.RateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	m.DataSourceQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "data_source_queries_total",
			Help:      "Capacity and workload feed reads",
		},
		[]string{"query", "status"},
	)

	m.DataSourceQueryTiming = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "data_source_query_duration_seconds",
			Help:      "Capacity and workload feed read duration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		},
		[]string{"service", "topic", "event_type", "status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CapacityChecksTotal,
		m.DecisionDuration,
		m.CacheRequestsTotal,
		m.WarehouseUtilization,
		m.CutoffMinutesLeft,
		m.RateLimitRejections,
		m.DataSourceQueries,
		m.DataSourceQueryTiming,
		m.KafkaEventsPublished,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordCapacityCheck records one admission decision
func (m *Metrics) RecordCapacityCheck(approved bool, priority string, cacheHit bool, duration time.Duration) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.CapacityChecksTotal.WithLabelValues(decision, priority).Inc()
	m.DecisionDuration.WithLabelValues(cache).Observe(duration.Seconds())
}

// RecordCacheLookup records a decision cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequestsTotal.WithLabelValues("miss").Inc()
}

// SetWarehouseUtilization stores the latest utilization for a warehouse
func (m *Metrics) SetWarehouseUtilization(warehouseID string, utilization float64) {
	m.WarehouseUtilization.WithLabelValues(warehouseID).Set(utilization)
}

// SetCutoffMinutesRemaining stores minutes left until cutoff for a warehouse
func (m *Metrics) SetCutoffMinutesRemaining(warehouseID string, minutes float64) {
	m.CutoffMinutesLeft.WithLabelValues(warehouseID).Set(minutes)
}

// RecordRateLimitRejection counts a request denied by the limiter
func (m *Metrics) RecordRateLimitRejection(endpoint string) {
	m.RateLimitRejections.WithLabelValues(endpoint).Inc()
}

// RecordDataSourceQuery records a read against the capacity feed
func (m *Metrics) RecordDataSourceQuery(query string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.DataSourceQueries.WithLabelValues(query, status).Inc()
	m.DataSourceQueryTiming.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordKafkaPublish records a Kafka publish attempt
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, status).Inc()
}

// SetCircuitBreakerState records the state of a named breaker
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}
