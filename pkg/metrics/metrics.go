// Package metrics exposes the server's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "azure_devops_mcp"

	SubsystemSystem   = "system"
	SubsystemAuth     = "auth"
	SubsystemDispatch = "dispatch"
	SubsystemTools    = "tools"

	VersionLabel = "version"
)

// Dispatch outcomes.
const (
	OutcomeEstablish = "establish"
	OutcomeContinue  = "continue"
	OutcomeReject    = "reject"
)

// Metrics holds every collector registered by the server. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge
	info      prometheus.Gauge

	tokenAcquisitions *prometheus.CounterVec
	tokenDuration     *prometheus.HistogramVec

	dispatchTotal  *prometheus.CounterVec
	activeSessions prometheus.GaugeFunc

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry. sessions reports the
// number of live sessions at scrape time; it may be nil.
func New(version string, sessions func() int) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the server started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.info = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Subsystem:   SubsystemSystem,
		Name:        "info",
		Help:        "The server version.",
		ConstLabels: prometheus.Labels{VersionLabel: version},
	})
	m.info.Set(1)
	m.registry.MustRegister(m.info)

	m.tokenAcquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAuth,
		Name:      "token_acquisitions_total",
		Help:      "Bearer token acquisitions by authentication mode and outcome.",
	}, []string{"mode", "outcome"})
	m.registry.MustRegister(m.tokenAcquisitions)

	m.tokenDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemAuth,
		Name:      "token_acquisition_seconds",
		Help:      "Time to acquire a bearer token.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
	}, []string{"mode"})
	m.registry.MustRegister(m.tokenDuration)

	m.dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemDispatch,
		Name:      "requests_total",
		Help:      "Inbound MCP requests by HTTP method and dispatch outcome.",
	}, []string{"method", "outcome"})
	m.registry.MustRegister(m.dispatchTotal)

	if sessions != nil {
		m.activeSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemDispatch,
			Name:      "active_sessions",
			Help:      "Live MCP sessions.",
		}, func() float64 { return float64(sessions()) })
		m.registry.MustRegister(m.activeSessions)
	}

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemTools,
		Name:      "calls_total",
		Help:      "Tool calls by tool name and result.",
	}, []string{"tool", "result"})
	m.registry.MustRegister(m.toolCalls)

	m.toolDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemTools,
		Name:      "call_seconds",
		Help:      "Time to execute a tool call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
	m.registry.MustRegister(m.toolDuration)

	return m
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTokenAcquisition records one bearer token acquisition.
func (m *Metrics) ObserveTokenAcquisition(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tokenAcquisitions.WithLabelValues(mode, outcome).Inc()
	m.tokenDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveDispatch records how one inbound request was routed.
func (m *Metrics) ObserveDispatch(method, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveToolCall records one tool call.
func (m *Metrics) ObserveToolCall(tool string, isError bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if isError {
		result = "error"
	}
	m.toolCalls.WithLabelValues(tool, result).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}
