package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics records counters/timers/gauges as Prometheus vectors,
// registering each metric name lazily on first use and caching the vector by
// metric name.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics constructs a Metrics recorder backed by the given
// registry. A nil registry is replaced with a new isolated
// prometheus.NewRegistry(); the default global registerer is not used.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the underlying Prometheus registry for scraping.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

func tagLabels(tags []string) (labels []string, values []string) {
	for i := 0; i < len(tags); i += 2 {
		k := tags[i]
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		labels = append(labels, k)
		values = append(values, v)
	}
	return labels, values
}

// IncCounter increments a counter metric, creating it on first use.
func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labels)
		m.registry.MustRegister(c)
		m.counters[name] = c
	}
	m.mu.Unlock()
	c.WithLabelValues(values...).Add(value)
}

// RecordTimer records a duration into a histogram, creating it on first use.
func (m *PrometheusMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	h, ok := m.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name}, labels)
		m.registry.MustRegister(h)
		m.histograms[name] = h
	}
	m.mu.Unlock()
	h.WithLabelValues(values...).Observe(duration.Seconds())
}

// RecordGauge records a gauge value, creating it on first use.
func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labels)
		m.registry.MustRegister(g)
		m.gauges[name] = g
	}
	m.mu.Unlock()
	g.WithLabelValues(values...).Set(value)
}
