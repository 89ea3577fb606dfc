// Package promadapters provides a Prometheus adapter for the lending observability interfaces.
package promadapters

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/library-lending-core-go/lending"
)

// MetricsCollector implements lending.MetricsCollector on top of a Prometheus registerer.
// It maps the lending metrics interface to Prometheus collectors:
//   - RecordDuration -> HistogramVec (observed in seconds)
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// Collectors are created on demand, keyed by metric name. Prometheus fixes the
// label names of a vec at creation time, so every observation of one metric
// must carry the same label keys; the first observation wins.
type MetricsCollector struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a Prometheus metrics collector registering its
// collectors with the given registerer. Pass prometheus.DefaultRegisterer for
// the stock setup.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes a duration in seconds on the metric's histogram.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.getOrCreateHistogram(metricName, labelKeys(labels))
	if histogram == nil {
		return
	}

	observer, err := histogram.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	observer.Observe(duration.Seconds())
}

// IncrementCounter adds one to the metric's counter.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.getOrCreateCounter(metricName, labelKeys(labels))
	if counter == nil {
		return
	}

	child, err := counter.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	child.Inc()
}

// RecordValue sets the metric's gauge to the given value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	gauge := m.getOrCreateGauge(metricName, labelKeys(labels))
	if gauge == nil {
		return
	}

	child, err := gauge.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}

	child.Set(value)
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func (m *MetricsCollector) getOrCreateHistogram(name string, keys []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Lending operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, keys)

	if err := m.registerer.Register(histogram); err != nil {
		return nil
	}

	m.histograms[name] = histogram
	return histogram
}

func (m *MetricsCollector) getOrCreateCounter(name string, keys []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Lending operation counter",
	}, keys)

	if err := m.registerer.Register(counter); err != nil {
		return nil
	}

	m.counters[name] = counter
	return counter
}

func (m *MetricsCollector) getOrCreateGauge(name string, keys []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Lending current value",
	}, keys)

	if err := m.registerer.Register(gauge); err != nil {
		return nil
	}

	m.gauges[name] = gauge
	return gauge
}

// Ensure MetricsCollector implements lending.MetricsCollector.
var _ lending.MetricsCollector = (*MetricsCollector)(nil)
