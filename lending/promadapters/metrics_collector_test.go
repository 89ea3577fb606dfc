package promadapters_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-core-go/lending/promadapters"
)

func Test_IncrementCounter_RegistersAndCounts(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("lending_borrow_total", map[string]string{"outcome": "success"})
	collector.IncrementCounter("lending_borrow_total", map[string]string{"outcome": "success"})
	collector.IncrementCounter("lending_borrow_total", map[string]string{"outcome": "denied"})

	// assert
	families, err := registry.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 1)
	assert.Equal(t, "lending_borrow_total", families[0].GetName())
	assert.Len(t, families[0].GetMetric(), 2, "one series per label value")
}

func Test_RecordDuration_ObservesSeconds(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.RecordDuration("lending_operation_duration", 250*time.Millisecond, map[string]string{"operation": "borrow_book"})

	// assert
	count := testutil.CollectAndCount(registry, "lending_operation_duration")
	assert.Equal(t, 1, count)
}

func Test_RecordValue_SetsGauge(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.RecordValue("lending_cache_entries", 42, map[string]string{"store": "local"})
	collector.RecordValue("lending_cache_entries", 7, map[string]string{"store": "local"})

	// assert: a gauge keeps only the latest value
	families, err := registry.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 1)
	assert.Equal(t, 7.0, families[0].GetMetric()[0].GetGauge().GetValue())
}

func Test_MetricsWithSameName_ReuseTheSameCollector(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("lending_return_total", map[string]string{"outcome": "success"})
	collector.IncrementCounter("lending_return_total", map[string]string{"outcome": "error"})

	// assert: no duplicate-registration failure, both series live in one family
	families, err := registry.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 1)
}
