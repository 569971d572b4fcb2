package observability_test

import (
	"testing"
	"time"

	"github.com/aretw0/exposer/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	m.FieldRead("device", "count")
	m.FieldRead("device", "count")
	m.FieldWrite("device", "count", observability.OutcomeOK)
	m.FieldWrite("device", "count", observability.OutcomeInvalid)
	m.ModelWrite("device", observability.OutcomePartial)
	m.ObserveRequest("GET", "/device/count", "200", 5*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "exposer_field_reads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "one series per model/path")

	count, err = testutil.GatherAndCount(reg, "exposer_field_writes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome")

	count, err = testutil.GatherAndCount(reg, "exposer_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.FieldRead("a", "b")
		m.FieldWrite("a", "b", observability.OutcomeOK)
		m.ModelWrite("a", observability.OutcomeOK)
		m.ObserveRequest("GET", "/", "200", time.Second)
	})
}
