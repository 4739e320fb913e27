package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, r *Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.Prometheus().Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	return byName
}

func TestRegistry_AllMetricsRegistered(t *testing.T) {
	r := NewRegistry()
	r.ObserveCalculation("standard", "success", 0.002)
	r.IncFallback("standard")
	r.SetAnomalySeverity(0.3)
	r.IncFlagged()
	r.SetHistorySize(42)

	byName := gather(t, r)
	for _, name := range []string{
		"medianengine_calc_duration_seconds",
		"medianengine_fallbacks_total",
		"medianengine_anomaly_severity",
		"medianengine_flagged_total",
		"medianengine_history_size",
	} {
		assert.Contains(t, byName, name)
	}
}

func TestRegistry_CalcDurationLabels(t *testing.T) {
	r := NewRegistry()
	r.ObserveCalculation("statistical", "success", 0.0007)

	mf := gather(t, r)["medianengine_calc_duration_seconds"]
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)

	labels := map[string]string{}
	for _, lp := range mf.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "statistical", labels["strategy"])
	assert.Equal(t, "success", labels["result"])
	assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRegistry_FallbackCounterAccumulates(t *testing.T) {
	r := NewRegistry()
	r.IncFallback("standard")
	r.IncFallback("standard")
	r.IncFallback("statistical")

	mf := gather(t, r)["medianengine_fallbacks_total"]
	require.NotNil(t, mf)

	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts["standard"])
	assert.Equal(t, 1.0, counts["statistical"])
}

func TestRegistry_GaugesTrackLatestValue(t *testing.T) {
	r := NewRegistry()
	r.SetAnomalySeverity(0.9)
	r.SetAnomalySeverity(0.2)
	r.SetHistorySize(7)

	byName := gather(t, r)
	assert.Equal(t, 0.2, byName["medianengine_anomaly_severity"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 7.0, byName["medianengine_history_size"].GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_IsolatedFromDefaultRegistry(t *testing.T) {
	// Two registries must not collide, so tests and embedded uses can each
	// hold their own.
	a := NewRegistry()
	b := NewRegistry()
	a.IncFlagged()

	assert.Equal(t, 1.0, gather(t, a)["medianengine_flagged_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, 0.0, gather(t, b)["medianengine_flagged_total"].GetMetric()[0].GetCounter().GetValue())
}
