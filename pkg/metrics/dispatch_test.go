package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDispatchMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)

	m.IncEmitted("manufacturer:incoming", "new-order")
	m.IncEmitted("manufacturer:incoming", "new-order")
	m.IncFetchFailure()
	m.SetHeadRevision(17)
	m.SetSubscribers(3)

	emitted := sample(t, reg, "tradeflow_notifications_emitted_total", map[string]string{"class": "manufacturer:incoming", "kind": "new-order"})
	assert.Equal(t, 2.0, emitted.GetCounter().GetValue())
	assert.Equal(t, 1.0, sample(t, reg, "tradeflow_dispatch_fetch_failures_total", nil).GetCounter().GetValue())
	assert.Equal(t, 17.0, sample(t, reg, "tradeflow_dispatch_head_revision", nil).GetGauge().GetValue())
	assert.Equal(t, 3.0, sample(t, reg, "tradeflow_dispatch_subscribers", nil).GetGauge().GetValue())
}

func TestDispatchMetricsNilSafe(t *testing.T) {
	var m *DispatchMetrics
	m.IncEmitted("a", "b")
	m.IncFetchFailure()
	m.SetHeadRevision(1)
	m.SetSubscribers(1)

	unregistered := NewDispatchMetrics(nil)
	unregistered.IncEmitted("a", "b")
}
