package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	require.NoError(t, (<-ch).Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("products", "advanced", "llm", 0.4)
	m.ObserveTurn("products", "advanced", "llm", 0.2)
	m.ObserveLLMError("rate_limited")
	m.ObserveReload(7, nil)
	m.ObserveReload(8, errors.New("bad json"))
	m.ObserveRefresh("news", nil)
	m.ObserveGuard("input")
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, counterValue(t, m.turnsTotal.WithLabelValues("products", "advanced", "llm")))
	assert.Equal(t, 1.0, counterValue(t, m.llmErrorsTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 1.0, counterValue(t, m.reloadsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, counterValue(t, m.guardTotal.WithLabelValues("input")))
	assert.Equal(t, 7.0, counterValue(t, m.knowledgeVersion))
	assert.Equal(t, 3.0, counterValue(t, m.activeSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestChatMetricsDefaultRegistry(t *testing.T) {
	m := NewChatMetrics(nil)
	m.ObserveRefresh("market_data", errors.New("timeout"))
	prometheus.DefaultRegisterer.Unregister(m.turnsTotal)
	prometheus.DefaultRegisterer.Unregister(m.turnLatency)
	prometheus.DefaultRegisterer.Unregister(m.llmErrorsTotal)
	prometheus.DefaultRegisterer.Unregister(m.guardTotal)
	prometheus.DefaultRegisterer.Unregister(m.reloadsTotal)
	prometheus.DefaultRegisterer.Unregister(m.refreshTotal)
	prometheus.DefaultRegisterer.Unregister(m.activeSessions)
	prometheus.DefaultRegisterer.Unregister(m.knowledgeVersion)
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("greeting", "fallback", "canned", 0.1)
	m.ObserveLLMError("timeout")
	m.ObserveReload(1, nil)
	m.ObserveRefresh("news", nil)
	m.SetActiveSessions(1)
}
