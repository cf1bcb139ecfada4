package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the assistant's turn loop and
// its supporting refresh jobs.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	llmErrorsTotal   *prometheus.CounterVec
	guardTotal       *prometheus.CounterVec
	reloadsTotal     *prometheus.CounterVec
	refreshTotal     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	knowledgeVersion prometheus.Gauge
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novatech",
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Total chat turns answered",
		}, []string{"intent", "route", "source"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "novatech",
			Subsystem: "assistant",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a chat turn from request to reply",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		llmErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novatech",
			Subsystem: "assistant",
			Name:      "llm_errors_total",
			Help:      "Model call failures by error class",
		}, []string{"kind"}),
		guardTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novatech",
			Subsystem: "assistant",
			Name:      "guard_blocks_total",
			Help:      "Messages or replies stopped by the prompt guard",
		}, []string{"stage"}),
		reloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novatech",
			Subsystem: "knowledge",
			Name:      "reloads_total",
			Help:      "Knowledge base reloads",
		}, []string{"status"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "novatech",
			Subsystem: "dynamic",
			Name:      "refresh_total",
			Help:      "External data refreshes by category",
		}, []string{"category", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "novatech",
			Subsystem: "assistant",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		}),
		knowledgeVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "novatech",
			Subsystem: "knowledge",
			Name:      "snapshot_version",
			Help:      "Version of the published knowledge snapshot",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.llmErrorsTotal, m.guardTotal, m.reloadsTotal, m.refreshTotal, m.activeSessions, m.knowledgeVersion)
	return m
}

func (m *ChatMetrics) ObserveTurn(intent, route, source string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, route, source).Inc()
	m.turnLatency.WithLabelValues(source).Observe(seconds)
}

func (m *ChatMetrics) ObserveLLMError(kind string) {
	if m == nil {
		return
	}
	m.llmErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveGuard counts a guard hit at stage "input" or "output".
func (m *ChatMetrics) ObserveGuard(stage string) {
	if m == nil {
		return
	}
	m.guardTotal.WithLabelValues(stage).Inc()
}

func (m *ChatMetrics) ObserveReload(version uint64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.reloadsTotal.WithLabelValues("ok").Inc()
	m.knowledgeVersion.Set(float64(version))
}

func (m *ChatMetrics) ObserveRefresh(category string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.refreshTotal.WithLabelValues(category, status).Inc()
}

func (m *ChatMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
