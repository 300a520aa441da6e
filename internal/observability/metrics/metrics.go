package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConciergeMetrics exposes counters/histograms for the assistant pipeline.
type ConciergeMetrics struct {
	turnsTotal     *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
	llmTokensTotal *prometheus.CounterVec
	retrievalTotal *prometheus.CounterVec
	recommendTotal *prometheus.CounterVec
}

func NewConciergeMetrics(reg prometheus.Registerer) *ConciergeMetrics {
	m := &ConciergeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Conversation turns by resolved intent and outcome",
		}, []string{"intent", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of intent extraction calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"model", "status"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by intent extraction",
		}, []string{"model", "type"}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "retrieval",
			Name:      "total",
			Help:      "Catalog searches by ordering and result status",
		}, []string{"order", "status"}),
		recommendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "recommend",
			Name:      "tier_total",
			Help:      "Recommendation requests by the tier that served them",
		}, []string{"tier"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.llmLatency, m.llmTokensTotal, m.retrievalTotal, m.recommendTotal)
	return m
}

func (m *ConciergeMetrics) ObserveTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *ConciergeMetrics) ObserveLLM(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(model, status).Observe(seconds)
}

// ObserveTokens records usage; zero counts are skipped.
func (m *ConciergeMetrics) ObserveTokens(model string, input, output, total int32) {
	if m == nil {
		return
	}
	if input > 0 {
		m.llmTokensTotal.WithLabelValues(model, "input").Add(float64(input))
	}
	if output > 0 {
		m.llmTokensTotal.WithLabelValues(model, "output").Add(float64(output))
	}
	if total > 0 {
		m.llmTokensTotal.WithLabelValues(model, "total").Add(float64(total))
	}
}

func (m *ConciergeMetrics) ObserveRetrieval(order, status string) {
	if m == nil {
		return
	}
	m.retrievalTotal.WithLabelValues(order, status).Inc()
}

func (m *ConciergeMetrics) ObserveRecommendTier(tier string) {
	if m == nil {
		return
	}
	m.recommendTotal.WithLabelValues(tier).Inc()
}
