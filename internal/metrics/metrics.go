package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthost_research_total",
			Help: "Research requests by outcome",
		},
		[]string{"outcome"}, // ok|denied|failed|error
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthost_quota_denials_total",
			Help: "Quota gate denials by reason",
		},
		[]string{"reason"}, // invalid_key|limit_reached
	)

	NormalizerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthost_normalizer_total",
			Help: "Agent replies by the normalizer strategy that parsed them",
		},
		[]string{"strategy"}, // fenced_json|raw_json|sections|mock
	)

	AgentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agenthost_agent_request_seconds",
			Help:    "Latency of research agent calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"outcome"}, // ok|error
	)

	KeysRegisteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agenthost_keys_registered_total",
			Help: "API keys registered by tier",
		},
		[]string{"tier"},
	)
)

var registerOnce sync.Once

// MustRegister registers all collectors once; later calls are no-ops so
// tests can build several servers in one process.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			ResearchTotal,
			QuotaDenialsTotal,
			NormalizerTotal,
			AgentDuration,
			KeysRegisteredTotal,
		)
	})
}
