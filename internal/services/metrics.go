package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// ruleLookups counts rule lookups by the stage that answered
	// (exact, approximate, edit_distance) or "none" on a miss.
	ruleLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_rule_lookups_total",
			Help: "Business-rule lookups by matching strategy.",
		},
		[]string{"strategy"},
	)

	// llmRequests counts upstream model calls by provider and outcome.
	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_llm_requests_total",
			Help: "Upstream LLM requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_llm_request_duration_seconds",
			Help:    "Duration of upstream LLM requests in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider"},
	)

	// replyCache counts cache lookups: hit, miss, error.
	replyCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_reply_cache_total",
			Help: "Reply cache lookups by result.",
		},
		[]string{"result"},
	)

	// pipelineOutcomes counts finished pipeline runs by terminal status and
	// response source.
	pipelineOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_conversations_total",
			Help: "Processed conversations by status and source.",
		},
		[]string{"status", "source"},
	)

	// conversationsByStatus is refreshed by the pending sweeper.
	conversationsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_conversations_by_status",
			Help: "Stored conversations per lifecycle status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ruleLookups, llmRequests, llmLatency, replyCache, pipelineOutcomes, conversationsByStatus)
}
