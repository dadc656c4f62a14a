// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_requests_total",
			Help: "Total number of chat requests by response path",
		},
		[]string{"path"}, // simple, general, personalized, no_profile, panic
	)

	SecurityViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_security_events_total",
			Help: "Total number of recorded security events",
		},
		[]string{"event_type"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_llm_call_duration_seconds",
			Help: "Duration of LLM provider calls in seconds",
		},
		[]string{"purpose"}, // router, general, personalized, plan
	)

	LLMCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_call_failures_total",
			Help: "Total number of failed LLM provider calls",
		},
		[]string{"purpose", "error_code"},
	)

	PlansGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_plans_generated_total",
			Help: "Total number of plans generated by outcome",
		},
		[]string{"outcome"}, // ok, fallback, security_violation
	)

	ProfileMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_profile_merges_total",
			Help: "Total number of confidence-gated profile merges",
		},
		[]string{"result"}, // ok, error
	)
)
