// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoner_api_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100, 150, 200, 350, 400, 500, 600},
		},
		[]string{"model", "mode"},
	)

	TimeToFirstToken = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoner_api_time_to_first_token_seconds",
			Help:    "Time to first streamed chunk in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 15, 20, 25, 30, 40, 50, 75, 100, 150, 200, 350, 400, 500, 600},
		},
		[]string{"model"},
	)

	PromptTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_prompt_tokens_total",
			Help: "Total number of prompt tokens used",
		},
		[]string{"model"},
	)

	ReasoningTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_reasoning_tokens_total",
			Help: "Total number of completion tokens spent on the reasoning phase",
		},
		[]string{"model"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_completion_tokens_total",
			Help: "Total number of completion tokens across both phases",
		},
		[]string{"model"},
	)

	TotalTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_total_tokens_total",
			Help: "Total number of tokens used",
		},
		[]string{"model"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_request_count_total",
			Help: "Total number of completion requests processed",
		},
		[]string{"model", "mode", "status"},
	)

	AnswerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_answer_skipped_total",
			Help: "Completions that ended after the reasoning phase with no answer phase",
		},
		[]string{"model", "reason"},
	)

	MalformedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_malformed_events_total",
			Help: "Upstream stream events that failed to decode and were skipped",
		},
		[]string{"model"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_error_count",
			Help: "Error count",
		},
		[]string{"model", "mode", "from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoner_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
