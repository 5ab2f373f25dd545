package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Calculations partitioned by outcome: ok, unverified, blocked, invalid, failed
	calculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_calculations_total",
			Help: "Total number of price calculations by outcome",
		},
		[]string{"outcome"},
	)

	// Routed extraction fields partitioned by tier
	routedFieldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_routed_fields_total",
			Help: "Total number of extracted fields routed per tier",
		},
		[]string{"tier"},
	)

	// Lifecycle transitions of fix proposals
	pipelineTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_fix_proposal_transitions_total",
			Help: "Total number of fix proposal lifecycle transitions",
		},
		[]string{"from", "to", "trigger"},
	)

	// Rejected lifecycle requests partitioned by reason
	pipelineRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_fix_proposal_rejections_total",
			Help: "Total number of rejected fix proposal lifecycle requests",
		},
		[]string{"reason"},
	)

	analysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_analysis_runs_total",
			Help: "Total number of pattern analysis runs by result",
		},
		[]string{"result"},
	)
)

// ObserveCalculation counts one calculation outcome
func ObserveCalculation(outcome string) {
	calculationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRoutedField counts one routed field
func ObserveRoutedField(tier string) {
	routedFieldsTotal.WithLabelValues(tier).Inc()
}

// ObserveTransition counts one lifecycle transition
func ObserveTransition(from, to, trigger string) {
	pipelineTransitionsTotal.WithLabelValues(from, to, trigger).Inc()
}

// ObserveRejection counts one rejected lifecycle request
func ObserveRejection(reason string) {
	pipelineRejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveAnalysisRun counts one analysis run
func ObserveAnalysisRun(result string) {
	analysisRunsTotal.WithLabelValues(result).Inc()
}
