package ledger

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted = "committed"
	outcomeNoop      = "noop"
)

type gatewayMetrics struct {
	intents      *prometheus.CounterVec
	applySeconds *prometheus.HistogramVec
	groupsLoaded prometheus.Gauge
	saveFailures prometheus.Counter
}

func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	factory := promauto.With(reg)
	return &gatewayMetrics{
		intents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "expensekey_intents_total",
			Help: "Intents handled by the mutation gateway, by intent and outcome",
		}, []string{"intent", "outcome"}),
		applySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "expensekey_intent_apply_seconds",
			Help:    "Time spent applying an intent inside the group worker",
			Buckets: prometheus.DefBuckets,
		}, []string{"intent"}),
		groupsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "expensekey_groups_loaded",
			Help: "Groups with a running worker",
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expensekey_group_save_failures_total",
			Help: "Commits rolled back because the group could not be saved",
		}),
	}
}

// outcomeOf turns an apply error into a metric label.
func outcomeOf(err error) string {
	if err == nil {
		return outcomeCommitted
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		return "error"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}
