package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts batch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	rules   *prometheus.CounterVec
	reverts *prometheus.CounterVec
	pairs   prometheus.Counter
}

// NewMetrics registers the migration counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rules: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulemigrator_rules_total",
			Help: "Legacy rules processed, by migration status.",
		}, []string{"status", "triage_action"}),
		reverts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rulemigrator_rewrite_reverts_total",
			Help: "Expression rewrites discarded after failed reparse validation.",
		}, []string{"transform"}),
		pairs: f.NewCounter(prometheus.CounterOpts{
			Name: "rulemigrator_suppression_pairs_total",
			Help: "Warning/critical pairs linked with cross-severity suppression.",
		}),
	}
}

func (m *Metrics) observeResult(status, triage string) {
	if m == nil {
		return
	}
	m.rules.WithLabelValues(status, triage).Inc()
}

func (m *Metrics) observeRevert(transform string) {
	if m == nil {
		return
	}
	m.reverts.WithLabelValues(transform).Inc()
}

func (m *Metrics) observePairs(n int) {
	if m == nil {
		return
	}
	m.pairs.Add(float64(n))
}
