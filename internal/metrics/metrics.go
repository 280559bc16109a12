package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for session resolution. All recording
// methods are nil-safe so components can run without metrics wired.
type Metrics struct {
	StageResolutions *prometheus.CounterVec // stage, outcome
	SyncChanges      prometheus.Counter
	ForcedLogouts    prometheus.Counter
	Refreshes        *prometheus.CounterVec // outcome
}

// New registers and returns session metrics collectors. A nil registerer
// falls back to the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		StageResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_session_stage_resolutions_total",
			Help: "Resolution outcomes per pipeline stage",
		}, []string{"stage", "outcome"}),
		SyncChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "mentor_session_sync_changes_total",
			Help: "Cookie-to-storage sync passes that reported a change",
		}),
		ForcedLogouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "mentor_session_forced_logouts_total",
			Help: "Forced logouts triggered by the cross-application logout stamp",
		}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mentor_session_credential_refreshes_total",
			Help: "Credential refresh attempts by outcome",
		}, []string{"outcome"}),
	}
}

// RecordStage counts one stage resolution outcome.
func (m *Metrics) RecordStage(stage, outcome string) {
	if m == nil {
		return
	}
	m.StageResolutions.WithLabelValues(stage, outcome).Inc()
}

// RecordSyncChange counts one sync pass that reported a change.
func (m *Metrics) RecordSyncChange() {
	if m == nil {
		return
	}
	m.SyncChanges.Inc()
}

// RecordForcedLogout counts one logout-stamp-triggered logout.
func (m *Metrics) RecordForcedLogout() {
	if m == nil {
		return
	}
	m.ForcedLogouts.Inc()
}

// RecordRefresh counts one credential refresh attempt.
func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}
