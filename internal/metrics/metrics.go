package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/domain"
)

const namespace = "live_notifications"

// Metrics holds the Prometheus collectors for the engine.
type Metrics struct {
	Received        *prometheus.CounterVec
	Admitted        prometheus.Counter
	Duplicates      prometheus.Counter
	DedupEntries    prometheus.Gauge
	CueTiers        *prometheus.CounterVec
	CueFailures     prometheus.Counter
	IdentityChanges prometheus.Counter
	Resubscriptions prometheus.Counter
	HandleDuration  prometheus.Histogram
	RealtimeClients prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_total",
			Help:      "Push events classified, by notification kind.",
		}, []string{"kind"}),
		Admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admitted_total",
			Help:      "Notifications admitted by the deduplicator.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Notifications suppressed as duplicates.",
		}),
		DedupEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_entries",
			Help:      "Keys currently held by the deduplicator.",
		}),
		CueTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cue_tier_attempts_total",
			Help:      "Cue tier attempts by tier and result.",
		}, []string{"tier", "result"}),
		CueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cue_failures_total",
			Help:      "Cues where every tier failed.",
		}),
		IdentityChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_changes_total",
			Help:      "Viewer identity changes observed.",
		}),
		Resubscriptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resubscriptions_total",
			Help:      "Push subscriptions opened after an identity change.",
		}),
		HandleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handle_duration_seconds",
			Help:      "Time to classify, admit and dispatch one push event.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		RealtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_clients",
			Help:      "Connected realtime UI clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Received,
			m.Admitted,
			m.Duplicates,
			m.DedupEntries,
			m.CueTiers,
			m.CueFailures,
			m.IdentityChanges,
			m.Resubscriptions,
			m.HandleDuration,
			m.RealtimeClients,
		)
	}
	return m
}

// Dedup returns an observer for the deduplicator.
func (m *Metrics) Dedup() DedupObserver { return DedupObserver{m: m} }

// DedupObserver records deduplicator outcomes.
type DedupObserver struct{ m *Metrics }

func (o DedupObserver) Admitted(domain.DedupKey)  { o.m.Admitted.Inc() }
func (o DedupObserver) Duplicate(domain.DedupKey) { o.m.Duplicates.Inc() }
func (o DedupObserver) Size(n int)                { o.m.DedupEntries.Set(float64(n)) }

// TierAttempt records a cue tier outcome.
func (m *Metrics) TierAttempt(tier string, err error) {
	result := "delivered"
	switch {
	case errors.Is(err, adapters.ErrUnavailable):
		result = "unavailable"
	case err != nil:
		result = "failed"
	}
	m.CueTiers.WithLabelValues(tier, result).Inc()
}

// CueFailed records a cue where no tier delivered.
func (m *Metrics) CueFailed() { m.CueFailures.Inc() }

// IdentityChanged records a viewer change.
func (m *Metrics) IdentityChanged(_, _ domain.ViewerIdentity) { m.IdentityChanges.Inc() }

// Classified records a classified event.
func (m *Metrics) Classified(kind domain.Kind) { m.Received.WithLabelValues(string(kind)).Inc() }

// Resubscribed records a new push subscription.
func (m *Metrics) Resubscribed() { m.Resubscriptions.Inc() }

// Handled records how long one event took to handle.
func (m *Metrics) Handled(d time.Duration) { m.HandleDuration.Observe(d.Seconds()) }

// ClientsConnected sets the realtime client gauge.
func (m *Metrics) ClientsConnected(n int) { m.RealtimeClients.Set(float64(n)) }
