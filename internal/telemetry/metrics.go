// Package telemetry exports activity log health as Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/kv"
)

const namespace = "tally"

// StatsSource reports the current log size without counting read failures.
type StatsSource interface {
	ReadStats(ctx context.Context) (activity.LogStats, error)
}

// Metrics holds the activity log collectors.
type Metrics struct {
	registerer prometheus.Registerer
	failures   *prometheus.CounterVec
}

// New registers the failure counter on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		registerer: reg,
		failures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_failures_total",
			Help:      "Activity log operations that were degraded to an empty result or a dropped write.",
		}, []string{"op", "reason"}),
	}
}

// Observe counts a swallowed failure. It matches activity.Observer.
func (m *Metrics) Observe(op string, err error) {
	m.failures.WithLabelValues(op, Reason(err)).Inc()
}

// TrackLog exports entry and user counts read from src at scrape time.
func (m *Metrics) TrackLog(src StatsSource) {
	stats := func() activity.LogStats {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Failed reads export zero and are not counted as failures.
		current, _ := src.ReadStats(ctx)
		return current
	}
	factory := promauto.With(m.registerer)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_log_entries",
		Help:      "Entries currently kept in the activity log.",
	}, func() float64 { return float64(stats().Entries) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_log_users",
		Help:      "Distinct users with entries in the activity log.",
	}, func() float64 { return float64(stats().Users) })
}

// Reason classifies err for the reason label.
func Reason(err error) string {
	switch {
	case errors.Is(err, activity.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, activity.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, activity.ErrCorruptLog):
		return "corrupt"
	case errors.Is(err, activity.ErrRetriesExhausted), errors.Is(err, kv.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "storage"
	}
}
