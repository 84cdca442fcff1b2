// Package metrics holds the Prometheus collectors for the dispatch cycle,
// push delivery and streak updates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CycleRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vakit_dispatch_cycles_total",
		Help: "Dispatch cycle invocations by result (ok, failed).",
	}, []string{"result"})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vakit_dispatch_cycle_duration_seconds",
		Help:    "Wall time of one dispatch cycle.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	LocalitiesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vakit_dispatch_localities_skipped_total",
		Help: "Localities skipped because their prayer times could not be resolved.",
	})

	NotificationsFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vakit_notifications_fired_total",
		Help: "Reminders fired per (user, prayer event), by window type.",
	}, []string{"type"})

	NotificationsDeduped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vakit_notifications_deduped_total",
		Help: "Matched prayer events skipped because their dedupe key was already claimed.",
	})

	RecordFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vakit_notification_record_failures_total",
		Help: "Inbox records that could not be written.",
	})

	PushDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vakit_push_deliveries_total",
		Help: "Push delivery attempts by outcome (delivered, transient, permanent).",
	}, []string{"outcome"})

	StreakUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vakit_streak_updates_total",
		Help: "Streak advances by transition (first, continued, freeze_used, reset).",
	}, []string{"transition"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		CycleRuns, CycleDuration, LocalitiesSkipped, NotificationsFired,
		NotificationsDeduped, RecordFailures, PushDeliveries, StreakUpdates,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the exposition format for the collectors in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
