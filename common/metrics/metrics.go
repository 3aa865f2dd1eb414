package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cita_watcher"

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checks_total",
		Help:      "Portal check cycles by portal and outcome.",
	}, []string{"portal", "outcome"})

	checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "check_duration_seconds",
		Help:      "Duration of browser-driven portal checks.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 180},
	}, []string{"portal"})

	slotsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slots_found_total",
		Help:      "Slots extracted from portals before preference filtering.",
	}, []string{"portal"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Appointment notifications by result.",
	}, []string{"result"})

	activeWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_watchers",
		Help:      "Watchers with a running schedule.",
	})

	checksQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "checks_queued",
		Help:      "Checks waiting for a free browser page.",
	})

	pagesInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pages_in_use",
		Help:      "Checks currently driving a browser page.",
	})
)

// ObserveCheck records a finished check cycle. Skipped cycles carry no duration.
func ObserveCheck(portal, outcome string, d time.Duration) {
	checksTotal.WithLabelValues(portal, outcome).Inc()
	if d > 0 {
		checkDuration.WithLabelValues(portal).Observe(d.Seconds())
	}
}

func AddSlotsFound(portal string, n int) {
	if n > 0 {
		slotsFound.WithLabelValues(portal).Add(float64(n))
	}
}

func ObserveNotification(err error) {
	result := "delivered"
	if err != nil {
		result = "failed"
	}
	notificationsTotal.WithLabelValues(result).Inc()
}

func SetActiveWatchers(n int) {
	activeWatchers.Set(float64(n))
}

// SetCheckQueue mirrors the check pool: queued checks and checks running.
func SetCheckQueue(queued, running int64) {
	checksQueued.Set(float64(queued))
	pagesInUse.Set(float64(running))
}
