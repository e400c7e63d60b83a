package tick

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridgo_tick_duration_seconds",
		Help:    "Wall time spent processing one tick.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	tickSlips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridgo_tick_slips_total",
		Help: "Ticks whose processing overran the configured interval.",
	})

	zoneErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridgo_zone_tick_errors_total",
		Help: "Zone pipelines that rolled back.",
	})

	activeZones = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridgo_active_zones",
		Help: "Zones in the active set of the most recent tick.",
	})
)

func observeTick(d time.Duration, errs int) {
	tickDuration.Observe(d.Seconds())
	if errs > 0 {
		zoneErrors.Add(float64(errs))
	}
}

func observeSlip() {
	tickSlips.Inc()
}

func observeActiveZones(n int) {
	activeZones.Set(float64(n))
}
