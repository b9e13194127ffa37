package video

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timespy",
		Name:      "frames_processed_total",
		Help:      "Incoming frames sliced into the canvas bank.",
	})
	framesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timespy",
		Name:      "frames_dropped_total",
		Help:      "Incoming frames dropped because the previous frame was still processing.",
	})
	rowFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timespy",
		Name:      "row_write_failures_total",
		Help:      "Scanline writes that failed.",
	})
	renderTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timespy",
		Name:      "render_ticks_total",
		Help:      "Surfaces shown by the ping-pong renderer.",
	})
	sliceProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timespy",
		Name:      "slice_progress_ratio",
		Help:      "Fraction of canvas rows written for the current capture.",
	})
	exportSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timespy",
		Name:      "export_duration_seconds",
		Help:      "Time taken to encode an exported loop.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	})
)

func init() {
	prometheus.MustRegister(
		framesProcessed,
		framesDropped,
		rowFailures,
		renderTicks,
		sliceProgress,
		exportSeconds,
	)
}
