package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vid2webp_conversions_total",
		Help: "Total number of conversions processed, by status",
	}, []string{"status"})

	ConversionStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vid2webp_conversion_stage_duration_seconds",
		Help:    "Duration of conversion pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vid2webp_frames_decoded_total",
		Help: "Total number of source frames decoded across all conversions",
	})

	EncodeProbesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vid2webp_encode_probes_total",
		Help: "Total number of encode attempts, including size-search probes",
	})

	OutputBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vid2webp_output_bytes",
		Help:    "Size of successfully written WebP outputs",
		Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vid2webp_active_workers",
		Help: "Number of currently active workers processing conversions",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vid2webp_retry_total",
		Help: "Total number of conversion retries",
	}, []string{"attempt"})
)
