package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstream_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidstream_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstream_media_uploads_total",
			Help: "Media uploads by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	MediaUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidstream_media_upload_size_bytes",
			Help:    "Size of uploaded media files in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 10), // 64KB to ~16GB
		},
	)

	TogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidstream_toggles_total",
			Help: "Like and subscription toggles by kind and resulting state",
		},
		[]string{"kind", "state"},
	)

	LiveViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidstream_live_viewers",
			Help: "Open engagement websocket connections",
		},
	)
)

// ToggleState renders a toggle result as a metric label.
func ToggleState(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
