package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Polling metrics
	ReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_reads_total",
			Help: "Total number of register read attempts",
		},
		[]string{"bank", "status"}, // status: ok, error
	)

	ReadRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powertag_read_retries_total",
			Help: "Total number of register read retries",
		},
	)

	ReadsAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_reads_abandoned_total",
			Help: "Queries abandoned after exhausting the retry budget",
		},
		[]string{"bank"},
	)

	TransportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_transport_errors_total",
			Help: "Transport failures by error kind",
		},
		[]string{"kind"},
	)

	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_decode_errors_total",
			Help: "Register payloads that failed to decode",
		},
		[]string{"measurement"},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powertag_cycle_duration_seconds",
			Help:    "Duration of one polling cycle per bank",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"bank"},
	)

	ReadingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powertag_readings_published_total",
			Help: "Readings published into the shared state store",
		},
	)

	// Alerting metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_alerts_fired_total",
			Help: "Alerts emitted by the alert engine",
		},
		[]string{"measurement", "direction"},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powertag_alerts_suppressed_total",
			Help: "Breaches suppressed by the cooldown window",
		},
	)

	NotifyErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powertag_notify_errors_total",
			Help: "Failed webhook notification attempts",
		},
	)

	// Recorder metrics
	RecorderWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powertag_recorder_writes_total",
			Help: "Readings persisted by the recorder",
		},
		[]string{"sink", "status"},
	)

	RecorderQueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "powertag_recorder_queue_drops_total",
			Help: "Readings dropped because the recorder queue was full",
		},
	)
)
