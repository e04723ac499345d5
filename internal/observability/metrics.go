package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	Uploads              *prometheus.CounterVec
	CaptureEvents        *prometheus.CounterVec
	TranscriptionSeconds prometheus.Histogram
	ChatSeconds          *prometheus.HistogramVec
	SynthesisBytes       prometheus.Counter
	PlaybackFrames       prometheus.Counter
	ProviderErrors       *prometheus.CounterVec
	EventClients         prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Uploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Device uploads by kind.",
		}, []string{"kind"}),
		CaptureEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_events_total",
			Help:      "Pending-capture slot transitions by event.",
		}, []string{"event"}),
		TranscriptionSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_seconds",
			Help:      "Wall time of speech-to-text calls in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		ChatSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_seconds",
			Help:      "Wall time of language-model calls in seconds by path.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"path"}),
		SynthesisBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_bytes_total",
			Help:      "Raw PCM bytes received from the synthesis provider.",
		}),
		PlaybackFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_frames_total",
			Help:      "Frames written to the audio output device.",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		EventClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Connected websocket event-feed clients.",
		}),
	}
}

func (m *Metrics) ObserveTranscription(d time.Duration) {
	m.TranscriptionSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveChat(path string, d time.Duration) {
	m.ChatSeconds.WithLabelValues(path).Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
