// Package metrics exposes recognition counters in Prometheus format.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Frame loop counters
	FramesRead      atomic.Uint64
	FramesPublished atomic.Uint64
	Classifications atomic.Uint64
	SignsDetected   atomic.Uint64

	// Streams
	StreamsStarted atomic.Uint64
	StreamsFailed  atomic.Uint64
	Detecting      atomic.Uint64 // 0 = paused, 1 = detecting

	// MJPEG viewers
	ActiveViewers atomic.Int64

	// Translation
	TranslationFailures atomic.Uint64

	stageErrors        *prometheus.CounterVec
	translationSeconds prometheus.Histogram
	recognizeSeconds   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signlens_stage_errors_total",
			Help: "Frame loop errors by stage",
		}, []string{"stage"}),
		translationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signlens_translation_duration_seconds",
			Help:    "Latency of translator calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		recognizeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signlens_recognize_duration_seconds",
			Help:    "Latency of whole-file recognition",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.stageErrors,
		m.translationSeconds,
		m.recognizeSeconds,
	)
	m.registerGauges()

	return m
}

func (m *Metrics) registerGauges() {
	gauge := func(name, help string, fn func() float64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
	}

	gauge("signlens_frames_read_total", "Total frames read from video sources",
		func() float64 { return float64(m.FramesRead.Load()) })
	gauge("signlens_frames_published_total", "Total annotated frames published to viewers",
		func() float64 { return float64(m.FramesPublished.Load()) })
	gauge("signlens_classifications_total", "Total classifier invocations",
		func() float64 { return float64(m.Classifications.Load()) })
	gauge("signlens_signs_detected_total", "Total signs appended to a sentence",
		func() float64 { return float64(m.SignsDetected.Load()) })
	gauge("signlens_streams_started_total", "Total video streams opened",
		func() float64 { return float64(m.StreamsStarted.Load()) })
	gauge("signlens_streams_failed_total", "Total video streams ended by an error",
		func() float64 { return float64(m.StreamsFailed.Load()) })
	gauge("signlens_detecting", "Detection active (0=paused, 1=detecting)",
		func() float64 { return float64(m.Detecting.Load()) })
	gauge("signlens_active_viewers", "Connected MJPEG viewers",
		func() float64 { return float64(m.ActiveViewers.Load()) })
	gauge("signlens_translation_failures_total", "Translator calls replaced by fallback output",
		func() float64 { return float64(m.TranslationFailures.Load()) })
}

func (m *Metrics) FrameRead() {
	if m != nil {
		m.FramesRead.Add(1)
	}
}

func (m *Metrics) FramePublished() {
	if m != nil {
		m.FramesPublished.Add(1)
	}
}

func (m *Metrics) Classified() {
	if m != nil {
		m.Classifications.Add(1)
	}
}

func (m *Metrics) SignDetected() {
	if m != nil {
		m.SignsDetected.Add(1)
	}
}

func (m *Metrics) StreamStarted() {
	if m != nil {
		m.StreamsStarted.Add(1)
	}
}

func (m *Metrics) StreamFailed() {
	if m != nil {
		m.StreamsFailed.Add(1)
	}
}

// SetDetecting records whether detection is on.
func (m *Metrics) SetDetecting(on bool) {
	if m == nil {
		return
	}
	var v uint64
	if on {
		v = 1
	}
	m.Detecting.Store(v)
}

// ViewerJoined and ViewerLeft track MJPEG clients.
func (m *Metrics) ViewerJoined() {
	if m != nil {
		m.ActiveViewers.Add(1)
	}
}

func (m *Metrics) ViewerLeft() {
	if m != nil {
		m.ActiveViewers.Add(-1)
	}
}

// StageError counts one frame loop error.
func (m *Metrics) StageError(stage string) {
	if m != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveTranslation records one translator call.
func (m *Metrics) ObserveTranslation(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.translationSeconds.Observe(d.Seconds())
}

// TranslationFailed counts a call answered by the fallback.
func (m *Metrics) TranslationFailed() {
	if m != nil {
		m.TranslationFailures.Add(1)
	}
}

// ObserveRecognition records one whole-file recognition.
func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m != nil {
		m.recognizeSeconds.Observe(d.Seconds())
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
