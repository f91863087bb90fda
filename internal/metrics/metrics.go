// Package metrics exposes gesturectl counters in Prometheus format on a
// private registry.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kazeku-06/gesture-media-control/internal/actuator"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Frame loop counters
	FramesRead       atomic.Uint64
	FramesIdle       atomic.Uint64
	FramesClassified atomic.Uint64
	FramesHeld       atomic.Uint64
	ReadErrors       atomic.Uint64
	DetectErrors     atomic.Uint64

	// Sampler state
	Stride        atomic.Uint64
	AvgCostMicros atomic.Uint64

	registry  *prometheus.Registry
	gestures  *prometheus.CounterVec
	commands  *prometheus.CounterVec
	failovers *prometheus.CounterVec
	exhausted *prometheus.GaugeVec
	levels    *prometheus.GaugeVec
	process   prometheus.Histogram
}

// New creates a Metrics with every collector registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gesture_confirmed_total",
			Help: "Gestures that passed the dwell and fired a command",
		}, []string{"label"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gesture_actuator_commands_total",
			Help: "Commands handed to the actuator chain, by outcome",
		}, []string{"op", "backend", "outcome"}),
		failovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gesture_actuator_failovers_total",
			Help: "Times an operation moved to its next backend",
		}, []string{"op", "from"}),
		exhausted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gesture_actuator_exhausted",
			Help: "1 when an operation has no working backend left",
		}, []string{"op"}),
		levels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gesture_level",
			Help: "Smoothed continuous level (0-100)",
		}, []string{"target"}),
		process: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gesture_frame_process_seconds",
			Help:    "Detection plus classification time per classified frame",
			Buckets: []float64{.005, .01, .02, .033, .05, .1, .2, .5},
		}),
	}

	m.registry.MustRegister(m.gestures, m.commands, m.failovers, m.exhausted, m.levels, m.process)
	m.registerCounters()
	return m
}

func (m *Metrics) registerCounters() {
	for _, c := range []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"gesture_frames_read_total", "Frames read from the camera", &m.FramesRead},
		{"gesture_frames_idle_total", "Frames skipped because nothing moved", &m.FramesIdle},
		{"gesture_frames_classified_total", "Frames run through detection and classification", &m.FramesClassified},
		{"gesture_frames_held_total", "Frames the sampler skipped", &m.FramesHeld},
		{"gesture_read_errors_total", "Camera read errors", &m.ReadErrors},
		{"gesture_detect_errors_total", "Landmark detector errors", &m.DetectErrors},
		{"gesture_sampler_stride", "Current sampler stride (1 = every frame)", &m.Stride},
		{"gesture_sampler_avg_cost_microseconds", "Rolling average processing cost", &m.AvgCostMicros},
	} {
		v := c.v
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: c.name, Help: c.help},
			func() float64 { return float64(v.Load()) },
		))
	}
}

// ObserveFired counts a confirmed gesture.
func (m *Metrics) ObserveFired(label string) {
	m.gestures.WithLabelValues(label).Inc()
}

// ObserveResult counts one actuator result.
func (m *Metrics) ObserveResult(res actuator.Result) {
	outcome := "ok"
	switch {
	case res.Exhausted:
		outcome = "exhausted"
	case !res.OK:
		outcome = "failed"
	}
	m.commands.WithLabelValues(string(res.Request.Op), res.Backend, outcome).Inc()
}

// ObserveFailover counts a backend being abandoned for op.
func (m *Metrics) ObserveFailover(op actuator.Op, from string) {
	m.failovers.WithLabelValues(string(op), from).Inc()
}

// SetExhausted marks op as having no backend left.
func (m *Metrics) SetExhausted(op actuator.Op) {
	m.exhausted.WithLabelValues(string(op)).Set(1)
}

// SetLevel records the smoothed level for target.
func (m *Metrics) SetLevel(target string, v float64) {
	m.levels.WithLabelValues(target).Set(v)
}

// ObserveProcess records the cost of one classified frame.
func (m *Metrics) ObserveProcess(d time.Duration) {
	m.process.Observe(d.Seconds())
}

// SetSampler records the sampler stride and average cost.
func (m *Metrics) SetSampler(stride int, avg time.Duration) {
	m.Stride.Store(uint64(stride))
	m.AvgCostMicros.Store(uint64(avg.Microseconds()))
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
