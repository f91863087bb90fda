// Package pipeline composes the classifier, the debouncer and the smoothers
// into the per-frame step: one hand (or none) in, the active label, the
// smoothed levels and at most one fired command out.
package pipeline

import (
	"log/slog"
	"math"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/debounce"
	"github.com/Kazeku-06/gesture-media-control/internal/detector"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/smoothing"
)

// ContinuousCommand asks for an absolute level on the current target.
type ContinuousCommand struct {
	Target Target  `json:"target"`
	Value  float64 `json:"value"`
}

// Result is the outcome of one frame.
type Result struct {
	Label         gesture.Label      `json:"label"`
	Volume        float64            `json:"volume"`
	Brightness    float64            `json:"brightness"`
	Target        Target             `json:"target"`
	Fired         *debounce.Command  `json:"fired,omitempty"`
	Continuous    *ContinuousCommand `json:"continuous,omitempty"`
	PinchDistance float64            `json:"pinch_distance"`
	Features      gesture.Features   `json:"features"`
	// Classified is false for frames the sampler skipped.
	Classified bool      `json:"classified"`
	Timestamp  time.Time `json:"timestamp"`
}

// Options carries the collaborators that are not parameters.
type Options struct {
	Logger *slog.Logger
}

// Pipeline runs on the frame loop goroutine only; it is not safe for
// concurrent use.
type Pipeline struct {
	params     Params
	logger     *slog.Logger
	classifier *gesture.Classifier
	debouncer  *debounce.Debouncer
	smoothers  map[Target]*smoothing.Smoother
	target     Target

	last     gesture.Label
	features gesture.Features

	sentAt    time.Time
	sentValue float64
	sent      bool
}

// New validates params and builds the components.
func New(params Params, opts Options) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d, err := debounce.New(params.Debounce())
	if err != nil {
		return nil, err
	}
	smoothers := make(map[Target]*smoothing.Smoother, 2)
	for _, t := range []Target{TargetVolume, TargetBrightness} {
		s, err := smoothing.New(params.Alpha, params.HoldTimeout)
		if err != nil {
			return nil, err
		}
		smoothers[t] = s
	}

	return &Pipeline{
		params:     params,
		logger:     logger.With("component", "pipeline"),
		classifier: gesture.NewClassifier(params.Thresholds()),
		debouncer:  d,
		smoothers:  smoothers,
		target:     params.Target,
		last:       gesture.NoHand,
	}, nil
}

// Params returns the parameters the pipeline was built with.
func (p *Pipeline) Params() Params {
	return p.params
}

// Process classifies one frame. hand is nil when nothing was detected.
func (p *Pipeline) Process(hand *detector.Hand, now time.Time) Result {
	label, f := p.classifier.Explain(hand)
	p.features = f
	prev := p.last
	if label != prev {
		p.logger.Debug("label changed", "from", prev, "to", label, "fingers", f.Fingers.String(), "pinch", f.Pinch)
	}
	p.last = label

	res := p.step(now)
	res.Classified = true

	switch {
	case label == gesture.PinchVolume:
		s := p.smoothers[p.target]
		v := s.Update(smoothing.PinchToLevel(f.Pinch, p.params.VolumeNear, p.params.VolumeFar), now)
		p.fill(&res)
		res.Continuous = p.throttle(v, now)
	case prev == gesture.PinchVolume:
		res.Continuous = p.flush(now)
	}
	return res
}

// Hold advances time for a frame that was not classified. The previous
// label is reused as-is for the debouncer, so dwell and cooldown still run
// on wall-clock time. A held pinch does not count as a new sample for the
// smoother.
func (p *Pipeline) Hold(now time.Time) Result {
	return p.step(now)
}

func (p *Pipeline) step(now time.Time) Result {
	res := Result{Label: p.last, Timestamp: now, Features: p.features, PinchDistance: p.features.Pinch}
	if cmd, ok := p.debouncer.Update(p.last, now); ok {
		p.logger.Info("gesture confirmed", "label", p.last, "command", cmd)
		res.Fired = &cmd
	}
	p.fill(&res)
	return res
}

func (p *Pipeline) fill(res *Result) {
	res.Volume = p.smoothers[TargetVolume].Value()
	res.Brightness = p.smoothers[TargetBrightness].Value()
	res.Target = p.target
}

// throttle limits continuous updates to one per interval and drops changes
// smaller than the minimum delta.
func (p *Pipeline) throttle(v float64, now time.Time) *ContinuousCommand {
	if p.sent {
		if now.Sub(p.sentAt) < p.params.UpdateInterval {
			return nil
		}
		if math.Abs(v-p.sentValue) < p.params.MinDelta {
			return nil
		}
	}
	p.sent = true
	p.sentAt = now
	p.sentValue = v
	return &ContinuousCommand{Target: p.target, Value: v}
}

// flush sends the level the pinch ended on when the throttle held it back.
func (p *Pipeline) flush(now time.Time) *ContinuousCommand {
	v := p.smoothers[p.target].Value()
	if !p.sent || v == p.sentValue {
		return nil
	}
	p.sentAt = now
	p.sentValue = v
	return &ContinuousCommand{Target: p.target, Value: v}
}

// Target returns what the pinch currently controls.
func (p *Pipeline) Target() Target {
	return p.target
}

// SetContinuousTarget switches the pinch between volume and brightness.
// Each target keeps its own smoothed level.
func (p *Pipeline) SetContinuousTarget(t Target) error {
	if _, err := ParseTarget(string(t)); err != nil {
		return err
	}
	if t != p.target {
		p.logger.Info("continuous target changed", "from", p.target, "to", t)
		p.target = t
		p.sent = false
	}
	return nil
}

// SetLevel seeds the smoother of t, typically with a level restored from
// storage.
func (p *Pipeline) SetLevel(t Target, v float64) {
	if s, ok := p.smoothers[t]; ok {
		s.Set(v)
	}
}

// Level returns the smoothed level of t and whether it has ever been set.
func (p *Pipeline) Level(t Target) (float64, bool) {
	s, ok := p.smoothers[t]
	if !ok {
		return 0, false
	}
	return s.Value(), s.Seeded()
}

// Parked reports whether the pinch control for the current target has had
// no sample for longer than the hold timeout.
func (p *Pipeline) Parked(now time.Time) bool {
	return p.smoothers[p.target].Parked(now)
}

// State reports the debouncer slot for label at now.
func (p *Pipeline) State(label gesture.Label, now time.Time) debounce.SlotState {
	return p.debouncer.State(label, now)
}

// Reset drops the current label, the hold in progress and every cooldown.
// Smoothed levels are kept.
func (p *Pipeline) Reset() {
	p.debouncer.Reset()
	p.last = gesture.NoHand
	p.features = gesture.Features{}
	p.sent = false
	p.logger.Info("state reset")
}
