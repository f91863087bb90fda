package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kazeku-06/gesture-media-control/internal/actuator"
	"github.com/Kazeku-06/gesture-media-control/internal/detector"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
	"github.com/Kazeku-06/gesture-media-control/internal/store"
)

// Run opens the camera and drives the frame loop, the dispatcher and the
// actuator status watcher until ctx is done.
//
// Frame handling:
//  1. Read at the idle rate until the motion detector sees movement, then
//     at the active rate until the scene has been still for the idle timeout.
//  2. Idle frames and frames the sampler skips are held: the previous label
//     is kept and only time advances.
//  3. Everything else goes through detection and classification.
//  4. Fired commands and throttled level changes go to the dispatcher.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer a.running.Store(false)

	if err := a.cfg.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.cfg.Camera.Close(); err != nil {
			a.logger.Warn("closing camera", "error", err)
		}
	}()

	a.SyncLevels(ctx)

	a.mu.Lock()
	fps := a.cadence.FPS()
	a.mu.Unlock()
	a.cfg.Camera.SetFPS(fps)
	a.logger.Info("frame loop started", "fps", fps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.dispatcher.Run(ctx)
	})
	if a.status != nil {
		g.Go(func() error {
			a.watchStatus(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return a.loop(ctx, fps)
	})

	err := g.Wait()
	a.logger.Info("frame loop stopped")
	return err
}

func (a *App) loop(ctx context.Context, fps int) error {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if fps, changed := a.tick(a.now()); changed {
			ticker.Reset(time.Second / time.Duration(fps))
			a.cfg.Camera.SetFPS(fps)
		}
	}
}

// tick handles one frame. It reports the read rate and whether it changed.
func (a *App) tick(now time.Time) (fps int, changed bool) {
	if !a.Enabled() {
		return 0, false
	}

	frame, err := a.cfg.Camera.ReadFrame()
	if err != nil {
		a.countRead(err)
		return 0, false
	}
	defer frame.Close()
	a.countRead(nil)

	moved := true
	if a.cfg.Motion != nil {
		moved, _ = a.cfg.Motion.Detect(frame)
	}

	a.mu.Lock()
	fps, changed = a.cadence.Observe(moved, now)
	active := a.cadence.Active()
	classify := active && a.sampler.ShouldProcess()
	a.mu.Unlock()

	if changed {
		a.logger.Info("cadence changed", "active", active, "fps", fps)
	}

	var (
		hands   []detector.Hand
		started time.Time
	)
	if classify {
		started = time.Now()
		hands, err = a.cfg.Detector.Detect(frame)
		if err != nil {
			a.logger.Warn("hand detection failed", "error", err)
			if a.cfg.Metrics != nil {
				a.cfg.Metrics.DetectErrors.Add(1)
			}
			classify = false
		}
	}

	a.mu.Lock()
	var res pipeline.Result
	if classify {
		res = a.pipe.Process(detector.Primary(hands), now)
		cost := time.Since(started)
		a.sampler.Observe(cost)
		if m := a.cfg.Metrics; m != nil {
			m.FramesClassified.Add(1)
			m.ObserveProcess(cost)
		}
	} else {
		res = a.pipe.Hold(now)
		if m := a.cfg.Metrics; m != nil {
			if active {
				m.FramesHeld.Add(1)
			} else {
				m.FramesIdle.Add(1)
			}
		}
	}
	snap := a.record(res, active, fps)
	a.mu.Unlock()

	a.dispatch(res)
	a.publish(snap)
	return fps, changed
}

// countRead logs the first read error of a run of them and the recovery.
func (a *App) countRead(err error) {
	if err != nil {
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.ReadErrors.Add(1)
		}
		if !a.readFailed {
			a.logger.Warn("reading frame", "error", err)
			a.readFailed = true
		}
		return
	}
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.FramesRead.Add(1)
	}
	if a.readFailed {
		a.logger.Info("camera reads recovered")
		a.readFailed = false
	}
}

// record folds res into the snapshot. Called with a.mu held.
func (a *App) record(res pipeline.Result, active bool, fps int) Snapshot {
	s := &a.snap
	s.Active = active
	s.FPS = fps
	s.Label = res.Label
	s.Volume = res.Volume
	s.Brightness = res.Brightness
	s.Target = res.Target
	s.Parked = a.pipe.Parked(res.Timestamp)
	s.PinchDistance = res.PinchDistance
	s.Features = res.Features
	s.Fired = ""
	if res.Fired != nil {
		s.Fired = *res.Fired
		s.LastCommand = *res.Fired
		s.LastCommandAt = res.Timestamp
	}
	s.Sampler = a.sampler.Stats()
	s.UpdatedAt = res.Timestamp

	if m := a.cfg.Metrics; m != nil {
		m.SetSampler(s.Sampler.Stride, s.Sampler.AvgCost)
	}
	return *s
}

func (a *App) dispatch(res pipeline.Result) {
	if res.Fired != nil {
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.ObserveFired(string(res.Label))
		}
		if op, ok := actuator.OpFor(*res.Fired); ok {
			a.dispatcher.Submit(actuator.Request{Op: op, Gesture: string(res.Label), At: res.Timestamp})
		}
	}

	if c := res.Continuous; c != nil {
		op := actuator.OpSetVolume
		if c.Target == pipeline.TargetBrightness {
			op = actuator.OpSetBrightness
		}
		a.dispatcher.Submit(actuator.Request{Op: op, Value: c.Value, Gesture: string(res.Label), At: res.Timestamp})
		if a.cfg.Metrics != nil {
			a.cfg.Metrics.SetLevel(string(c.Target), c.Value)
		}
	}
}

func (a *App) publish(snap Snapshot) {
	if len(a.cfg.Broadcasters) == 0 {
		return
	}
	snap.Enabled = a.Enabled()
	for _, b := range a.cfg.Broadcasters {
		b.Broadcast(snap)
	}
}

// handleResult runs on the dispatcher goroutine.
func (a *App) handleResult(res actuator.Result) {
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.ObserveResult(res)
	}
	// watchStatus has already reported the op once.
	if res.Exhausted {
		return
	}

	req := res.Request
	if !res.OK {
		a.logger.Warn("command failed", "op", req.Op, "backend", res.Backend, "error", res.Err)
	} else {
		a.logger.Debug("command done", "op", req.Op, "value", req.Value, "backend", res.Backend, "took", res.Duration)
	}

	// Level changes arrive many times a second; only discrete commands
	// go into the history.
	if a.cfg.Store == nil || req.Op.Continuous() {
		return
	}
	ev := &store.Event{
		Gesture:  req.Gesture,
		Op:       string(req.Op),
		Backend:  res.Backend,
		OK:       res.OK,
		Duration: res.Duration.Milliseconds(),
		At:       req.At,
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	if err := a.cfg.Store.Events().Record(ev); err != nil {
		a.logger.Warn("recording action", "op", req.Op, "error", err)
	}
}

// watchStatus reports ops that lost their last backend.
func (a *App) watchStatus(ctx context.Context) {
	events := a.status.Status()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.logger.Error("actuator exhausted", "op", ev.Op, "detail", ev.String())
			if a.cfg.Metrics != nil {
				a.cfg.Metrics.SetExhausted(ev.Op)
			}
			if a.cfg.Store != nil {
				rec := &store.Event{Op: string(ev.Op), Backend: ev.LastBackend, Error: ev.String(), At: ev.At}
				if err := a.cfg.Store.Events().Record(rec); err != nil {
					a.logger.Warn("recording exhaustion", "op", ev.Op, "error", err)
				}
			}
		}
	}
}
