package actuator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Executor runs a request to completion. *Chain implements it.
type Executor interface {
	Execute(ctx context.Context, req Request) Result
}

type lane int

const (
	laneDiscrete lane = iota
	laneVolume
	laneBrightness
	numLanes
)

func laneFor(op Op) lane {
	switch op {
	case OpSetVolume:
		return laneVolume
	case OpSetBrightness:
		return laneBrightness
	}
	return laneDiscrete
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Timeout bounds each backend call.
	Timeout time.Duration

	// OnResult receives every result on the worker goroutine. May be nil.
	OnResult func(Result)

	Logger *slog.Logger
}

// Dispatcher moves backend calls off the frame loop. Each kind of request
// (discrete command, volume, brightness) has a single pending slot; a newer
// request replaces an older one that has not started yet, so a slow backend
// costs stale updates rather than latency.
type Dispatcher struct {
	exec     Executor
	timeout  time.Duration
	onResult func(Result)
	logger   *slog.Logger

	mu      sync.Mutex
	pending [numLanes]*Request
	wake    chan struct{}

	submitted atomic.Uint64
	replaced  atomic.Uint64
}

// NewDispatcher creates a Dispatcher. Call Run to start the worker.
func NewDispatcher(exec Executor, cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dispatcher{
		exec:     exec,
		timeout:  timeout,
		onResult: cfg.OnResult,
		logger:   logger.With("component", "dispatcher"),
		wake:     make(chan struct{}, 1),
	}
}

// Submit queues req and returns immediately. It reports whether an older
// pending request of the same kind was dropped in its favour.
func (d *Dispatcher) Submit(req Request) bool {
	if req.At.IsZero() {
		req.At = time.Now()
	}
	d.submitted.Add(1)

	l := laneFor(req.Op)
	d.mu.Lock()
	dropped := d.pending[l] != nil
	d.pending[l] = &req
	d.mu.Unlock()

	if dropped {
		d.replaced.Add(1)
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return dropped
}

// Run processes requests until ctx is done. Requests still pending at
// shutdown are discarded.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		}

		for {
			req, ok := d.next()
			if !ok {
				break
			}
			d.execute(ctx, req)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// Pending reports how many requests are waiting.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.pending {
		if r != nil {
			n++
		}
	}
	return n
}

// Replaced reports how many requests were superseded before running.
func (d *Dispatcher) Replaced() uint64 {
	return d.replaced.Load()
}

// next pops the highest-priority pending request. Discrete commands go
// first.
func (d *Dispatcher) next() (Request, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for l := range d.pending {
		if r := d.pending[l]; r != nil {
			d.pending[l] = nil
			return *r, true
		}
	}
	return Request{}, false
}

func (d *Dispatcher) execute(ctx context.Context, req Request) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res := d.exec.Execute(callCtx, req)
	if !res.OK && !res.Exhausted {
		d.logger.Warn("command failed", "op", req.Op, "backend", res.Backend, "error", res.Err)
	} else if res.OK {
		d.logger.Debug("command applied", "op", req.Op, "value", req.Value, "backend", res.Backend, "took", res.Duration)
	}

	if d.onResult != nil {
		d.onResult(res)
	}
}
