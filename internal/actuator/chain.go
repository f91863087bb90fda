package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChainConfig configures a Chain.
type ChainConfig struct {
	Logger *slog.Logger

	// ProbeTimeout bounds each backend probe. Zero leaves probes bounded
	// only by the context passed to NewChain.
	ProbeTimeout time.Duration

	// OnFailover is called, outside the lock, every time an op moves to
	// its next backend. May be nil.
	OnFailover func(op Op, from, to string, err error)
}

// Chain holds the usable backends in priority order and, per op, which of
// them is currently selected. Selection only ever moves forward: a backend
// that fails at runtime is never tried again for that op.
type Chain struct {
	logger     *slog.Logger
	onFailover func(op Op, from, to string, err error)

	mu         sync.Mutex
	usable     []Backend
	candidates map[Op][]Backend
	cursor     map[Op]int
	reported   map[Op]bool
	status     chan StatusEvent
}

// NewChain probes every backend in order and keeps the ones that report
// themselves usable. Ops no usable backend supports are exhausted from the
// start and reported on the status channel straight away.
func NewChain(ctx context.Context, backends []Backend, cfg ChainConfig) *Chain {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Chain{
		logger:     logger.With("component", "actuator"),
		onFailover: cfg.OnFailover,
		candidates: make(map[Op][]Backend, len(Ops)),
		cursor:     make(map[Op]int, len(Ops)),
		reported:   make(map[Op]bool, len(Ops)),
		status:     make(chan StatusEvent, len(Ops)),
	}

	for _, b := range backends {
		if err := probe(ctx, b, cfg.ProbeTimeout); err != nil {
			c.logger.Info("backend not usable", "backend", b.Name(), "error", err)
			continue
		}
		c.logger.Info("backend usable", "backend", b.Name())
		c.usable = append(c.usable, b)
	}

	now := time.Now()
	for _, op := range Ops {
		for _, b := range c.usable {
			if b.Supports(op) {
				c.candidates[op] = append(c.candidates[op], b)
			}
		}
		if len(c.candidates[op]) == 0 {
			c.logger.Warn("no backend for operation", "op", op)
			c.report(StatusEvent{Op: op, At: now})
		}
	}

	return c
}

func probe(ctx context.Context, b Backend, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return b.Probe(ctx)
}

// Execute runs one request on the selected backend for its op. A failure
// moves the op to the next backend for later calls; the failing request
// itself is not retried. Levels are clamped to [0, 100].
func (c *Chain) Execute(ctx context.Context, req Request) Result {
	if req.Op.Continuous() {
		req.Value = clampLevel(req.Value)
	}
	res := Result{Request: req}

	c.mu.Lock()
	b := c.selected(req.Op)
	c.mu.Unlock()

	if b == nil {
		res.Exhausted = true
		res.Err = ErrExhausted
		return res
	}
	res.Backend = b.Name()

	start := time.Now()
	err := call(ctx, b, req)
	res.Duration = time.Since(start)

	if err == nil {
		res.OK = true
		return res
	}
	res.Err = err

	// Shutdown is not the backend's fault.
	if errors.Is(ctx.Err(), context.Canceled) {
		return res
	}

	c.fail(req.Op, b, err)
	return res
}

// Level asks the selected backend of a continuous op for its current level.
// A failed read does not move the op to another backend.
func (c *Chain) Level(ctx context.Context, op Op) (float64, error) {
	c.mu.Lock()
	b := c.selected(op)
	c.mu.Unlock()

	if b == nil {
		return 0, ErrExhausted
	}
	r, ok := b.(LevelReader)
	if !ok {
		return 0, fmt.Errorf("%s: %w", b.Name(), ErrUnsupported)
	}
	v, err := r.Level(ctx, op)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return clampLevel(v), nil
}

// Status delivers one event per op that has run out of backends.
func (c *Chain) Status() <-chan StatusEvent {
	return c.status
}

// Selected returns the backend name currently serving each op; exhausted
// ops map to "".
func (c *Chain) Selected() map[Op]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Op]string, len(Ops))
	for _, op := range Ops {
		if b := c.selected(op); b != nil {
			out[op] = b.Name()
		} else {
			out[op] = ""
		}
	}
	return out
}

// Exhausted lists the ops that have become permanent no-ops.
func (c *Chain) Exhausted() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Op
	for _, op := range Ops {
		if c.selected(op) == nil {
			out = append(out, op)
		}
	}
	return out
}

// Backends returns the names of the backends that passed their probe.
func (c *Chain) Backends() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.usable))
	for i, b := range c.usable {
		names[i] = b.Name()
	}
	return names
}

func (c *Chain) selected(op Op) Backend {
	list := c.candidates[op]
	i := c.cursor[op]
	if i >= len(list) {
		return nil
	}
	return list[i]
}

func (c *Chain) fail(op Op, b Backend, err error) {
	c.mu.Lock()
	if c.selected(op) != b {
		// Someone else already moved past it.
		c.mu.Unlock()
		return
	}
	c.cursor[op]++
	next := c.selected(op)
	c.mu.Unlock()

	if next == nil {
		c.logger.Error("operation exhausted", "op", op, "backend", b.Name(), "error", err)
		c.report(StatusEvent{Op: op, LastBackend: b.Name(), Err: err, At: time.Now()})
		if c.onFailover != nil {
			c.onFailover(op, b.Name(), "", err)
		}
		return
	}

	c.logger.Warn("backend failed, falling back", "op", op, "from", b.Name(), "to", next.Name(), "error", err)
	if c.onFailover != nil {
		c.onFailover(op, b.Name(), next.Name(), err)
	}
}

// report sends ev at most once per op and never blocks.
func (c *Chain) report(ev StatusEvent) {
	c.mu.Lock()
	if c.reported[ev.Op] {
		c.mu.Unlock()
		return
	}
	c.reported[ev.Op] = true
	c.mu.Unlock()

	select {
	case c.status <- ev:
	default:
		c.logger.Warn("status channel full, dropping event", "op", ev.Op)
	}
}
