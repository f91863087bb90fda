package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CamillaConfig configures the CamillaDSP backend.
type CamillaConfig struct {
	URL         string
	ReadTimeout time.Duration
	// MinDB and MaxDB are the fader range that level 0..100 maps onto.
	MinDB  float64
	MaxDB  float64
	Logger *slog.Logger
}

// DefaultCamillaConfig returns the stock CamillaDSP settings.
func DefaultCamillaConfig() CamillaConfig {
	return CamillaConfig{
		URL:         "ws://127.0.0.1:1234",
		ReadTimeout: time.Second,
		MinDB:       -60,
		MaxDB:       0,
	}
}

// CamillaBackend talks to CamillaDSP over its websocket API: volume on the
// main fader, mute and unmute.
type CamillaBackend struct {
	unsupported
	cfg    CamillaConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewCamillaBackend creates the backend. Nothing is dialled until Probe.
func NewCamillaBackend(cfg CamillaConfig) *CamillaBackend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	return &CamillaBackend{cfg: cfg, logger: logger.With("component", "camilladsp")}
}

func (b *CamillaBackend) Name() string { return "camilladsp" }

func (b *CamillaBackend) Supports(op Op) bool {
	return op == OpSetVolume || op == OpMute || op == OpUnmute
}

// Probe connects and asks for the processing state.
func (b *CamillaBackend) Probe(ctx context.Context) error {
	if _, err := url.Parse(b.cfg.URL); err != nil || b.cfg.URL == "" {
		return fmt.Errorf("camilladsp url %q: %w", b.cfg.URL, ErrUnavailable)
	}
	resp, err := b.sendAndRead(ctx, "GetState")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var state struct {
		GetState struct {
			Result string `json:"result"`
			Value  string `json:"value"`
		} `json:"GetState"`
	}
	if err := json.Unmarshal(resp, &state); err != nil {
		return fmt.Errorf("%w: parse GetState: %v", ErrUnavailable, err)
	}
	b.logger.Debug("GetState", "state", state.GetState.Value, "result", state.GetState.Result)
	return nil
}

// LevelToDB maps 0..100 linearly onto the configured fader range.
func (b *CamillaBackend) LevelToDB(level float64) float64 {
	return b.cfg.MinDB + level/100*(b.cfg.MaxDB-b.cfg.MinDB)
}

func (b *CamillaBackend) SetVolume(ctx context.Context, level float64) error {
	return b.command(ctx, "SetVolume", b.LevelToDB(level))
}

func (b *CamillaBackend) Mute(ctx context.Context) error {
	return b.command(ctx, "SetMute", true)
}

func (b *CamillaBackend) Unmute(ctx context.Context) error {
	return b.command(ctx, "SetMute", false)
}

// Close drops the connection.
func (b *CamillaBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

// command sends {name: arg} and checks the {"name": {"result": "Ok"}} reply.
func (b *CamillaBackend) command(ctx context.Context, name string, arg any) error {
	resp, err := b.sendAndRead(ctx, map[string]any{name: arg})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	var reply map[string]struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(resp, &reply); err != nil {
		return fmt.Errorf("%s: parse reply: %w", name, err)
	}
	r, ok := reply[name]
	if !ok {
		return fmt.Errorf("%s: unexpected reply %s", name, resp)
	}
	if r.Result != "Ok" {
		return fmt.Errorf("%s: camilladsp returned %q", name, r.Result)
	}
	b.logger.Debug(name, "arg", arg, "result", r.Result)
	return nil
}

func (b *CamillaBackend) connect(ctx context.Context) error {
	if b.conn != nil {
		return nil
	}
	d := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := d.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", b.cfg.URL, err)
	}
	b.conn = conn
	b.logger.Info("connected to CamillaDSP", "url", b.cfg.URL)
	return nil
}

// sendAndRead writes one JSON text frame and reads one reply. A broken
// connection is dropped so the next call redials.
func (b *CamillaBackend) sendAndRead(ctx context.Context, v any) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connect(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	deadline := time.Now().Add(b.cfg.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	b.conn.SetWriteDeadline(deadline)
	if err := b.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		b.drop()
		return nil, err
	}

	b.conn.SetReadDeadline(deadline)
	_, message, err := b.conn.ReadMessage()
	if err != nil {
		b.drop()
		return nil, err
	}
	b.conn.SetReadDeadline(time.Time{})
	b.conn.SetWriteDeadline(time.Time{})

	return message, nil
}

func (b *CamillaBackend) drop() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}
