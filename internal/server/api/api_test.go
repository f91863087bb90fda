package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kazeku-06/gesture-media-control/internal/app"
	"github.com/Kazeku-06/gesture-media-control/internal/gesture"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
	"github.com/Kazeku-06/gesture-media-control/internal/store"
)

type fakeController struct {
	snap    app.Snapshot
	resets  int
	saves   int
	saveErr error
}

func newFakeController() *fakeController {
	return &fakeController{snap: app.Snapshot{Enabled: true, Label: gesture.Peace, Target: pipeline.TargetVolume, Volume: 40}}
}

func (c *fakeController) Snapshot() app.Snapshot  { return c.snap }
func (c *fakeController) SetEnabled(enabled bool) { c.snap.Enabled = enabled }
func (c *fakeController) Reset()                  { c.resets++; c.snap.Label = gesture.NoHand }
func (c *fakeController) SaveSettings() error     { c.saves++; return c.saveErr }

func (c *fakeController) SetContinuousTarget(t pipeline.Target) error {
	if !t.Valid() {
		return errors.New("bad target")
	}
	c.snap.Target = t
	return nil
}

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusHandler(t *testing.T) {
	h := NewStatusHandler(newFakeController())

	rec := do(h, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status %d, content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["label"] != "peace" || got["volume"] != 40.0 || got["target"] != "volume" {
		t.Errorf("unexpected body %v", got)
	}

	if rec := do(h, http.MethodPost, "/api/status", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status %d", rec.Code)
	}
}

func TestResetHandler(t *testing.T) {
	c := newFakeController()
	h := NewResetHandler(c)

	if rec := do(h, http.MethodGet, "/api/reset", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status %d", rec.Code)
	}
	rec := do(h, http.MethodPost, "/api/reset", "")
	if rec.Code != http.StatusOK || c.resets != 1 {
		t.Fatalf("status %d, resets %d", rec.Code, c.resets)
	}
	var got app.Snapshot
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Label != gesture.NoHand {
		t.Errorf("response should reflect the reset, got %s", got.Label)
	}
}

func TestSettingsHandler(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		rec := do(NewSettingsHandler(newFakeController()), http.MethodGet, "/api/settings", "")
		var got settingsResponse
		json.NewDecoder(rec.Body).Decode(&got)
		if rec.Code != http.StatusOK || !got.Enabled || got.ContinuousTarget != pipeline.TargetVolume {
			t.Errorf("status %d body %+v", rec.Code, got)
		}
	})

	tests := []struct {
		name        string
		body        string
		wantCode    int
		wantEnabled bool
		wantTarget  pipeline.Target
		wantSaves   int
	}{
		{"disable", `{"enabled": false}`, http.StatusOK, false, pipeline.TargetVolume, 1},
		{"switch target", `{"continuous_target": "brightness"}`, http.StatusOK, true, pipeline.TargetBrightness, 1},
		{"both", `{"enabled": false, "continuous_target": "brightness"}`, http.StatusOK, false, pipeline.TargetBrightness, 1},
		{"empty update still saves", `{}`, http.StatusOK, true, pipeline.TargetVolume, 1},
		{"unknown target changes nothing", `{"enabled": false, "continuous_target": "bass"}`, http.StatusBadRequest, true, pipeline.TargetVolume, 0},
		{"unknown field", `{"volume": 10}`, http.StatusBadRequest, true, pipeline.TargetVolume, 0},
		{"bad json", `{`, http.StatusBadRequest, true, pipeline.TargetVolume, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFakeController()
			rec := do(NewSettingsHandler(c), http.MethodPut, "/api/settings", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if c.snap.Enabled != tt.wantEnabled || c.snap.Target != tt.wantTarget || c.saves != tt.wantSaves {
				t.Errorf("enabled=%v target=%s saves=%d", c.snap.Enabled, c.snap.Target, c.saves)
			}
		})
	}

	t.Run("save failure", func(t *testing.T) {
		c := newFakeController()
		c.saveErr = errors.New("disk full")
		rec := do(NewSettingsHandler(c), http.MethodPut, "/api/settings", `{"enabled": false}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status %d", rec.Code)
		}
	})

	t.Run("method", func(t *testing.T) {
		if rec := do(NewSettingsHandler(newFakeController()), http.MethodDelete, "/api/settings", ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status %d", rec.Code)
		}
	})
}

func TestEventsHandler(t *testing.T) {
	s := newTestStore(t)
	h := NewEventsHandler(s)

	rec := do(h, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"events":[]`)) {
		t.Fatalf("empty history: status %d body %s", rec.Code, rec.Body.String())
	}

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, op := range []string{"mute", "unmute", "play_pause"} {
		s.Events().Record(&store.Event{Op: op, OK: true, Backend: "amixer", At: base.Add(time.Duration(i) * time.Second)})
	}

	rec = do(h, http.MethodGet, "/api/events?limit=2", "")
	var got eventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 3 || len(got.Events) != 2 || got.Events[0].Op != "play_pause" {
		t.Errorf("unexpected response %+v", got)
	}

	for _, q := range []string{"limit=0", "limit=-1", "limit=ten"} {
		if rec := do(h, http.MethodGet, "/api/events?"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", q, rec.Code)
		}
	}
	if rec := do(h, http.MethodPost, "/api/events", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: status %d", rec.Code)
	}
}
