package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
)

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	ctrl Controller
}

func NewSettingsHandler(c Controller) *SettingsHandler {
	return &SettingsHandler{ctrl: c}
}

type settingsResponse struct {
	Enabled          bool            `json:"enabled"`
	ContinuousTarget pipeline.Target `json:"continuous_target"`
}

// updateSettingsRequest is a partial update; absent fields are left alone.
type updateSettingsRequest struct {
	Enabled          *bool   `json:"enabled"`
	ContinuousTarget *string `json:"continuous_target"`
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter) {
	snap := h.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, settingsResponse{Enabled: snap.Enabled, ContinuousTarget: snap.Target})
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// Validate everything before changing anything.
	var target pipeline.Target
	if req.ContinuousTarget != nil {
		t, err := pipeline.ParseTarget(*req.ContinuousTarget)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		target = t
	}

	if target != "" {
		if err := h.ctrl.SetContinuousTarget(target); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Enabled != nil {
		h.ctrl.SetEnabled(*req.Enabled)
	}
	if err := h.ctrl.SaveSettings(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("settings applied but not saved: %v", err))
		return
	}
	h.get(w)
}
