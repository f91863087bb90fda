package api

import "net/http"

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctrl Controller
}

func NewStatusHandler(c Controller) *StatusHandler {
	return &StatusHandler{ctrl: c}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// ResetHandler serves POST /api/reset.
type ResetHandler struct {
	ctrl Controller
}

func NewResetHandler(c Controller) *ResetHandler {
	return &ResetHandler{ctrl: c}
}

func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.ctrl.Reset()
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}
