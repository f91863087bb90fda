// Package api implements the JSON endpoints of the local HTTP API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Kazeku-06/gesture-media-control/internal/app"
	"github.com/Kazeku-06/gesture-media-control/internal/pipeline"
)

// Controller is the part of the running app the API can see and steer.
type Controller interface {
	Snapshot() app.Snapshot
	SetEnabled(enabled bool)
	SetContinuousTarget(t pipeline.Target) error
	Reset()
	SaveSettings() error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
