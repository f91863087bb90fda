package api

import (
	"net/http"
	"strconv"

	"github.com/Kazeku-06/gesture-media-control/internal/store"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// EventsHandler serves GET /api/events?limit=N, newest first.
type EventsHandler struct {
	store *store.Store
}

func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

type eventsResponse struct {
	Events []*store.Event `json:"events"`
	Total  int            `json:"total"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	total, err := h.store.Events().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Total: total})
}
