package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yourusername/sunviewfinder/internal/geo"
	"github.com/yourusername/sunviewfinder/internal/pipeline"
	"github.com/yourusername/sunviewfinder/pkg/solar"
)

// Handlers implements the pipeline run routes and the run-history route.
type Handlers struct {
	mgr    *manager
	logger *zap.SugaredLogger
}

// createRunRequest is the POST /api/v1/pipeline/runs body.
type createRunRequest struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusM     float64 `json:"radius_m"`
	Mode        string  `json:"mode"`
	Date        string  `json:"date"` // RFC3339; defaults to now if empty
	SpacingM    float64 `json:"spacing_m,omitempty"`
	Concurrency int     `json:"concurrency,omitempty"`
}

type createRunResponse struct {
	RunID string `json:"run_id"`
}

// CreateRun starts a new pipeline run and returns its tracking ID
// immediately; progress and the final result are delivered over the
// events stream.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	mode := solar.Mode(req.Mode)
	if mode != solar.ModeSunset && mode != solar.ModeSunrise {
		writeError(w, http.StatusBadRequest, "mode must be \"sunset\" or \"sunrise\"")
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date: %v", err))
			return
		}
		date = parsed
	}

	if req.RadiusM <= 0 {
		writeError(w, http.StatusBadRequest, "radius_m must be positive")
		return
	}

	opts := pipeline.Options{
		Center:      geo.Coordinate{Lat: req.Lat, Lng: req.Lng},
		RadiusM:     req.RadiusM,
		Date:        date,
		Mode:        mode,
		SpacingM:    req.SpacingM,
		Concurrency: req.Concurrency,
	}

	run := h.mgr.start(r.Context(), opts)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(createRunResponse{RunID: run.id})
}

// StreamRunEvents streams progress and the final result of a run as
// server-sent events until the run finishes or the client disconnects.
func (h *Handlers) StreamRunEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, ok := h.mgr.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := run.subscribe()
	defer unsubscribe()

	for {
		select {
		case e, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				if h.logger != nil {
					h.logger.Errorw("failed to marshal run event", "run_id", id, "error", err)
				}
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if e.Status != statusRunning {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// CancelRun stops a running pipeline run early.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.mgr.cancelRun(id) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRunHistory returns past run outcomes recorded by the configured
// history provider, newest first. ?limit=N caps the result count.
func (h *Handlers) ListRunHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.mgr.listHistory(limit)
	if err != nil {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
