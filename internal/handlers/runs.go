package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"media-relay/internal/database"
	"media-relay/internal/logging"
	"media-relay/internal/pipeline"

	"github.com/gorilla/mux"
)

// RunsResponse is returned by ListRuns.
type RunsResponse struct {
	Active []ActiveRun    `json:"active"`
	Runs   []database.Run `json:"runs"`
}

// ListRuns returns in-progress runs and the most recent journal entries.
// Query parameters: outcome (an outcome label) and limit.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts := database.ListOptions{Outcome: r.URL.Query().Get("outcome")}

	if opts.Outcome != "" && opts.Outcome != "delivered" {
		if _, ok := pipeline.ParseKind(opts.Outcome); !ok {
			writeJSONError(w, "unknown outcome", http.StatusBadRequest)
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		opts.Limit = limit
	}

	response := RunsResponse{Active: h.ActiveRuns(), Runs: []database.Run{}}
	if h.runs != nil {
		runs, err := h.runs.ListRuns(r.Context(), opts)
		if err != nil {
			logging.Error("Failed to list runs: %v", err)
			writeJSONError(w, "failed to read journal", http.StatusInternalServerError)
			return
		}
		response.Runs = runs
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, response)
}

// GetRun returns one run: the journal entry when finished, or its progress
// while still running.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if active, ok := h.activeRun(id); ok {
		writeJSONStatusCode(w, http.StatusOK, active)
		return
	}
	if h.runs == nil {
		writeJSONError(w, "run not found", http.StatusNotFound)
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, database.ErrRunNotFound) {
		writeJSONError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to read run %s: %v", id, err)
		writeJSONError(w, "failed to read journal", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, run)
}
