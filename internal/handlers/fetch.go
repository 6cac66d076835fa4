package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"video-fetcher/internal/database"
	"video-fetcher/internal/fetcher"
	"video-fetcher/internal/logging"
)

// Request bodies are tiny JSON documents; anything bigger is abuse.
const maxRequestBody = 1 << 20

type fetchRequest struct {
	URL string `json:"url"`
}

// CreateFetch runs the fetch pipeline for the submitted URL. The request
// blocks until the pipeline finishes or its timeout expires.
func (h *Handlers) CreateFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest

	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		writeJSONError(w, "url is required", http.StatusBadRequest)
		return
	}

	rec, err := h.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, fetcher.ErrInvalidURL):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, fetcher.ErrDisabled):
			writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, fetcher.ErrTooLarge):
			h.writeFetchFailure(w, rec, err, http.StatusRequestEntityTooLarge)
		default:
			// Tool failures are upstream problems from the client's view
			h.writeFetchFailure(w, rec, err, http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rec)
}

// writeFetchFailure reports a pipeline failure, including the failed record
// so clients can reference it in the history.
func (h *Handlers) writeFetchFailure(w http.ResponseWriter, rec *database.FetchRecord, err error, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]interface{}{
		"error": err.Error(),
		"fetch": rec,
	})
}

// ListFetches returns the fetch history, newest first. Supports ?limit= and
// ?status= filters.
func (h *Handlers) ListFetches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeJSONError(w, "limit must be an integer between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	status := database.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSONError(w, "unknown status filter", http.StatusBadRequest)
		return
	}

	records, err := h.db.ListFetches(limit, status)
	if err != nil {
		logging.Error("failed to list fetches: %v", err)
		writeJSONError(w, "failed to list fetches", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*database.FetchRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}

// GetFetch returns a single fetch record.
func (h *Handlers) GetFetch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.db.GetFetch(id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "fetch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get fetch %s: %v", id, err)
		writeJSONError(w, "failed to get fetch", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// DeleteFetch removes a fetch record and its stored files.
func (h *Handlers) DeleteFetch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := h.fetcher.Remove(id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "fetch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to delete fetch %s: %v", id, err)
		writeJSONError(w, "failed to delete fetch", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "deleted")
}

// GetStats returns aggregate fetch statistics.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		logging.Error("failed to get stats: %v", err)
		writeJSONError(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
