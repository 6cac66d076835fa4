package handlers

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"video-fetcher/internal/database"
	"video-fetcher/internal/logging"
	"video-fetcher/internal/streaming"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
}

func contentTypeForFile(path string) string {
	if ct, ok := videoContentTypes[filepath.Ext(path)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// completedFetch resolves a record that must be completed and have a stored
// file, writing the error response itself when it cannot.
func (h *Handlers) completedFetch(w http.ResponseWriter, id string) *database.FetchRecord {
	rec, err := h.db.GetFetch(id)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "fetch not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		logging.Error("failed to get fetch %s: %v", id, err)
		writeJSONError(w, "failed to get fetch", http.StatusInternalServerError)
		return nil
	}
	if rec.Status != database.StatusCompleted {
		writeJSONError(w, "fetch is not completed", http.StatusConflict)
		return nil
	}
	return rec
}

// GetFile serves the stored video for a completed fetch with
// timeout-protected streaming.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	rec := h.completedFetch(w, mux.Vars(r)["id"])
	if rec == nil {
		return
	}

	file, err := os.Open(rec.FilePath)
	if err != nil {
		logging.Error("failed to open stored file for %s: %v", rec.ID, err)
		writeJSONError(w, "stored file unavailable", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close stored file %s: %v", rec.FilePath, err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		writeJSONError(w, "stored file unavailable", http.StatusInternalServerError)
		return
	}

	filename := rec.Title + filepath.Ext(rec.FilePath)
	w.Header().Set("Content-Type", contentTypeForFile(rec.FilePath))
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	// FormatMediaType handles non-ASCII titles with RFC 2231 encoding
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	err = streaming.Copy(r.Context(), w, file, h.streamConfig)
	if err != nil {
		if errors.Is(err, streaming.ErrClientGone) || errors.Is(err, streaming.ErrWriteTimeout) {
			// Not really an error, the client just left
			logging.Debug("download of %s ended early: %v", rec.ID, err)
			return
		}
		logging.Error("failed to stream file for %s: %v", rec.ID, err)
	}
}

// GetThumbnail serves the JPEG thumbnail for a completed fetch.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	rec := h.completedFetch(w, mux.Vars(r)["id"])
	if rec == nil {
		return
	}
	if rec.ThumbPath == "" {
		writeJSONError(w, "no thumbnail for this fetch", http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(rec.ThumbPath)
	if err != nil {
		logging.Error("failed to read thumbnail for %s: %v", rec.ID, err)
		writeJSONError(w, "thumbnail unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Warn("failed to write thumbnail response for %s: %v", rec.ID, err)
	}
}
