package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/kilupskalvis/labelkit/internal/blob"
	"github.com/kilupskalvis/labelkit/internal/models"
	"github.com/kilupskalvis/labelkit/internal/session"
)

// Config holds configurable limits for the server.
type Config struct {
	MaxRequestBody int64 // bytes, for JSON endpoints
	MaxBlobSize    int64 // bytes, for mask uploads
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody: 16 * 1024 * 1024, // 16MB
		MaxBlobSize:    64 * 1024 * 1024, // 64MB
	}
}

// Handler creates the HTTP handler with all routes and middleware. The
// session's annotation state is single-threaded, so mutating endpoints
// serialize through one mutex.
func Handler(sess *session.Session, cfg *Config, logger *slog.Logger) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{sess: sess, cfg: cfg, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/v1/config", h.handleGetConfig)
	mux.HandleFunc("GET /api/v1/annotations", h.handleListAnnotations)
	mux.HandleFunc("GET /api/v1/annotations/{id}", h.handleGetAnnotation)
	mux.HandleFunc("POST /api/v1/annotations", h.handleCreateAnnotation)
	mux.HandleFunc("POST /api/v1/annotations/{id}/submit", h.handleSubmitAnnotation)
	mux.HandleFunc("DELETE /api/v1/annotations/{id}", h.handleDeleteAnnotation)
	mux.HandleFunc("GET /api/v1/annotations/{id}/results", h.handleGetResults)
	mux.HandleFunc("GET /api/v1/stats", h.handleGetStats)
	mux.HandleFunc("GET /api/v1/blobs/{hash}", h.handleGetBlob)
	mux.HandleFunc("POST /api/v1/blobs", h.handlePostBlob)

	return applyMiddleware(mux,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		requestIDMiddleware,
	)
}

type handlers struct {
	sess   *session.Session
	cfg    *Config
	logger *slog.Logger

	// mu serializes endpoints that load or mutate annotation state.
	mu sync.Mutex
}

func (h *handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"project_name": h.sess.Config.ProjectName,
		"controls":     h.sess.Tree.AllControls(),
		"objects":      h.sess.Tree.Objects,
		"settings":     h.sess.Settings(),
	})
}

func (h *handlers) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	records, err := h.sess.State.ListAnnotations()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if records == nil {
		records = []*models.AnnotationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) handleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sess.State.GetAnnotation(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "annotation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// createRequest is the POST /annotations payload: a task id plus a raw
// result array to decode.
type createRequest struct {
	TaskID string              `json:"task_id"`
	Result []models.ResultItem `json:"result"`
}

func (h *handlers) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, h.cfg.MaxRequestBody, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.mu.Lock()
	ann, decodeErrs, err := h.sess.ImportResults(req.TaskID, req.Result)
	h.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	skipped := make([]string, 0, len(decodeErrs))
	for _, derr := range decodeErrs {
		skipped = append(skipped, derr.Error())
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      ann.ID,
		"regions": ann.Store().Len(),
		"skipped": skipped,
	})
}

func (h *handlers) handleSubmitAnnotation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.mu.Lock()
	defer h.mu.Unlock()

	ann, decodeErrs, err := h.sess.LoadAnnotation(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	for _, derr := range decodeErrs {
		h.logger.Warn("skipped result item during load", "annotation_id", id, "error", derr)
	}

	warnings, err := h.sess.Submit(ann)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if len(warnings) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "validation_failed",
			"warnings": warnings,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     ann.ID,
		"result": ann.Versions().Result,
	})
}

func (h *handlers) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.State.DeleteAnnotation(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleGetResults(w http.ResponseWriter, r *http.Request) {
	items, err := h.sess.Results.GetResults(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if items == nil {
		items = []models.ResultItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sess.Results.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	data, err := h.sess.Masks.Get(r.PathValue("hash"))
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "blob not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (h *handlers) handlePostBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.MaxBlobSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if int64(len(data)) > h.cfg.MaxBlobSize {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("blob exceeds %d bytes", h.cfg.MaxBlobSize))
		return
	}
	hash, err := h.sess.Masks.Put(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"hash": hash})
}

func decodeBody(r *http.Request, limit int64, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
