// Package server implements the remote store HTTP API the capture workflow
// talks to: extraction, session-scoped product CRUD, CSV export, the session
// directory, and a health endpoint.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"stocklens/internal/extraction"
	"stocklens/internal/storage"
)

// Handler carries the dependencies shared by every route.
type Handler struct {
	store      storage.Store
	extractor  *extraction.Service
	uploadsDir string
	now        func() time.Time
}

// New constructs a handler persisting to store and extracting with
// extractor. Captured images are written under uploadsDir.
func New(store storage.Store, extractor *extraction.Service, uploadsDir string) *Handler {
	if uploadsDir == "" {
		uploadsDir = "uploads"
	}
	return &Handler{
		store:      store,
		extractor:  extractor,
		uploadsDir: uploadsDir,
		now:        time.Now,
	}
}

// Router builds the full route table with CORS enabled for browser clients.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/product/extract/", h.handleExtract).Methods(http.MethodPost)
	api.HandleFunc("/product/{id}/", h.handleProductUpdate).Methods(http.MethodPut)
	api.HandleFunc("/product/{id}/", h.handleProductDelete).Methods(http.MethodDelete)
	api.HandleFunc("/session/products/", h.handleSessionProducts).Methods(http.MethodGet)
	api.HandleFunc("/session/save/", h.handleSessionSave).Methods(http.MethodPost)
	api.HandleFunc("/session/clear/", h.handleSessionClear).Methods(http.MethodDelete)
	api.HandleFunc("/export/csv/", h.handleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/sessions/", h.handleSessions).Methods(http.MethodGet)
	api.HandleFunc("/health/", h.handleHealth).Methods(http.MethodGet)

	r.PathPrefix("/static/uploads/").Handler(
		http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(h.uploadsDir))))

	return cors.AllowAll().Handler(r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	h.writeJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0o755)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
	})
}
