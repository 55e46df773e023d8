package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"stocklens/internal/export"
	"stocklens/internal/models"
)

func (h *Handler) handleSessionProducts(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}
	products, err := h.store.ListBySession(sessionID)
	if err != nil {
		h.writeError(w, "Failed to list products: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	var payload []models.ExtractionResult
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	saved := make([]models.ProductRecord, 0, len(payload))
	for _, item := range payload {
		if err := item.Validate(); err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		record := models.ProductRecord{
			ID:          item.ID,
			ProductName: item.ProductName,
			Unit:        item.Unit,
			Description: item.Description,
			Category:    item.Category,
			Confidence:  item.Confidence,
			ImageRef:    item.ImageRef,
			SessionID:   item.SessionID,
			CreatedAt:   h.now(),
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if err := h.store.SaveProduct(record); err != nil {
			h.writeError(w, "Failed to save product: "+err.Error(), http.StatusInternalServerError)
			return
		}
		saved = append(saved, record)
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		h.writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}
	deleted, err := h.store.ClearSession(sessionID)
	if err != nil {
		h.writeError(w, "Failed to clear session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		h.writeError(w, "Failed to list sessions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = "default"
	}
	products, err := h.store.ListBySession(sessionID)
	if err != nil {
		h.writeError(w, "Failed to list products: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "inventory_export_"+sessionID+".csv"))
	if err := export.WriteCSV(w, products); err != nil {
		h.writeError(w, "Failed to write CSV: "+err.Error(), http.StatusInternalServerError)
	}
}
