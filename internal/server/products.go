package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"stocklens/internal/models"
	"stocklens/internal/storage"
)

func (h *Handler) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var payload models.ExtractionResult
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	existing, found, err := h.store.GetProduct(id)
	if err != nil {
		h.writeError(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}

	record := models.ProductRecord{
		ID:          id,
		ProductName: payload.ProductName,
		Unit:        payload.Unit,
		Description: payload.Description,
		Category:    payload.Category,
		Confidence:  payload.Confidence,
		ImageRef:    payload.ImageRef,
		SessionID:   payload.SessionID,
	}
	if found {
		// Partial updates keep whatever the payload left blank.
		if record.ProductName == "" {
			record.ProductName = existing.ProductName
		}
		if record.Unit == "" {
			record.Unit = existing.Unit
		}
		if record.Description == "" {
			record.Description = existing.Description
		}
		if record.Category == "" {
			record.Category = existing.Category
		}
		if record.ImageRef == "" {
			record.ImageRef = existing.ImageRef
		}
		if record.SessionID == "" {
			record.SessionID = existing.SessionID
		}
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = h.now()
	}
	if !record.Category.Valid() {
		h.writeError(w, "Unknown category: "+string(record.Category), http.StatusBadRequest)
		return
	}

	if err := h.store.SaveProduct(record); err != nil {
		h.writeError(w, "Failed to save product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteProduct(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "Product not found", http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to delete product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
