package server

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"stocklens/internal/models"
)

// maxImageBytes caps uploaded captures at 10MB.
const maxImageBytes = 10 * 1024 * 1024

func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, "No image provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(imageData) > maxImageBytes {
		h.writeError(w, "Image too large (max 10MB)", http.StatusBadRequest)
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = "default"
	}
	maxItems := models.DefaultMaxItems
	if v := r.FormValue("max_items"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxItems = parsed
		}
	}

	imageRef, err := h.saveImage(imageData, filepath.Ext(header.Filename))
	if err != nil {
		h.writeError(w, "Failed to save image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	results, err := h.extractor.ExtractProducts(r.Context(), imageData, mimeType, maxItems)
	if err != nil {
		h.writeError(w, "Extraction failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Every detected item is persisted immediately and shares the capture
	// image, matching how the store has always behaved.
	saved := make([]models.ProductRecord, 0, len(results))
	for _, result := range results {
		record := models.ProductRecord{
			ID:          uuid.NewString(),
			ProductName: result.ProductName,
			Unit:        result.Unit,
			Description: result.Description,
			Category:    result.Category,
			Confidence:  result.Confidence,
			ImageRef:    imageRef,
			SessionID:   sessionID,
			CreatedAt:   h.now(),
		}
		if err := h.store.SaveProduct(record); err != nil {
			h.writeError(w, "Failed to save product: "+err.Error(), http.StatusInternalServerError)
			return
		}
		saved = append(saved, record)
	}

	slog.Info("capture extracted", "session_id", sessionID, "items", len(saved))
	h.writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) saveImage(data []byte, ext string) (string, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return "", err
	}
	if ext == "" {
		ext = ".jpg"
	}
	sum := md5.Sum(data)
	filename := hex.EncodeToString(sum[:]) + ext
	if err := os.WriteFile(filepath.Join(h.uploadsDir, filename), data, 0o644); err != nil {
		return "", err
	}
	return "/static/uploads/" + filename, nil
}
