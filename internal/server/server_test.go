package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stocklens/internal/extraction"
	"stocklens/internal/models"
	"stocklens/internal/storage"
)

type fakeProvider struct {
	response string
}

func (p *fakeProvider) ExtractText(ctx context.Context, req extraction.Request) (string, error) {
	return p.response, nil
}

func newTestHandler(t *testing.T, providerResponse string) (*Handler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	extractor := extraction.NewServiceWithProvider(&fakeProvider{response: providerResponse}, "test-model")
	h := New(store, extractor, t.TempDir())
	return h, store
}

func multipartImage(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	return multipartImageBytes(t, []byte("fake jpeg bytes"), fields)
}

func multipartImageBytes(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "shelf.jpg")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("writing image: %v", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("writing field %s: %v", k, err)
		}
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return payload["error"]
}

func TestExtractPersistsEveryDetectedItem(t *testing.T) {
	h, store := newTestHandler(t, `[
		{"product_name":"Rice","unit":"1kg","category":"Food","confidence":0.92},
		{"product_name":"Soap","unit":"1pc","category":"Hygiene","confidence":0.41}
	]`)
	router := h.Router()

	body, contentType := multipartImage(t, map[string]string{"session_id": "shop-a"})
	req := httptest.NewRequest(http.MethodPost, "/api/product/extract/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved []models.ProductRecord
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(saved))
	}
	for _, record := range saved {
		if record.ID == "" {
			t.Errorf("record %q missing id", record.ProductName)
		}
		if record.SessionID != "shop-a" {
			t.Errorf("record %q has session %q", record.ProductName, record.SessionID)
		}
		if !strings.HasPrefix(record.ImageRef, "/static/uploads/") {
			t.Errorf("record %q has image ref %q", record.ProductName, record.ImageRef)
		}
	}
	if saved[0].ImageRef != saved[1].ImageRef {
		t.Error("records from one capture must share the image")
	}

	// Low-confidence items are persisted too; triage is the client's job.
	stored, err := store.ListBySession("shop-a")
	if err != nil {
		t.Fatalf("listing session: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected both items in store, got %d", len(stored))
	}
}

func TestExtractSizeLimitBoundary(t *testing.T) {
	h, _ := newTestHandler(t, `[]`)
	router := h.Router()

	// An upload of exactly the cap is accepted.
	body, contentType := multipartImageBytes(t, make([]byte, maxImageBytes), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/product/extract/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("upload at the cap must be accepted, got %d: %s", rec.Code, rec.Body.String())
	}

	// One byte over is rejected.
	body, contentType = multipartImageBytes(t, make([]byte, maxImageBytes+1), nil)
	req = httptest.NewRequest(http.MethodPost, "/api/product/extract/", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("upload over the cap must be rejected, got %d", rec.Code)
	}
}

func TestExtractRequiresImage(t *testing.T) {
	h, _ := newTestHandler(t, `[]`)
	req := httptest.NewRequest(http.MethodPost, "/api/product/extract/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "No image provided" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestExtractDefaultsSession(t *testing.T) {
	h, store := newTestHandler(t, `[{"product_name":"Rice","category":"Food","confidence":0.9}]`)
	body, contentType := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/product/extract/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored, _ := store.ListBySession("default")
	if len(stored) != 1 {
		t.Errorf("expected item under the default session, got %d", len(stored))
	}
}

func TestProductUpdateMergesPartialPayload(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seed := models.ProductRecord{
		ID:          "p1",
		ProductName: "Rise",
		Unit:        "1kg",
		Description: "white rice",
		Category:    models.CategoryFood,
		Confidence:  0.41,
		ImageRef:    "/static/uploads/abc.jpg",
		SessionID:   "shop-a",
		CreatedAt:   created,
	}
	if err := store.SaveProduct(seed); err != nil {
		t.Fatal(err)
	}

	payload := `{"product_name":"Rice","confidence":0.99}`
	req := httptest.NewRequest(http.MethodPut, "/api/product/p1/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated, found, _ := store.GetProduct("p1")
	if !found {
		t.Fatal("record vanished")
	}
	if updated.ProductName != "Rice" || updated.Confidence != 0.99 {
		t.Errorf("payload fields not applied: %+v", updated)
	}
	if updated.Unit != "1kg" || updated.Description != "white rice" || updated.SessionID != "shop-a" {
		t.Errorf("blank payload fields must keep existing values: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("created_at must survive edits, got %v", updated.CreatedAt)
	}
}

func TestProductUpdateCreatesUnknownID(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	payload := `{"product_name":"Bleach","unit":"1L","category":"Cleanings","confidence":0.8,"session_id":"shop-a"}`
	req := httptest.NewRequest(http.MethodPut, "/api/product/local-9/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	record, found, _ := store.GetProduct("local-9")
	if !found {
		t.Fatal("expected record created under the path id")
	}
	if record.CreatedAt.IsZero() {
		t.Error("new record must get a creation timestamp")
	}
}

func TestProductUpdateRejectsUnknownCategory(t *testing.T) {
	h, _ := newTestHandler(t, `[]`)
	payload := `{"product_name":"Widget","category":"Gadgets","confidence":0.8}`
	req := httptest.NewRequest(http.MethodPut, "/api/product/p1/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProductDelete(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	store.SaveProduct(models.ProductRecord{ID: "p1", SessionID: "shop-a"})

	req := httptest.NewRequest(http.MethodDelete, "/api/product/p1/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, found, _ := store.GetProduct("p1"); found {
		t.Error("record still present after delete")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/product/p1/", nil)
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing record, got %d", rec.Code)
	}
}

func TestSessionProductsRequiresSessionID(t *testing.T) {
	h, _ := newTestHandler(t, `[]`)
	req := httptest.NewRequest(http.MethodGet, "/api/session/products/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSessionSaveAssignsIDs(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	payload := `[
		{"product_name":"Rice","unit":"1kg","category":"Food","confidence":0.9,"session_id":"shop-a"},
		{"id":"keep-me","product_name":"Soap","unit":"1pc","category":"Hygiene","confidence":0.8,"session_id":"shop-a"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/api/session/save/", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved []models.ProductRecord
	if err := json.NewDecoder(rec.Body).Decode(&saved); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(saved))
	}
	if saved[0].ID == "" {
		t.Error("blank id must be assigned")
	}
	if saved[1].ID != "keep-me" {
		t.Errorf("provided id must be kept, got %q", saved[1].ID)
	}
	if _, found, _ := store.GetProduct("keep-me"); !found {
		t.Error("record not persisted")
	}
}

func TestSessionClearReportsCount(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	store.SaveProduct(models.ProductRecord{ID: "p1", SessionID: "shop-a"})
	store.SaveProduct(models.ProductRecord{ID: "p2", SessionID: "shop-a"})
	store.SaveProduct(models.ProductRecord{ID: "p3", SessionID: "shop-b"})

	req := httptest.NewRequest(http.MethodDelete, "/api/session/clear/?session_id=shop-a", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload["deleted"] != 2 {
		t.Errorf("expected deleted=2, got %d", payload["deleted"])
	}
	if remaining, _ := store.ListBySession("shop-b"); len(remaining) != 1 {
		t.Error("other sessions must be untouched")
	}
}

func TestSessionsDirectory(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	store.SaveProduct(models.ProductRecord{ID: "p1", SessionID: "shop-a", CreatedAt: time.Now()})
	store.SaveProduct(models.ProductRecord{ID: "p2", CreatedAt: time.Now()})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var sessions []models.SessionSummary
	if err := json.NewDecoder(rec.Body).Decode(&sessions); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	names := map[string]bool{}
	for _, s := range sessions {
		names[s.SessionID] = true
	}
	if !names["default"] {
		t.Error("records without a session must report under 'default'")
	}
}

func TestExportCSV(t *testing.T) {
	h, store := newTestHandler(t, `[]`)
	store.SaveProduct(models.ProductRecord{
		ID: "p1", ProductName: "Rice", Unit: "1kg", Description: "white",
		Category: models.CategoryFood, Confidence: 0.92, SessionID: "shop-a",
		CreatedAt: time.Now(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv/?session_id=shop-a", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "inventory_export_shop-a.csv") {
		t.Errorf("unexpected disposition %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "product_name,unit,description,category,confidence" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "Rice,1kg,white,Food,0.92" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, `[]`)
	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", payload["status"])
	}
}
