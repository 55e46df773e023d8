package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stocklens/internal/models"
)

// fakeStore implements Store in memory and records call order.
type fakeStore struct {
	mu sync.Mutex

	extractResults []models.ExtractionResult
	extractErr     error

	sessions        map[string][]models.ProductRecord
	sessionsList    []models.SessionSummary
	sessionsListErr error

	upsertErr    error
	upsertErrFor map[string]error
	deleteErr    error

	upsertOrder []string
	calls       []string

	// gates block SessionProducts for a given session until the test
	// closes the channel, simulating a slow fetch.
	gates map[string]chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     make(map[string][]models.ProductRecord),
		upsertErrFor: make(map[string]error),
		gates:        make(map[string]chan struct{}),
	}
}

func (f *fakeStore) gateFor(sessionID string, gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[sessionID] = gate
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) Extract(ctx context.Context, image []byte, sessionID string, maxItems int) ([]models.ExtractionResult, error) {
	f.record("extract")
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	results := make([]models.ExtractionResult, len(f.extractResults))
	copy(results, f.extractResults)
	for i := range results {
		results[i].SessionID = sessionID
	}
	return results, nil
}

func (f *fakeStore) SessionProducts(ctx context.Context, sessionID string) ([]models.ProductRecord, error) {
	f.record("session_products:" + sessionID)
	f.mu.Lock()
	gate := f.gates[sessionID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ProductRecord(nil), f.sessions[sessionID]...), nil
}

func (f *fakeStore) UpsertProduct(ctx context.Context, result models.ExtractionResult) (models.ProductRecord, error) {
	f.record("upsert:" + result.ProductName)
	f.mu.Lock()
	f.upsertOrder = append(f.upsertOrder, result.ProductName)
	f.mu.Unlock()
	if err := f.upsertErrFor[result.ProductName]; err != nil {
		return models.ProductRecord{}, err
	}
	if f.upsertErr != nil {
		return models.ProductRecord{}, f.upsertErr
	}
	id := result.ID
	if id == "" {
		id = fmt.Sprintf("srv-%s", result.ProductName)
	}
	return models.ProductRecord{
		ID:          id,
		ProductName: result.ProductName,
		Unit:        result.Unit,
		Description: result.Description,
		Category:    result.Category,
		Confidence:  result.Confidence,
		ImageRef:    result.ImageRef,
		SessionID:   result.SessionID,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (f *fakeStore) DeleteProduct(ctx context.Context, id string) error {
	f.record("delete:" + id)
	return f.deleteErr
}

func (f *fakeStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	f.record("list_sessions")
	if f.sessionsListErr != nil {
		return nil, f.sessionsListErr
	}
	return append([]models.SessionSummary(nil), f.sessionsList...), nil
}

func result(name string, confidence float64) models.ExtractionResult {
	return models.ExtractionResult{
		ID:          "id-" + name,
		ProductName: name,
		Unit:        "1pc",
		Category:    models.CategoryFood,
		Confidence:  confidence,
	}
}

func record(name string) models.ProductRecord {
	return models.ProductRecord{
		ID:          "id-" + name,
		ProductName: name,
		Unit:        "1pc",
		Category:    models.CategoryFood,
		Confidence:  0.9,
	}
}
