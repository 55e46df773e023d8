package storage

import (
	"sort"
	"sync"

	"stocklens/internal/models"
)

// MemoryStore keeps product captures in memory. It backs tests and ad hoc
// runs where no database file is wanted.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]models.ProductRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]models.ProductRecord)}
}

func (s *MemoryStore) SaveProduct(record models.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[record.ID] = record
	return nil
}

func (s *MemoryStore) GetProduct(id string) (models.ProductRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.products[id]
	return record, ok, nil
}

func (s *MemoryStore) DeleteProduct(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) ListBySession(sessionID string) ([]models.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]models.ProductRecord, 0)
	for _, record := range s.products {
		if record.SessionID == sessionID {
			products = append(products, record)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (s *MemoryStore) ClearSession(sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.products {
		if record.SessionID == sessionID {
			delete(s.products, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) ListSessions() ([]models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]*models.SessionSummary)
	for _, record := range s.products {
		sid := record.SessionID
		if sid == "" {
			sid = "default"
		}
		summary, ok := byID[sid]
		if !ok {
			summary = &models.SessionSummary{SessionID: sid}
			byID[sid] = summary
		}
		summary.Count++
		if record.CreatedAt.After(summary.LastSeen) {
			summary.LastSeen = record.CreatedAt
		}
	}
	sessions := make([]models.SessionSummary, 0, len(byID))
	for _, summary := range byID {
		sessions = append(sessions, *summary)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastSeen.After(sessions[j].LastSeen)
	})
	return sessions, nil
}

func (s *MemoryStore) Close() error { return nil }
