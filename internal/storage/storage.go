// Package storage persists product captures for the remote store server.
package storage

import (
	"errors"

	"stocklens/internal/models"
)

// ErrNotFound is returned when no product matches the requested id.
var ErrNotFound = errors.New("product not found")

// Store is the persistence surface the server handlers depend on.
type Store interface {
	SaveProduct(record models.ProductRecord) error
	GetProduct(id string) (models.ProductRecord, bool, error)
	DeleteProduct(id string) error
	ListBySession(sessionID string) ([]models.ProductRecord, error)
	ClearSession(sessionID string) (int, error)
	ListSessions() ([]models.SessionSummary, error)
	Close() error
}
