package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stocklens/internal/models"
)

// Store is the remote store surface the workflow depends on. Implemented by
// api.Client; tests substitute fakes.
type Store interface {
	Extract(ctx context.Context, image []byte, sessionID string, maxItems int) ([]models.ExtractionResult, error)
	SessionProducts(ctx context.Context, sessionID string) ([]models.ProductRecord, error)
	UpsertProduct(ctx context.Context, result models.ExtractionResult) (models.ProductRecord, error)
	DeleteProduct(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
}

// Reconciler merges extraction and edit results into the remote store and
// decides between create and update.
type Reconciler struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewReconciler constructs a reconciler backed by the given store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Reconcile turns a (possibly edited) extraction result into a canonical
// product record. A result that already carries an id is upserted remotely
// and the server's view wins; a result without one becomes a local-only
// record pending first persistence.
func (r *Reconciler) Reconcile(ctx context.Context, result models.ExtractionResult) (models.ProductRecord, error) {
	if err := result.Validate(); err != nil {
		return models.ProductRecord{}, err
	}

	if result.ID != "" {
		record, err := r.store.UpsertProduct(ctx, result)
		if err != nil {
			return models.ProductRecord{}, err
		}
		slog.Debug("reconciled product", "id", record.ID, "session_id", record.SessionID)
		return record, nil
	}

	record := models.ProductRecord{
		ID:          r.newID(),
		ProductName: result.ProductName,
		Unit:        result.Unit,
		Description: result.Description,
		Category:    result.Category,
		Confidence:  result.Confidence,
		ImageRef:    result.ImageRef,
		SessionID:   result.SessionID,
		CreatedAt:   r.now(),
	}
	slog.Debug("created local product record", "id", record.ID)
	return record, nil
}

// MergeIntoCanonical merges record into list by id: replace in place when a
// matching entry exists, append otherwise. The input slice is never mutated;
// callers swap in the returned slice wholesale.
func MergeIntoCanonical(list []models.ProductRecord, record models.ProductRecord) []models.ProductRecord {
	merged := make([]models.ProductRecord, len(list), len(list)+1)
	copy(merged, list)
	for i := range merged {
		if merged[i].ID == record.ID {
			merged[i] = record
			return merged
		}
	}
	return append(merged, record)
}

// RemoveFromCanonical returns list without the record matching id.
func RemoveFromCanonical(list []models.ProductRecord, id string) []models.ProductRecord {
	remaining := make([]models.ProductRecord, 0, len(list))
	for _, record := range list {
		if record.ID != id {
			remaining = append(remaining, record)
		}
	}
	return remaining
}

// Delete issues the remote delete for id. The caller removes the record from
// the canonical list first; a remote failure leaves local state ahead of the
// server and is surfaced, not rolled back.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteProduct(ctx, id); err != nil {
		slog.Warn("remote delete failed, local list is ahead of server", "id", id, "err", err)
		return err
	}
	return nil
}
