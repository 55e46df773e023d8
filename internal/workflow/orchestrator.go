package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"stocklens/internal/models"
)

// ErrCaptureBusy is returned when a capture is submitted while another is
// still in flight. Submissions are never queued.
var ErrCaptureBusy = errors.New("a capture is already being processed")

// CaptureSummary reports how one capture was triaged.
type CaptureSummary struct {
	Detected      int
	AutoAccepted  int
	PendingReview int
	Failed        int
}

// Orchestrator is the top-level driver of the capture workflow. It owns the
// canonical product list, the review queue, and the processing flag that
// serializes capture submissions. The canonical list is only ever replaced
// wholesale, never partially mutated, so readers never observe a torn
// update.
type Orchestrator struct {
	store      Store
	reconciler *Reconciler
	queue      *ReviewQueue
	sync       *Synchronizer
	alerts     *AlertCenter

	mu         sync.Mutex
	processing bool
	sessionID  string
	canonical  []models.ProductRecord
}

// NewOrchestrator constructs an orchestrator with a fresh client-generated
// session token.
func NewOrchestrator(store Store) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		reconciler: NewReconciler(store),
		sync:       NewSynchronizer(store),
		alerts:     NewAlertCenter(),
		sessionID:  "session_" + uuid.NewString(),
	}
	o.queue = NewReviewQueue(o.reconciler, o.mergeCanonical)
	return o
}

// SessionID returns the active session token.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Canonical returns a copy of the canonical product list.
func (o *Orchestrator) Canonical() []models.ProductRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.ProductRecord(nil), o.canonical...)
}

// Review exposes the pending review queue.
func (o *Orchestrator) Review() *ReviewQueue { return o.queue }

// Alerts exposes the alert center.
func (o *Orchestrator) Alerts() *AlertCenter { return o.alerts }

func (o *Orchestrator) mergeCanonical(record models.ProductRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.canonical = MergeIntoCanonical(o.canonical, record)
}

// SubmitCapture sends the image through extraction and triages the results:
// confidence at or above the threshold auto-commits, the rest lands in the
// review queue, both in response order. A submission while another capture
// is in flight returns ErrCaptureBusy. The processing flag is cleared on
// every path, success or failure.
func (o *Orchestrator) SubmitCapture(ctx context.Context, image []byte) (CaptureSummary, error) {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return CaptureSummary{}, ErrCaptureBusy
	}
	o.processing = true
	sessionID := o.sessionID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.processing = false
		o.mu.Unlock()
	}()

	o.alerts.Clear()

	results, err := o.store.Extract(ctx, image, sessionID, models.DefaultMaxItems)
	if err != nil {
		o.alerts.Publish(AlertError, "Extraction failed: "+err.Error())
		return CaptureSummary{}, err
	}

	summary := CaptureSummary{Detected: len(results)}
	var pending []models.ExtractionResult
	for _, result := range results {
		if !result.AutoAccept() {
			pending = append(pending, result)
			continue
		}
		record, err := o.reconciler.Reconcile(ctx, result)
		if err != nil {
			slog.Warn("auto-accept reconciliation failed, keeping item for review",
				"product_name", result.ProductName, "err", err)
			summary.Failed++
			pending = append(pending, result)
			continue
		}
		o.mergeCanonical(record)
		summary.AutoAccepted++
	}
	summary.PendingReview = len(pending)
	o.queue.Replace(pending)

	// The single alert slot holds one message, so a mixed outcome carries
	// the auto-saved count inside the review notice.
	switch {
	case summary.Detected == 0:
		o.alerts.Publish(AlertError, "No products detected in the capture")
	case summary.PendingReview > 0 && summary.AutoAccepted > 0:
		o.alerts.Publish(AlertError, fmt.Sprintf("Auto-saved %d product(s); %d item(s) need review before saving",
			summary.AutoAccepted, summary.PendingReview))
	case summary.PendingReview > 0:
		o.alerts.Publish(AlertError, fmt.Sprintf("%d item(s) need review before saving", summary.PendingReview))
	default:
		o.alerts.Publish(AlertSuccess, fmt.Sprintf("Auto-saved %d product(s)", summary.AutoAccepted))
	}

	slog.Info("capture triaged",
		"session_id", sessionID,
		"detected", summary.Detected,
		"auto_accepted", summary.AutoAccepted,
		"pending_review", summary.PendingReview)
	return summary, nil
}

// Processing reports whether a capture is currently in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// SwitchSession makes sessionID the active session and replaces the
// canonical list with the server's view of it. Pending review items belong
// to the capture flow and survive; the canonical list does not.
func (o *Orchestrator) SwitchSession(ctx context.Context, sessionID string) error {
	products, err := o.sync.Activate(ctx, sessionID)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	if err != nil {
		o.alerts.Publish(AlertError, "Failed to load session: "+err.Error())
		return err
	}

	o.mu.Lock()
	o.sessionID = sessionID
	o.canonical = products
	o.mu.Unlock()

	o.alerts.Publish(AlertSuccess, fmt.Sprintf("Loaded %d product(s)", len(products)))
	return nil
}

// ResolveStartupSession reconciles the client-generated session token with
// the server's session directory and loads the resolved session. Returns the
// directory for the session picker.
func (o *Orchestrator) ResolveStartupSession(ctx context.Context) ([]models.SessionSummary, error) {
	resolved, sessions, err := o.sync.ResolveSession(ctx, o.SessionID())
	if err != nil {
		return nil, err
	}
	if err := o.SwitchSession(ctx, resolved); err != nil {
		return sessions, err
	}
	return sessions, nil
}

// DeleteProduct removes the record locally first, then remotely. A remote
// failure leaves the local list ahead of the server; that divergence is
// surfaced through an alert rather than rolled back.
func (o *Orchestrator) DeleteProduct(ctx context.Context, id string) error {
	o.mu.Lock()
	o.canonical = RemoveFromCanonical(o.canonical, id)
	o.mu.Unlock()

	if err := o.reconciler.Delete(ctx, id); err != nil {
		o.alerts.Publish(AlertError, "Product removed locally but remote delete failed: "+err.Error())
		return err
	}
	o.alerts.Publish(AlertSuccess, "Product deleted")
	return nil
}

// SaveEdit reconciles an edited record from the history view and merges the
// canonical result.
func (o *Orchestrator) SaveEdit(ctx context.Context, edited models.ExtractionResult) (models.ProductRecord, error) {
	record, err := o.reconciler.Reconcile(ctx, edited)
	if err != nil {
		o.alerts.Publish(AlertError, "Update failed: "+err.Error())
		return models.ProductRecord{}, err
	}
	o.mergeCanonical(record)
	o.alerts.Publish(AlertSuccess, "Product updated")
	return record, nil
}

// Close tears down background ownership: outstanding session fetches are
// invalidated and alert timers stopped.
func (o *Orchestrator) Close() {
	o.sync.Close()
	o.alerts.Close()
}
