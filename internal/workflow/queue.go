package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"stocklens/internal/models"
)

// Draft is one pending item in the editable batch: the extraction as it
// arrived and the operator's working copy.
type Draft struct {
	Original models.ExtractionResult
	Edited   models.ExtractionResult
	Dirty    bool
}

// BatchFailure records one failed item during a batch commit.
type BatchFailure struct {
	Index int
	Err   error
}

// BatchError aggregates the per-item failures of a batch commit. Items after
// a failure are still processed; the batch never aborts on the first error.
type BatchError struct {
	Failures []BatchFailure
}

func (e *BatchError) Error() string {
	indices := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		indices[i] = strconv.Itoa(f.Index + 1)
	}
	return fmt.Sprintf("%d of batch failed (items %s)", len(e.Failures), strings.Join(indices, ", "))
}

// ReviewQueue holds extraction results awaiting manual resolution, in the
// order the extraction service returned them. The head item is the one
// currently under review. The editable batch is a snapshot of the queue for
// simultaneous multi-item editing; it stays independent until committed and
// can be rebuilt from the queue at any time.
type ReviewQueue struct {
	mu         sync.Mutex
	items      []models.ExtractionResult
	batch      []Draft
	reconciler *Reconciler
	onCommit   func(models.ProductRecord)
}

// NewReviewQueue constructs an empty queue. onCommit is invoked for every
// successfully reconciled item, in order; the orchestrator uses it to merge
// records into the canonical list.
func NewReviewQueue(reconciler *Reconciler, onCommit func(models.ProductRecord)) *ReviewQueue {
	if onCommit == nil {
		onCommit = func(models.ProductRecord) {}
	}
	return &ReviewQueue{reconciler: reconciler, onCommit: onCommit}
}

// Replace swaps the pending items wholesale and rebuilds the batch snapshot.
func (q *ReviewQueue) Replace(items []models.ExtractionResult) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]models.ExtractionResult(nil), items...)
	q.batch = snapshotBatch(q.items)
}

// Current returns the head of the queue, if any.
func (q *ReviewQueue) Current() (models.ExtractionResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return models.ExtractionResult{}, false
	}
	return q.items[0], true
}

// Len reports how many items await review.
func (q *ReviewQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queued items in order.
func (q *ReviewQueue) Pending() []models.ExtractionResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.ExtractionResult(nil), q.items...)
}

// Skip drops the head without persisting anything. A skip on an empty queue
// is a no-op.
func (q *ReviewQueue) Skip() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.advanceLocked()
}

func (q *ReviewQueue) advanceLocked() {
	if len(q.items) == 0 {
		return
	}
	q.items = append([]models.ExtractionResult(nil), q.items[1:]...)
}

// Save reconciles the (possibly edited) head item. Only after reconciliation
// succeeds is the head removed and the queue advanced; on failure the queue
// is untouched so the operator can retry.
func (q *ReviewQueue) Save(ctx context.Context, edited models.ExtractionResult) (models.ProductRecord, error) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return models.ProductRecord{}, fmt.Errorf("review queue is empty")
	}
	q.mu.Unlock()

	record, err := q.reconciler.Reconcile(ctx, edited)
	if err != nil {
		return models.ProductRecord{}, err
	}

	q.mu.Lock()
	q.advanceLocked()
	q.batch = snapshotBatch(q.items)
	q.mu.Unlock()

	q.onCommit(record)
	return record, nil
}

// Batch returns a copy of the editable batch.
func (q *ReviewQueue) Batch() []Draft {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Draft(nil), q.batch...)
}

// EditBatchItem replaces the working copy of batch item i.
func (q *ReviewQueue) EditBatchItem(i int, edited models.ExtractionResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.batch) {
		return fmt.Errorf("batch index %d out of range", i)
	}
	draft := q.batch[i]
	draft.Edited = edited
	draft.Dirty = edited != draft.Original
	q.batch[i] = draft
	return nil
}

// ResyncBatch discards batch edits and rebuilds the snapshot from the queue.
func (q *ReviewQueue) ResyncBatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.batch = snapshotBatch(q.items)
}

// CommitAll reconciles every batch draft strictly in order, awaiting each
// before starting the next so overlapping saves never race on the canonical
// list. Failed items are kept in both queue and batch for another attempt;
// on full success queue and batch are cleared in a single transition.
// Returns the committed records and, when any item failed, a *BatchError.
func (q *ReviewQueue) CommitAll(ctx context.Context) ([]models.ProductRecord, error) {
	drafts := q.Batch()
	if len(drafts) == 0 {
		return nil, nil
	}

	var (
		committed []models.ProductRecord
		failures  []BatchFailure
		remaining []Draft
	)
	for i, draft := range drafts {
		record, err := q.reconciler.Reconcile(ctx, draft.Edited)
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, Err: err})
			remaining = append(remaining, draft)
			continue
		}
		committed = append(committed, record)
		q.onCommit(record)
	}

	q.mu.Lock()
	if len(failures) == 0 {
		q.items = nil
		q.batch = nil
	} else {
		items := make([]models.ExtractionResult, len(remaining))
		for i, draft := range remaining {
			items[i] = draft.Original
		}
		q.items = items
		q.batch = remaining
	}
	q.mu.Unlock()

	if len(failures) > 0 {
		return committed, &BatchError{Failures: failures}
	}
	return committed, nil
}

func snapshotBatch(items []models.ExtractionResult) []Draft {
	batch := make([]Draft, len(items))
	for i, item := range items {
		batch[i] = Draft{Original: item, Edited: item}
	}
	return batch
}
