// Package syncer replays pending changes against the remote store and
// reflects confirmed results in the local cache.
package syncer

import (
	"context"
	"fmt"
	"log"

	"borneostock-sync/internal/model"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/remote"
	"borneostock-sync/pkg/uid"
)

// Defaults applied by NewEngine for zero-valued config fields.
const (
	// DefaultMaxAttempts is how many failed applications a change survives
	// before it is marked exhausted and no longer retried automatically.
	DefaultMaxAttempts = 5

	// DefaultLogCollection is where stock-adjustment transaction logs go.
	DefaultLogCollection = "transactions"
)

// Config holds sync engine settings.
type Config struct {
	MaxAttempts   int
	LogCollection string
}

// Engine applies pending changes to the remote store, one at a time, in
// enqueue order. A change leaves the durable queue only after its remote
// application is confirmed.
type Engine struct {
	remote        remote.Store
	queue         *queue.Manager
	maxAttempts   int
	logCollection string
}

// NewEngine creates a sync engine. Zero config fields fall back to defaults.
func NewEngine(remoteStore remote.Store, q *queue.Manager, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.LogCollection == "" {
		cfg.LogCollection = DefaultLogCollection
	}
	return &Engine{
		remote:        remoteStore,
		queue:         q,
		maxAttempts:   cfg.MaxAttempts,
		logCollection: cfg.LogCollection,
	}
}

// DrainQueue attempts to apply every currently-queued change in FIFO order.
// A failing change is left in the queue and the drain continues with the
// next one; exhausted changes are skipped entirely. Returns the per-pass
// counters and error details.
func (e *Engine) DrainQueue(ctx context.Context) (model.SyncResult, error) {
	var result model.SyncResult

	if e.remote == nil {
		return result, fmt.Errorf("remote store unavailable")
	}

	changes, err := e.queue.ListPending(ctx)
	if err != nil {
		return result, fmt.Errorf("read pending queue: %w", err)
	}
	if len(changes) == 0 {
		return result, nil
	}

	log.Printf("[SyncEngine] Draining %d pending change(s)", len(changes))

	for _, change := range changes {
		if change.Exhausted {
			result.Skipped++
			continue
		}

		if err := e.Apply(ctx, change); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, model.ChangeError{
				ChangeID: change.ID,
				Type:     change.Type,
				ItemID:   change.ItemID,
				Err:      err.Error(),
			})
			if rerr := e.queue.RecordFailure(ctx, change.ID, err.Error(), e.maxAttempts); rerr != nil {
				log.Printf("[SyncEngine] Failed to record failure for change %s: %v", change.ID, rerr)
			}
			log.Printf("[SyncEngine] Change %s (%s) failed: %v", change.ID, change.Type, err)
			continue
		}

		if err := e.queue.Remove(ctx, change.ID); err != nil {
			// The remote write succeeded but the dequeue did not; the
			// change will be replayed next pass. The dedupe key keeps the
			// replayed add from duplicating, and stock adjustments carry
			// absolute values.
			log.Printf("[SyncEngine] Failed to dequeue change %s after success: %v", change.ID, err)
		}
		result.Succeeded++
	}

	log.Printf("[SyncEngine] Drain complete: %d succeeded, %d failed, %d skipped",
		result.Succeeded, result.Failed, result.Skipped)
	return result, nil
}

// Apply performs the remote mutation for a single change and, on success,
// mirrors the confirmed result into the local cache.
func (e *Engine) Apply(ctx context.Context, change model.PendingChange) error {
	switch change.Type {
	case model.ChangeAdd:
		return e.applyAdd(ctx, change)
	case model.ChangeUpdate:
		return e.applyUpdate(ctx, change)
	case model.ChangeDelete:
		return e.applyDelete(ctx, change)
	case model.ChangeStockAdjust:
		return e.applyStockAdjust(ctx, change)
	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

func (e *Engine) applyAdd(ctx context.Context, change model.PendingChange) error {
	item, err := change.ItemPayload()
	if err != nil {
		return err
	}

	placeholderID := item.ID
	item.ID = ""

	// The change ID doubles as the dedupe key: replaying the same add after
	// a lost confirmation resolves to the already-created document.
	remoteID, err := e.remote.CreateItem(ctx, change.Collection, item, change.ID)
	if err != nil {
		return err
	}

	if placeholderID != "" && uid.IsLocal(placeholderID) {
		if err := e.queue.RemoveCacheEntry(ctx, placeholderID); err != nil {
			return err
		}
	}
	item.ID = remoteID
	return e.queue.UpsertCacheEntry(ctx, item)
}

func (e *Engine) applyUpdate(ctx context.Context, change model.PendingChange) error {
	if change.ItemID == "" {
		return fmt.Errorf("item ID is required for update")
	}

	item, err := change.ItemPayload()
	if err != nil {
		return err
	}

	if err := e.remote.UpdateItem(ctx, change.Collection, change.ItemID, remote.ItemPatch(item)); err != nil {
		return err
	}

	item.ID = change.ItemID
	return e.queue.UpsertCacheEntry(ctx, item)
}

func (e *Engine) applyDelete(ctx context.Context, change model.PendingChange) error {
	if change.ItemID == "" {
		return fmt.Errorf("item ID is required for delete")
	}

	if err := e.remote.DeleteItem(ctx, change.Collection, change.ItemID); err != nil {
		return err
	}
	return e.queue.RemoveCacheEntry(ctx, change.ItemID)
}

func (e *Engine) applyStockAdjust(ctx context.Context, change model.PendingChange) error {
	if change.ItemID == "" {
		return fmt.Errorf("item ID is required for stock adjustment")
	}

	p, err := change.StockPayload()
	if err != nil {
		return err
	}

	// NewStock is the precomputed absolute value, so a replay writes the
	// same number instead of double-applying a delta.
	patch := map[string]interface{}{"stock": p.NewStock}
	if err := e.remote.UpdateItem(ctx, change.Collection, change.ItemID, patch); err != nil {
		return err
	}

	entry := model.TransactionLog{
		ItemID:   change.ItemID,
		ItemName: p.ItemName,
		Type:     p.Direction,
		Quantity: p.Quantity,
		Reason:   p.Reason,
		Notes:    p.Notes,
		User:     p.User,
		OldStock: p.OldStock,
		NewStock: p.NewStock,
	}
	if _, err := e.remote.CreateLog(ctx, e.logCollection, entry); err != nil {
		return err
	}

	return e.queue.SetCacheStock(ctx, change.ItemID, p.NewStock)
}
