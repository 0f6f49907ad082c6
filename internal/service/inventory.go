package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"borneostock-sync/internal/connectivity"
	"borneostock-sync/internal/model"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/remote"
	"borneostock-sync/internal/session"
	"borneostock-sync/pkg/uid"
)

// Service-level errors the handlers map to API responses.
var (
	ErrNotFound      = errors.New("item not found")
	ErrHasVariants   = errors.New("item has linked variants and cannot be deleted")
	ErrStockNegative = errors.New("resulting stock would be negative")
	ErrNoAdjustment  = errors.New("stock adjustment is zero")
)

// Config holds inventory service settings.
type Config struct {
	// Collection is the remote collection holding inventory items.
	Collection string
	// LogCollection is the remote collection holding transaction logs.
	LogCollection string
	// User is recorded on transaction logs.
	User string
}

// InventoryService is the mutation and read API the presentation layer
// calls. When online it writes straight to the remote store; when offline
// it applies the mutation optimistically to the cache and queues a pending
// change for the sync engine.
type InventoryService struct {
	queue         *queue.Manager
	remote        remote.Store
	monitor       *connectivity.Monitor
	session       *session.Controller
	collection    string
	logCollection string
	user          string
}

// NewInventoryService creates the inventory service. remoteStore may be nil,
// in which case every mutation takes the offline path.
func NewInventoryService(q *queue.Manager, remoteStore remote.Store, monitor *connectivity.Monitor, sess *session.Controller, cfg Config) *InventoryService {
	if cfg.Collection == "" {
		cfg.Collection = "inventory"
	}
	if cfg.LogCollection == "" {
		cfg.LogCollection = "transactions"
	}
	if cfg.User == "" {
		cfg.User = "Admin"
	}
	return &InventoryService{
		queue:         q,
		remote:        remoteStore,
		monitor:       monitor,
		session:       sess,
		collection:    cfg.Collection,
		logCollection: cfg.LogCollection,
		user:          cfg.User,
	}
}

func (s *InventoryService) online() bool {
	return s.remote != nil && s.monitor.IsOnline()
}

// enqueue records a pending change and refreshes the UI badge count.
func (s *InventoryService) enqueue(ctx context.Context, change model.PendingChange) error {
	if err := s.queue.Enqueue(ctx, change); err != nil {
		return err
	}
	if _, err := s.session.RefreshPendingCount(ctx); err != nil {
		log.Printf("[Inventory] Pending count refresh failed: %v", err)
	}
	return nil
}

// AddItem creates a new inventory item. Offline adds get a local placeholder
// identifier that the sync engine replaces with the remote one on
// confirmation.
func (s *InventoryService) AddItem(ctx context.Context, item model.Item) (model.Item, error) {
	item.ID = ""
	if err := item.Validate(); err != nil {
		return model.Item{}, err
	}

	if s.online() {
		id, err := s.remote.CreateItem(ctx, s.collection, item, uid.New())
		if err != nil {
			return model.Item{}, err
		}
		item.ID = id
		if err := s.queue.UpsertCacheEntry(ctx, item); err != nil {
			return model.Item{}, err
		}
		return item, nil
	}

	// Offline: optimistic cache write plus a queued change.
	item.ID = uid.NewLocal()
	if err := s.queue.UpsertCacheEntry(ctx, item); err != nil {
		return model.Item{}, err
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return model.Item{}, fmt.Errorf("encode add payload: %w", err)
	}
	change := model.PendingChange{
		ID:         uid.New(),
		Type:       model.ChangeAdd,
		Collection: s.collection,
		Payload:    payload,
	}
	if err := s.enqueue(ctx, change); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// UpdateItem replaces the editable fields of an existing item.
func (s *InventoryService) UpdateItem(ctx context.Context, id string, item model.Item) (model.Item, error) {
	if id == "" {
		return model.Item{}, ErrNotFound
	}
	item.ID = id
	if err := item.Validate(); err != nil {
		return model.Item{}, err
	}

	if s.online() {
		if err := s.remote.UpdateItem(ctx, s.collection, id, remote.ItemPatch(item)); err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				return model.Item{}, ErrNotFound
			}
			return model.Item{}, err
		}
		if err := s.queue.UpsertCacheEntry(ctx, item); err != nil {
			return model.Item{}, err
		}
		return item, nil
	}

	if err := s.queue.UpsertCacheEntry(ctx, item); err != nil {
		return model.Item{}, err
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return model.Item{}, fmt.Errorf("encode update payload: %w", err)
	}
	change := model.PendingChange{
		ID:         uid.New(),
		Type:       model.ChangeUpdate,
		Collection: s.collection,
		ItemID:     id,
		Payload:    payload,
	}
	if err := s.enqueue(ctx, change); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// DeleteItem removes an item. A parent with linked variants is rejected;
// the variants must be unlinked or deleted first.
func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}

	cached, found, err := s.queue.GetCacheEntry(ctx, id)
	if err != nil {
		return err
	}
	if found && cached.IsParent() {
		return ErrHasVariants
	}

	if s.online() {
		if err := s.remote.DeleteItem(ctx, s.collection, id); err != nil {
			return err
		}
		return s.queue.RemoveCacheEntry(ctx, id)
	}

	if err := s.queue.RemoveCacheEntry(ctx, id); err != nil {
		return err
	}
	change := model.PendingChange{
		ID:         uid.New(),
		Type:       model.ChangeDelete,
		Collection: s.collection,
		ItemID:     id,
	}
	return s.enqueue(ctx, change)
}

// AdjustStock applies a signed stock adjustment to an item and records a
// transaction log. The resulting stock must not be negative; that is
// validated here, before anything is enqueued, never by the sync engine.
func (s *InventoryService) AdjustStock(ctx context.Context, id string, adjustment int, reason, notes string) (int, error) {
	if adjustment == 0 {
		return 0, ErrNoAdjustment
	}

	item, found, err := s.queue.GetCacheEntry(ctx, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}

	newStock := item.Stock + adjustment
	if newStock < 0 {
		return 0, ErrStockNegative
	}

	direction := model.TxTypeIn
	quantity := adjustment
	if adjustment < 0 {
		direction = model.TxTypeOut
		quantity = -adjustment
	}

	if s.online() {
		if err := s.remote.UpdateItem(ctx, s.collection, id, map[string]interface{}{"stock": newStock}); err != nil {
			return 0, err
		}
		entry := model.TransactionLog{
			ItemID:   id,
			ItemName: item.Name,
			Type:     direction,
			Quantity: quantity,
			Reason:   reason,
			Notes:    notes,
			User:     s.user,
			OldStock: item.Stock,
			NewStock: newStock,
		}
		if _, err := s.remote.CreateLog(ctx, s.logCollection, entry); err != nil {
			return 0, err
		}
		if err := s.queue.SetCacheStock(ctx, id, newStock); err != nil {
			return 0, err
		}
		return newStock, nil
	}

	if err := s.queue.SetCacheStock(ctx, id, newStock); err != nil {
		return 0, err
	}

	payload, err := json.Marshal(model.StockAdjustPayload{
		NewStock:  newStock,
		OldStock:  item.Stock,
		Quantity:  quantity,
		Direction: direction,
		Reason:    reason,
		Notes:     notes,
		ItemName:  item.Name,
		User:      s.user,
	})
	if err != nil {
		return 0, fmt.Errorf("encode stock payload: %w", err)
	}
	change := model.PendingChange{
		ID:         uid.New(),
		Type:       model.ChangeStockAdjust,
		Collection: s.collection,
		ItemID:     id,
		Payload:    payload,
	}
	if err := s.enqueue(ctx, change); err != nil {
		return 0, err
	}
	return newStock, nil
}

// ListItems returns the inventory. Online reads come from the remote store
// and refresh the cache; offline reads come from the cache. A failing
// online read falls back to the cache instead of erroring.
func (s *InventoryService) ListItems(ctx context.Context) ([]model.Item, error) {
	if s.online() {
		items, err := s.remote.ListItems(ctx, s.collection)
		if err != nil {
			log.Printf("[Inventory] Online read failed, serving cache: %v", err)
			return s.queue.LoadCache(ctx)
		}
		if err := s.queue.ReplaceCache(ctx, items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return s.queue.LoadCache(ctx)
}

// GetItem returns a single item from the cached snapshot.
func (s *InventoryService) GetItem(ctx context.Context, id string) (model.Item, error) {
	item, found, err := s.queue.GetCacheEntry(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	if !found {
		return model.Item{}, ErrNotFound
	}
	return item, nil
}

// Watch exposes the remote live subscription. The read path deliberately
// bypasses the sync core: live data when online, cached data otherwise.
func (s *InventoryService) Watch(ctx context.Context) (<-chan []model.Item, error) {
	if s.remote == nil {
		return nil, errors.New("remote store unavailable")
	}
	return s.remote.Subscribe(ctx, s.collection)
}
