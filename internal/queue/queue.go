// Package queue manages the durable pending-change queue and the cached
// inventory snapshot. Every mutation of either collection goes through the
// Manager so that the read-full-list / mutate / write-full-list cycle is
// serialized in exactly one place.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"borneostock-sync/internal/model"
	"borneostock-sync/internal/store"
)

// Manager provides enqueue/dequeue operations over the pending-change queue
// and read/upsert/delete helpers over the cached inventory snapshot.
type Manager struct {
	kv store.KV
	mu sync.Mutex
}

// NewManager creates a queue manager on top of a durable KV store.
func NewManager(kv store.KV) *Manager {
	return &Manager{kv: kv}
}

// loadChanges reads the full pending queue in enqueue order.
// Caller must hold m.mu.
func (m *Manager) loadChanges(ctx context.Context) ([]model.PendingChange, error) {
	data, err := m.kv.Get(ctx, store.KeyPendingChanges)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var changes []model.PendingChange
	if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("decode pending changes: %w", err)
	}
	return changes, nil
}

// saveChanges writes the full pending queue. Caller must hold m.mu.
func (m *Manager) saveChanges(ctx context.Context, changes []model.PendingChange) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("encode pending changes: %w", err)
	}
	return m.kv.Set(ctx, store.KeyPendingChanges, data)
}

// Enqueue appends a change to the end of the queue.
func (m *Manager) Enqueue(ctx context.Context, change model.PendingChange) error {
	if !change.Type.Valid() {
		return fmt.Errorf("unknown change type %q", change.Type)
	}
	if change.QueuedAt.IsZero() {
		change.QueuedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changes, err := m.loadChanges(ctx)
	if err != nil {
		return err
	}
	changes = append(changes, change)
	return m.saveChanges(ctx, changes)
}

// ListPending returns the full queue in enqueue order.
func (m *Manager) ListPending(ctx context.Context) ([]model.PendingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadChanges(ctx)
}

// Remove deletes the change with the given ID from the queue.
// Removing an unknown ID is a no-op, not an error.
func (m *Manager) Remove(ctx context.Context, changeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes, err := m.loadChanges(ctx)
	if err != nil {
		return err
	}

	filtered := changes[:0]
	for _, c := range changes {
		if c.ID != changeID {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == len(changes) {
		return nil
	}
	return m.saveChanges(ctx, filtered)
}

// Count returns the number of queued changes.
func (m *Manager) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes, err := m.loadChanges(ctx)
	if err != nil {
		return 0, err
	}
	return len(changes), nil
}

// RecordFailure increments the attempt counter of a change and stores the
// error detail. Once attempts reach maxAttempts the change is marked
// exhausted; it stays in the queue for inspection but later drains skip it.
// Unknown IDs are a no-op.
func (m *Manager) RecordFailure(ctx context.Context, changeID, errMsg string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes, err := m.loadChanges(ctx)
	if err != nil {
		return err
	}

	updated := false
	for i := range changes {
		if changes[i].ID != changeID {
			continue
		}
		changes[i].Attempts++
		changes[i].LastError = errMsg
		if maxAttempts > 0 && changes[i].Attempts >= maxAttempts {
			changes[i].Exhausted = true
		}
		updated = true
		break
	}
	if !updated {
		return nil
	}
	return m.saveChanges(ctx, changes)
}

// loadCache reads the cached inventory snapshot. Caller must hold m.mu.
func (m *Manager) loadCache(ctx context.Context) ([]model.Item, error) {
	data, err := m.kv.Get(ctx, store.KeyInventoryCache)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode inventory cache: %w", err)
	}
	return items, nil
}

// saveCache writes the cached inventory snapshot. Caller must hold m.mu.
func (m *Manager) saveCache(ctx context.Context, items []model.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode inventory cache: %w", err)
	}
	return m.kv.Set(ctx, store.KeyInventoryCache, data)
}

// LoadCache returns the cached inventory snapshot.
func (m *Manager) LoadCache(ctx context.Context) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCache(ctx)
}

// GetCacheEntry returns the cached item with the given ID, or false.
func (m *Manager) GetCacheEntry(ctx context.Context, itemID string) (model.Item, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.loadCache(ctx)
	if err != nil {
		return model.Item{}, false, err
	}
	for _, it := range items {
		if it.ID == itemID {
			return it, true, nil
		}
	}
	return model.Item{}, false, nil
}

// UpsertCacheEntry replaces the cached item with a matching ID, or appends
// the item if absent.
func (m *Manager) UpsertCacheEntry(ctx context.Context, item model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.loadCache(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			found = true
			break
		}
	}
	if !found {
		items = append(items, item)
	}
	return m.saveCache(ctx, items)
}

// RemoveCacheEntry deletes the cached item with the given ID; no-op if absent.
func (m *Manager) RemoveCacheEntry(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.loadCache(ctx)
	if err != nil {
		return err
	}

	filtered := items[:0]
	for _, it := range items {
		if it.ID != itemID {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) == len(items) {
		return nil
	}
	return m.saveCache(ctx, filtered)
}

// SetCacheStock patches only the stock field of a cached item, leaving the
// remaining fields untouched. No-op if the item is not cached.
func (m *Manager) SetCacheStock(ctx context.Context, itemID string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.loadCache(ctx)
	if err != nil {
		return err
	}

	for i := range items {
		if items[i].ID == itemID {
			items[i].Stock = stock
			return m.saveCache(ctx, items)
		}
	}
	return nil
}

// ReplaceCache wholesale-replaces the cached snapshot after a successful
// online read and refreshes the last-sync timestamp.
func (m *Manager) ReplaceCache(ctx context.Context, items []model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.saveCache(ctx, items); err != nil {
		return err
	}
	ts := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	return m.kv.Set(ctx, store.KeyInventoryTimestamp, []byte(ts))
}

// ClearCache removes the cached snapshot and its timestamp. The pending
// queue is deliberately left untouched.
func (m *Manager) ClearCache(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Delete(ctx, store.KeyInventoryCache); err != nil {
		return err
	}
	return m.kv.Delete(ctx, store.KeyInventoryTimestamp)
}

// LastSyncedAt returns when the cache was last replaced by a full online
// read. Returns the zero time if no read ever succeeded.
func (m *Manager) LastSyncedAt(ctx context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.kv.Get(ctx, store.KeyInventoryTimestamp)
	if err != nil {
		return time.Time{}, err
	}
	if len(data) == 0 {
		return time.Time{}, nil
	}

	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode last-sync timestamp: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
