// Package session coordinates connectivity, the pending queue, and the sync
// engine into one process-wide offline session.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"borneostock-sync/internal/connectivity"
	"borneostock-sync/internal/model"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/syncer"
)

// Status is the sync state exposed to the presentation layer.
type Status struct {
	IsOnline       bool       `json:"is_online"`
	IsSyncing      bool       `json:"is_syncing"`
	PendingChanges int        `json:"pending_changes"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
}

// Controller owns the offline session state. One instance per process,
// injected into its consumers; there are no ambient globals.
type Controller struct {
	queue   *queue.Manager
	engine  *syncer.Engine
	monitor *connectivity.Monitor

	drainTimeout time.Duration

	mu       sync.Mutex
	syncing  bool
	pending  int
	lastSync time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewController wires the queue manager, sync engine, and connectivity
// monitor together. drainTimeout bounds one full drain pass; zero means
// no bound beyond the caller's context.
func NewController(q *queue.Manager, engine *syncer.Engine, monitor *connectivity.Monitor, drainTimeout time.Duration) *Controller {
	return &Controller{
		queue:        q,
		engine:       engine,
		monitor:      monitor,
		drainTimeout: drainTimeout,
		stopCh:       make(chan struct{}),
	}
}

// Start performs the initial pending-count refresh and begins reacting to
// reconnect edges with automatic sync passes.
func (c *Controller) Start(ctx context.Context) {
	if _, err := c.RefreshPendingCount(ctx); err != nil {
		log.Printf("[Session] Initial pending count failed: %v", err)
	}

	go func() {
		for {
			select {
			case <-c.monitor.Reconnected():
				log.Printf("[Session] Connection restored, triggering auto-sync")
				if _, err := c.TriggerSync(context.Background()); err != nil {
					log.Printf("[Session] Auto-sync failed: %v", err)
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop ends the reconnect listener.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// TriggerSync runs one drain pass and returns its counters. It is a no-op
// (zero result, nil error) while offline, while another pass is running, or
// when the queue is empty. At most one drain runs at a time; a second
// trigger during a pass is dropped, not queued.
func (c *Controller) TriggerSync(ctx context.Context) (model.SyncResult, error) {
	if !c.monitor.IsOnline() {
		log.Printf("[Session] Cannot sync while offline")
		return model.SyncResult{}, nil
	}

	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		log.Printf("[Session] Sync already in progress")
		return model.SyncResult{}, nil
	}
	c.syncing = true
	c.mu.Unlock()

	// Release on all paths, success or not.
	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	count, err := c.queue.Count(ctx)
	if err != nil {
		return model.SyncResult{}, err
	}
	if count == 0 {
		log.Printf("[Session] No pending changes to sync")
		return model.SyncResult{}, nil
	}

	if c.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.drainTimeout)
		defer cancel()
	}

	result, err := c.engine.DrainQueue(ctx)
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	c.lastSync = time.Now().UTC()
	c.mu.Unlock()

	if _, err := c.RefreshPendingCount(ctx); err != nil {
		log.Printf("[Session] Pending count refresh after sync failed: %v", err)
	}

	if result.Failed == 0 {
		c.monitor.ClearBacklog()
	}
	return result, nil
}

// RefreshPendingCount re-reads the queue length so UI badges stay accurate
// without waiting for the next sync pass.
func (c *Controller) RefreshPendingCount(ctx context.Context) (int, error) {
	count, err := c.queue.Count(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.pending = count
	c.mu.Unlock()
	return count, nil
}

// Status returns a snapshot of the current sync state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		IsOnline:       c.monitor.IsOnline(),
		IsSyncing:      c.syncing,
		PendingChanges: c.pending,
	}
	if !c.lastSync.IsZero() {
		t := c.lastSync
		st.LastSyncAt = &t
	}
	return st
}

// IsOnline reports the current connectivity state.
func (c *Controller) IsOnline() bool {
	return c.monitor.IsOnline()
}
