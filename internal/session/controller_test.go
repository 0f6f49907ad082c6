package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"borneostock-sync/internal/connectivity"
	"borneostock-sync/internal/model"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/store"
	"borneostock-sync/internal/syncer"
)

// blockingRemote counts item creations and can hold every create until
// released, to observe in-progress drains.
type blockingRemote struct {
	mu      sync.Mutex
	creates int
	fail    error
	block   chan struct{}
}

func (r *blockingRemote) CreateItem(ctx context.Context, collection string, item model.Item, dedupeKey string) (string, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return "", r.fail
	}
	r.creates++
	return "srv-1", nil
}

func (r *blockingRemote) UpdateItem(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	return nil
}

func (r *blockingRemote) DeleteItem(ctx context.Context, collection, id string) error { return nil }

func (r *blockingRemote) CreateLog(ctx context.Context, collection string, entry model.TransactionLog) (string, error) {
	return "log-1", nil
}

func (r *blockingRemote) ListItems(ctx context.Context, collection string) ([]model.Item, error) {
	return nil, nil
}

func (r *blockingRemote) Subscribe(ctx context.Context, collection string) (<-chan []model.Item, error) {
	ch := make(chan []model.Item)
	close(ch)
	return ch, nil
}

func (r *blockingRemote) Ping(ctx context.Context) error { return nil }

func (r *blockingRemote) Close(ctx context.Context) error { return nil }

func (r *blockingRemote) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func newTestController(t *testing.T) (*Controller, *blockingRemote, *queue.Manager, *connectivity.Monitor) {
	t.Helper()
	remote := &blockingRemote{}
	q := queue.NewManager(store.NewMemoryStore())
	monitor := connectivity.NewMonitor(nil, 0)
	engine := syncer.NewEngine(remote, q, syncer.Config{})
	c := NewController(q, engine, monitor, 0)
	return c, remote, q, monitor
}

func enqueueAdd(t *testing.T, q *queue.Manager, changeID, name string) {
	t.Helper()
	payload, _ := json.Marshal(model.Item{Name: name})
	err := q.Enqueue(context.Background(), model.PendingChange{
		ID:         changeID,
		Type:       model.ChangeAdd,
		Collection: "inventory",
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTriggerSyncIsNoOpWhileOffline(t *testing.T) {
	c, remote, q, monitor := newTestController(t)
	ctx := context.Background()

	enqueueAdd(t, q, "c1", "LCD")
	monitor.SetOnline(false)

	result, err := c.TriggerSync(ctx)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if result.Succeeded != 0 || remote.createCount() != 0 {
		t.Errorf("offline trigger touched the remote: %+v", result)
	}
	if n, _ := q.Count(ctx); n != 1 {
		t.Errorf("queue drained while offline")
	}
}

func TestTriggerSyncIsNoOpOnEmptyQueue(t *testing.T) {
	c, remote, _, _ := newTestController(t)

	result, err := c.TriggerSync(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if result.Succeeded != 0 || remote.createCount() != 0 {
		t.Errorf("empty-queue trigger did work: %+v", result)
	}
}

func TestTriggerSyncDrainsAndUpdatesState(t *testing.T) {
	c, remote, q, monitor := newTestController(t)
	ctx := context.Background()

	monitor.SetOnline(false)
	enqueueAdd(t, q, "c1", "LCD")
	enqueueAdd(t, q, "c2", "Battery")
	monitor.SetOnline(true)

	result, err := c.TriggerSync(ctx)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if remote.createCount() != 2 {
		t.Errorf("remote creates = %d, want 2", remote.createCount())
	}

	st := c.Status()
	if st.PendingChanges != 0 {
		t.Errorf("pending = %d after clean drain", st.PendingChanges)
	}
	if st.LastSyncAt == nil {
		t.Error("last sync time not recorded")
	}
	if monitor.HasBacklog() {
		t.Error("backlog not cleared after clean drain")
	}
}

func TestFailedDrainKeepsBacklog(t *testing.T) {
	c, remote, q, monitor := newTestController(t)
	ctx := context.Background()

	monitor.SetOnline(false)
	enqueueAdd(t, q, "c1", "LCD")
	monitor.SetOnline(true)
	remote.fail = errors.New("unavailable")

	result, err := c.TriggerSync(ctx)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !monitor.HasBacklog() {
		t.Error("backlog cleared despite a failed change")
	}
	if st := c.Status(); st.PendingChanges != 1 {
		t.Errorf("pending = %d, want 1", st.PendingChanges)
	}
}

func TestConcurrentTriggersRunOneDrain(t *testing.T) {
	c, remote, q, _ := newTestController(t)
	ctx := context.Background()

	remote.block = make(chan struct{})
	enqueueAdd(t, q, "c1", "LCD")

	done := make(chan model.SyncResult, 1)
	go func() {
		result, _ := c.TriggerSync(ctx)
		done <- result
	}()

	waitFor(t, func() bool { return c.Status().IsSyncing }, "first drain never started")

	// Second trigger while the first is mid-drain is dropped.
	result, err := c.TriggerSync(ctx)
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 0 {
		t.Fatalf("second trigger did work: %+v", result)
	}

	close(remote.block)
	first := <-done
	if first.Succeeded != 1 {
		t.Fatalf("first drain result = %+v", first)
	}
	if remote.createCount() != 1 {
		t.Errorf("creates = %d, want exactly 1", remote.createCount())
	}
	if c.Status().IsSyncing {
		t.Error("syncing flag stuck after drain")
	}
}

func TestReconnectTriggersAutoSync(t *testing.T) {
	c, remote, q, monitor := newTestController(t)

	c.Start(context.Background())
	defer c.Stop()

	// Work queued during an outage...
	monitor.SetOnline(false)
	enqueueAdd(t, q, "c1", "LCD")
	enqueueAdd(t, q, "c2", "Battery")

	// ...drains by itself when the connection returns.
	monitor.SetOnline(true)

	waitFor(t, func() bool {
		n, _ := q.Count(context.Background())
		return n == 0
	}, "auto-sync never drained the queue")

	if remote.createCount() != 2 {
		t.Errorf("creates = %d, want 2", remote.createCount())
	}
	waitFor(t, func() bool { return !monitor.HasBacklog() }, "backlog not cleared by auto-sync")
}

func TestRefreshPendingCount(t *testing.T) {
	c, _, q, _ := newTestController(t)
	ctx := context.Background()

	enqueueAdd(t, q, "c1", "LCD")
	n, err := c.RefreshPendingCount(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n != 1 || c.Status().PendingChanges != 1 {
		t.Errorf("pending count not refreshed: n=%d status=%+v", n, c.Status())
	}
}
