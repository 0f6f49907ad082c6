package service

import (
	"context"
	"errors"
	"testing"

	"borneostock-sync/internal/connectivity"
	"borneostock-sync/internal/model"
	"borneostock-sync/internal/queue"
	"borneostock-sync/internal/session"
	"borneostock-sync/internal/store"
	"borneostock-sync/internal/syncer"
	"borneostock-sync/pkg/uid"
)

// The service under test runs with no remote store at all, so every mutation
// takes the offline path. The sync-engine side of the contract is covered in
// the syncer package tests.
func newOfflineService(t *testing.T) (*InventoryService, *queue.Manager) {
	t.Helper()
	q := queue.NewManager(store.NewMemoryStore())
	monitor := connectivity.NewMonitor(nil, 0)
	engine := syncer.NewEngine(nil, q, syncer.Config{})
	sess := session.NewController(q, engine, monitor, 0)
	svc := NewInventoryService(q, nil, monitor, sess, Config{})
	return svc, q
}

func seedCache(t *testing.T, q *queue.Manager, item model.Item) {
	t.Helper()
	if err := q.UpsertCacheEntry(context.Background(), item); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func TestAddItemOfflineQueuesAndCaches(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	created, err := svc.AddItem(ctx, model.Item{Name: "LCD iPhone 11", Stock: 10})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !uid.IsLocal(created.ID) {
		t.Errorf("offline add did not assign a local placeholder ID: %q", created.ID)
	}

	// Visible immediately from the cache.
	items, err := svc.ListItems(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "LCD iPhone 11" {
		t.Fatalf("cache after offline add = %+v", items)
	}

	// And one add change is queued for the sync engine.
	changes, _ := q.ListPending(ctx)
	if len(changes) != 1 || changes[0].Type != model.ChangeAdd {
		t.Fatalf("queue after offline add = %+v", changes)
	}
	payload, err := changes[0].ItemPayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Name != "LCD iPhone 11" {
		t.Errorf("queued payload = %+v", payload)
	}
}

func TestAddItemRejectsInvalid(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	cases := []model.Item{
		{Name: "", Stock: 1},
		{Name: "x", Stock: -1},
	}
	for _, item := range cases {
		if _, err := svc.AddItem(ctx, item); err == nil {
			t.Errorf("add accepted invalid item %+v", item)
		}
	}
	if n, _ := q.Count(ctx); n != 0 {
		t.Errorf("invalid adds were enqueued: %d", n)
	}
}

func TestUpdateItemOffline(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{ID: "srv-1", Name: "LCD", Stock: 3})

	updated, err := svc.UpdateItem(ctx, "srv-1", model.Item{Name: "LCD Original", Stock: 3})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "srv-1" {
		t.Errorf("updated.ID = %q", updated.ID)
	}

	cached, _, _ := q.GetCacheEntry(ctx, "srv-1")
	if cached.Name != "LCD Original" {
		t.Errorf("cache not updated optimistically: %+v", cached)
	}

	changes, _ := q.ListPending(ctx)
	if len(changes) != 1 || changes[0].Type != model.ChangeUpdate || changes[0].ItemID != "srv-1" {
		t.Fatalf("queue after offline update = %+v", changes)
	}
}

func TestDeleteParentWithVariantsIsRejected(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{
		ID:          "parent-1",
		Name:        "LCD iPhone 11",
		IsParentFlg: true,
		Variants:    []string{"v1", "v2"},
	})

	err := svc.DeleteItem(ctx, "parent-1")
	if !errors.Is(err, ErrHasVariants) {
		t.Fatalf("delete parent: err = %v, want ErrHasVariants", err)
	}

	// Nothing queued, nothing removed.
	if n, _ := q.Count(ctx); n != 0 {
		t.Errorf("rejected delete was enqueued")
	}
	if _, found, _ := q.GetCacheEntry(ctx, "parent-1"); !found {
		t.Error("rejected delete removed the cache entry")
	}
}

func TestDeleteItemOffline(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{ID: "srv-1", Name: "Battery"})

	if err := svc.DeleteItem(ctx, "srv-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, found, _ := q.GetCacheEntry(ctx, "srv-1"); found {
		t.Error("item still cached after offline delete")
	}
	changes, _ := q.ListPending(ctx)
	if len(changes) != 1 || changes[0].Type != model.ChangeDelete || changes[0].ItemID != "srv-1" {
		t.Fatalf("queue after offline delete = %+v", changes)
	}
}

func TestAdjustStockOffline(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{ID: "srv-1", Name: "Flexkabel", Stock: 10})

	newStock, err := svc.AdjustStock(ctx, "srv-1", -3, "Penjualan", "")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if newStock != 7 {
		t.Errorf("new stock = %d, want 7", newStock)
	}

	cached, _, _ := q.GetCacheEntry(ctx, "srv-1")
	if cached.Stock != 7 {
		t.Errorf("cache stock = %d, want 7", cached.Stock)
	}

	changes, _ := q.ListPending(ctx)
	if len(changes) != 1 || changes[0].Type != model.ChangeStockAdjust {
		t.Fatalf("queue after adjust = %+v", changes)
	}
	p, err := changes[0].StockPayload()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	// The payload carries the absolute result, not the delta.
	if p.NewStock != 7 || p.OldStock != 10 || p.Quantity != 3 || p.Direction != model.TxTypeOut {
		t.Errorf("stock payload = %+v", p)
	}
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{ID: "srv-1", Name: "Flexkabel", Stock: 2})

	_, err := svc.AdjustStock(ctx, "srv-1", -5, "Penjualan", "")
	if !errors.Is(err, ErrStockNegative) {
		t.Fatalf("err = %v, want ErrStockNegative", err)
	}

	// Rejected before anything was written or queued.
	cached, _, _ := q.GetCacheEntry(ctx, "srv-1")
	if cached.Stock != 2 {
		t.Errorf("cache stock changed by rejected adjustment: %d", cached.Stock)
	}
	if n, _ := q.Count(ctx); n != 0 {
		t.Errorf("rejected adjustment was enqueued")
	}
}

func TestAdjustStockRejectsZeroAndUnknown(t *testing.T) {
	svc, _ := newOfflineService(t)
	ctx := context.Background()

	if _, err := svc.AdjustStock(ctx, "srv-1", 0, "x", ""); !errors.Is(err, ErrNoAdjustment) {
		t.Errorf("zero adjustment: err = %v", err)
	}
	if _, err := svc.AdjustStock(ctx, "ghost", 1, "x", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown item: err = %v", err)
	}
}

func TestGetItem(t *testing.T) {
	svc, q := newOfflineService(t)
	ctx := context.Background()

	seedCache(t, q, model.Item{ID: "srv-1", Name: "LCD"})

	item, err := svc.GetItem(ctx, "srv-1")
	if err != nil || item.Name != "LCD" {
		t.Fatalf("get: %+v, %v", item, err)
	}
	if _, err := svc.GetItem(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown item: err = %v", err)
	}
}

func TestWatchWithoutRemoteFails(t *testing.T) {
	svc, _ := newOfflineService(t)
	if _, err := svc.Watch(context.Background()); err == nil {
		t.Fatal("expected error when no remote store is configured")
	}
}
