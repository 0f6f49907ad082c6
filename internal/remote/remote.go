// Package remote defines the contract the sync core requires from the cloud
// document database: document CRUD with server-assigned timestamps and a
// change-stream subscription. The database's query engine and consistency
// model are its own business.
package remote

import (
	"context"
	"errors"

	"borneostock-sync/internal/model"
)

// ErrNotFound is returned when a targeted document does not exist remotely.
var ErrNotFound = errors.New("remote document not found")

// Store is the remote document database boundary. All methods may fail with
// transport or permission errors, which the sync engine catches per change.
type Store interface {
	// CreateItem creates a new document and returns its server-assigned
	// identifier. dedupeKey is a client-generated token stored with the
	// document; creating twice with the same key returns the identifier of
	// the first document instead of duplicating it.
	CreateItem(ctx context.Context, collection string, item model.Item, dedupeKey string) (string, error)

	// UpdateItem patches an existing document with the given fields and
	// refreshes its server-assigned update timestamp.
	UpdateItem(ctx context.Context, collection, id string, patch map[string]interface{}) error

	// DeleteItem deletes a document. Deleting a missing document succeeds.
	DeleteItem(ctx context.Context, collection, id string) error

	// CreateLog creates a transaction-log document with a server-assigned
	// timestamp and returns its identifier.
	CreateLog(ctx context.Context, collection string, entry model.TransactionLog) (string, error)

	// ListItems returns every document in the collection.
	ListItems(ctx context.Context, collection string) ([]model.Item, error)

	// Subscribe streams full-result-set snapshots of the collection: one
	// snapshot immediately, then one after every remote change. The stream
	// ends when ctx is cancelled.
	Subscribe(ctx context.Context, collection string) (<-chan []model.Item, error)

	// Ping verifies the remote store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}

// ItemPatch builds the field patch an update change applies remotely.
// Identifier and server-assigned timestamps are never part of a patch.
func ItemPatch(item model.Item) map[string]interface{} {
	return map[string]interface{}{
		"name":         item.Name,
		"brand":        item.Brand,
		"model":        item.Model,
		"category":     item.Category,
		"quality":      item.Quality,
		"location":     item.Location,
		"barcode":      item.Barcode,
		"stock":        item.Stock,
		"price_buy":    item.PriceBuy.String(),
		"price_sell":   item.PriceSell.String(),
		"parent_id":    item.ParentID,
		"variants":     item.Variants,
		"variant_name": item.VariantName,
		"is_parent":    item.IsParentFlg,
	}
}
