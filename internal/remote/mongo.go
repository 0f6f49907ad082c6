package remote

import (
	"context"
	"fmt"
	"log"
	"time"

	"borneostock-sync/internal/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and prepares the dedupe index on the
// items collection.
func NewMongoStore(uri, database, itemsCollection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)

	// Unique sparse index on client_ref makes offline-created adds
	// deduplicable across retries.
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "client_ref", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}
	if _, err := db.Collection(itemsCollection).Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Printf("[MongoStore] Warning: failed to create client_ref index: %v", err)
	}

	log.Printf("[MongoStore] Connected to %s/%s", database, itemsCollection)
	return &MongoStore{client: client, db: db}, nil
}

// itemDoc is the wire shape of an inventory item. Prices travel as strings so
// the decimal values survive the BSON boundary exactly.
type itemDoc struct {
	ID          string    `bson:"_id,omitempty"`
	ClientRef   string    `bson:"client_ref,omitempty"`
	Name        string    `bson:"name,omitempty"`
	Brand       string    `bson:"brand,omitempty"`
	Model       string    `bson:"model,omitempty"`
	Category    string    `bson:"category,omitempty"`
	Quality     string    `bson:"quality,omitempty"`
	Location    string    `bson:"location,omitempty"`
	Barcode     string    `bson:"barcode,omitempty"`
	Stock       int       `bson:"stock"`
	PriceBuy    string    `bson:"price_buy,omitempty"`
	PriceSell   string    `bson:"price_sell,omitempty"`
	CreatedAt   time.Time `bson:"created_at,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at,omitempty"`
	ParentID    string    `bson:"parent_id,omitempty"`
	Variants    []string  `bson:"variants,omitempty"`
	VariantName string    `bson:"variant_name,omitempty"`
	IsParent    bool      `bson:"is_parent,omitempty"`
}

func docFromItem(item model.Item) itemDoc {
	return itemDoc{
		Name:        item.Name,
		Brand:       item.Brand,
		Model:       item.Model,
		Category:    item.Category,
		Quality:     item.Quality,
		Location:    item.Location,
		Barcode:     item.Barcode,
		Stock:       item.Stock,
		PriceBuy:    item.PriceBuy.String(),
		PriceSell:   item.PriceSell.String(),
		ParentID:    item.ParentID,
		Variants:    item.Variants,
		VariantName: item.VariantName,
		IsParent:    item.IsParentFlg,
	}
}

func itemFromDoc(doc itemDoc) model.Item {
	priceBuy, err := decimal.NewFromString(doc.PriceBuy)
	if err != nil {
		priceBuy = decimal.Zero
	}
	priceSell, err := decimal.NewFromString(doc.PriceSell)
	if err != nil {
		priceSell = decimal.Zero
	}
	return model.Item{
		ID:          doc.ID,
		Name:        doc.Name,
		Brand:       doc.Brand,
		Model:       doc.Model,
		Category:    doc.Category,
		Quality:     doc.Quality,
		Location:    doc.Location,
		Barcode:     doc.Barcode,
		Stock:       doc.Stock,
		PriceBuy:    priceBuy,
		PriceSell:   priceSell,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		ParentID:    doc.ParentID,
		Variants:    doc.Variants,
		VariantName: doc.VariantName,
		IsParentFlg: doc.IsParent,
	}
}

// CreateItem creates a new document, or returns the identifier of the
// document already created under the same dedupe key. Timestamps are
// assigned by the server.
func (s *MongoStore) CreateItem(ctx context.Context, collection string, item model.Item, dedupeKey string) (string, error) {
	coll := s.db.Collection(collection)

	doc := docFromItem(item)
	doc.ID = primitive.NewObjectID().Hex()
	doc.ClientRef = dedupeKey

	filter := bson.M{"client_ref": dedupeKey}
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}

	if res.UpsertedID == nil {
		// Replay of an already-applied add; return the existing identifier.
		var existing itemDoc
		if err := coll.FindOne(ctx, filter).Decode(&existing); err != nil {
			return "", fmt.Errorf("failed to resolve deduplicated item: %w", err)
		}
		return existing.ID, nil
	}

	timestamps := bson.M{"$currentDate": bson.M{"created_at": true, "updated_at": true}}
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, timestamps); err != nil {
		return "", fmt.Errorf("failed to stamp created item: %w", err)
	}
	return doc.ID, nil
}

// UpdateItem patches an existing document and refreshes its update timestamp.
func (s *MongoStore) UpdateItem(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}

	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updated_at": true},
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update item %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteItem deletes a document. A missing document is treated as success,
// so delete replays are harmless.
func (s *MongoStore) DeleteItem(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// CreateLog creates a transaction-log document with a server-assigned
// timestamp.
func (s *MongoStore) CreateLog(ctx context.Context, collection string, entry model.TransactionLog) (string, error) {
	coll := s.db.Collection(collection)

	id := primitive.NewObjectID().Hex()
	doc := bson.M{
		"_id":       id,
		"item_id":   entry.ItemID,
		"item_name": entry.ItemName,
		"type":      entry.Type,
		"quantity":  entry.Quantity,
		"reason":    entry.Reason,
		"notes":     entry.Notes,
		"user":      entry.User,
		"old_stock": entry.OldStock,
		"new_stock": entry.NewStock,
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to create log entry: %w", err)
	}

	stamp := bson.M{"$currentDate": bson.M{"timestamp": true}}
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, stamp); err != nil {
		return "", fmt.Errorf("failed to stamp log entry: %w", err)
	}
	return id, nil
}

// ListItems returns every document in the collection.
func (s *MongoStore) ListItems(ctx context.Context, collection string) ([]model.Item, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []model.Item
	for cursor.Next(ctx) {
		var doc itemDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, itemFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Subscribe streams full-result-set snapshots via a change stream: one
// snapshot immediately, then one after every change to the collection.
func (s *MongoStore) Subscribe(ctx context.Context, collection string) (<-chan []model.Item, error) {
	stream, err := s.db.Collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	out := make(chan []model.Item, 1)

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		send := func() bool {
			items, err := s.ListItems(ctx, collection)
			if err != nil {
				log.Printf("[MongoStore] Subscription snapshot failed: %v", err)
				return true
			}
			select {
			case out <- items:
			case <-ctx.Done():
				return false
			}
			return true
		}

		if !send() {
			return
		}
		for stream.Next(ctx) {
			if !send() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[MongoStore] Change stream ended: %v", err)
		}
	}()

	return out, nil
}

// Ping verifies the connection is alive.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store
var _ Store = (*MongoStore)(nil)
