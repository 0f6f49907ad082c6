package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeType identifies the kind of mutation a pending change carries.
type ChangeType string

// Supported change types.
const (
	ChangeAdd         ChangeType = "add"
	ChangeUpdate      ChangeType = "update"
	ChangeDelete      ChangeType = "delete"
	ChangeStockAdjust ChangeType = "stock_adjust"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeAdd, ChangeUpdate, ChangeDelete, ChangeStockAdjust:
		return true
	}
	return false
}

// PendingChange represents one mutation recorded while offline that has not
// been confirmed against the remote store. It stays in the durable queue until
// its remote application succeeds.
type PendingChange struct {
	ID         string          `json:"id"`
	Type       ChangeType      `json:"type"`
	Collection string          `json:"collection"`
	// ItemID is the target record identifier. Empty for add changes, where
	// the remote store assigns the identifier on creation.
	ItemID   string          `json:"item_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	QueuedAt time.Time       `json:"queued_at"`

	// Retry bookkeeping. A change that keeps failing is marked exhausted
	// after a configured number of attempts and skipped by later drains
	// instead of being retried forever.
	Attempts  int    `json:"attempts,omitempty"`
	LastError string `json:"last_error,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// ItemPayload decodes the change payload as an inventory item.
// Used for add and update changes.
func (c *PendingChange) ItemPayload() (Item, error) {
	var item Item
	if err := json.Unmarshal(c.Payload, &item); err != nil {
		return Item{}, fmt.Errorf("decode item payload for change %s: %w", c.ID, err)
	}
	return item, nil
}

// StockPayload decodes the change payload as a stock adjustment.
func (c *PendingChange) StockPayload() (StockAdjustPayload, error) {
	var p StockAdjustPayload
	if err := json.Unmarshal(c.Payload, &p); err != nil {
		return StockAdjustPayload{}, fmt.Errorf("decode stock payload for change %s: %w", c.ID, err)
	}
	return p, nil
}

// StockAdjustPayload carries a precomputed stock adjustment. NewStock is the
// absolute target value, not a delta, so replaying the change is safe.
type StockAdjustPayload struct {
	NewStock  int    `json:"new_stock"`
	OldStock  int    `json:"old_stock"`
	Quantity  int    `json:"quantity"`
	Direction string `json:"direction"` // "in" or "out"
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
	ItemName  string `json:"item_name,omitempty"`
	User      string `json:"user,omitempty"`
}

// ChangeError records one failed change application during a drain.
type ChangeError struct {
	ChangeID string     `json:"change_id"`
	Type     ChangeType `json:"type"`
	ItemID   string     `json:"item_id,omitempty"`
	Err      string     `json:"error"`
}

// SyncResult summarizes one drain pass over the pending queue.
type SyncResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Errors    []ChangeError `json:"errors,omitempty"`
}
