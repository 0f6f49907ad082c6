package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Item represents one stock-keeping unit or a variant of one.
// The ID is assigned by the remote store on creation; items created while
// offline carry a client-generated placeholder until the first successful sync.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	Model     string          `json:"model,omitempty"`
	Category  string          `json:"category,omitempty"`
	Quality   string          `json:"quality,omitempty"`
	Location  string          `json:"location,omitempty"`
	Barcode   string          `json:"barcode,omitempty"`
	Stock     int             `json:"stock"`
	PriceBuy  decimal.Decimal `json:"price_buy"`
	PriceSell decimal.Decimal `json:"price_sell"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`

	// Variant fields. An item with variants is a parent, an item with a
	// parent_id is a variant. An item cannot be both.
	ParentID    string   `json:"parent_id,omitempty"`
	Variants    []string `json:"variants,omitempty"`
	VariantName string   `json:"variant_name,omitempty"`
	IsParentFlg bool     `json:"is_parent,omitempty"`
}

// Validation errors returned by Item.Validate.
var (
	ErrNameRequired  = errors.New("item name is required")
	ErrNegativeStock = errors.New("stock cannot be negative")
	ErrNegativePrice = errors.New("prices cannot be negative")
	ErrParentVariant = errors.New("item cannot be both a parent and a variant")
)

// IsParent reports whether the item has linked variants.
func (i *Item) IsParent() bool {
	return len(i.Variants) > 0
}

// IsVariant reports whether the item belongs to a parent item.
func (i *Item) IsVariant() bool {
	return i.ParentID != ""
}

// Validate checks the item invariants before it is written anywhere.
func (i *Item) Validate() error {
	if i.Name == "" {
		return ErrNameRequired
	}
	if i.Stock < 0 {
		return ErrNegativeStock
	}
	if i.PriceBuy.IsNegative() || i.PriceSell.IsNegative() {
		return ErrNegativePrice
	}
	if i.IsParent() && i.IsVariant() {
		return ErrParentVariant
	}
	return nil
}

// Transaction log entry types.
const (
	TxTypeIn         = "in"
	TxTypeOut        = "out"
	TxTypeAdjustment = "adjustment"
)

// TransactionLog records a single stock movement. Created alongside every
// stock adjustment, both on the direct online path and during sync replay.
type TransactionLog struct {
	ID        string    `json:"id,omitempty"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	User      string    `json:"user,omitempty"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}
