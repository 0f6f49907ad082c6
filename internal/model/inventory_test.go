package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr error
	}{
		{
			name: "valid",
			item: Item{Name: "LCD iPhone 11", Stock: 10},
		},
		{
			name: "valid with prices",
			item: Item{Name: "Battery", Stock: 0, PriceBuy: decimal.NewFromInt(150000), PriceSell: decimal.NewFromInt(250000)},
		},
		{
			name:    "missing name",
			item:    Item{Stock: 1},
			wantErr: ErrNameRequired,
		},
		{
			name:    "negative stock",
			item:    Item{Name: "x", Stock: -1},
			wantErr: ErrNegativeStock,
		},
		{
			name:    "negative price",
			item:    Item{Name: "x", PriceSell: decimal.NewFromInt(-1)},
			wantErr: ErrNegativePrice,
		},
		{
			name:    "parent and variant at once",
			item:    Item{Name: "x", ParentID: "p1", Variants: []string{"v1"}},
			wantErr: ErrParentVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemParentVariantRoles(t *testing.T) {
	parent := Item{Name: "LCD", Variants: []string{"v1", "v2"}}
	if !parent.IsParent() || parent.IsVariant() {
		t.Errorf("parent roles wrong: IsParent=%v IsVariant=%v", parent.IsParent(), parent.IsVariant())
	}

	variant := Item{Name: "LCD Original", ParentID: "p1"}
	if variant.IsParent() || !variant.IsVariant() {
		t.Errorf("variant roles wrong: IsParent=%v IsVariant=%v", variant.IsParent(), variant.IsVariant())
	}

	plain := Item{Name: "Battery"}
	if plain.IsParent() || plain.IsVariant() {
		t.Error("standalone item misclassified")
	}
}

func TestChangeTypeValid(t *testing.T) {
	for _, typ := range []ChangeType{ChangeAdd, ChangeUpdate, ChangeDelete, ChangeStockAdjust} {
		if !typ.Valid() {
			t.Errorf("%q reported invalid", typ)
		}
	}
	for _, typ := range []ChangeType{"", "replace", "ADD"} {
		if typ.Valid() {
			t.Errorf("%q reported valid", typ)
		}
	}
}

func TestPayloadDecodeErrors(t *testing.T) {
	c := PendingChange{ID: "c1", Payload: []byte("{not json")}
	if _, err := c.ItemPayload(); err == nil {
		t.Error("ItemPayload accepted malformed JSON")
	}
	if _, err := c.StockPayload(); err == nil {
		t.Error("StockPayload accepted malformed JSON")
	}
}
