package cart

import (
	"github.com/shopspring/decimal"
)

// StorageKey is the storage key holding the serialized line-item sequence.
const StorageKey = "unseelie_cart"

// LineItem is one product entry in the cart. Empty optional strings (Thumb,
// Size, StripePriceID) stand for absent values.
type LineItem struct {
	ID              string
	Name            string
	Collection      string
	CollectionLabel string
	Price           string
	PriceNum        decimal.Decimal
	Thumb           string
	Size            string
	StripePriceID   string
	Qty             int
}

// Purchasable reports whether the item carries a price reference the payment
// provider can charge.
func (i LineItem) Purchasable() bool {
	return i.StripePriceID != ""
}

// Total returns PriceNum × Qty.
func (i LineItem) Total() decimal.Decimal {
	return i.PriceNum.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// Product describes what the product page hands to Store.Add.
type Product struct {
	ID              string
	Name            string
	Collection      string
	CollectionLabel string
	Price           string
	PriceNum        decimal.Decimal
	Thumb           string
	Size            string
	StripePriceID   string
}

func newLineItem(p Product) LineItem {
	return LineItem{
		ID:              p.ID,
		Name:            p.Name,
		Collection:      p.Collection,
		CollectionLabel: p.CollectionLabel,
		Price:           p.Price,
		PriceNum:        p.PriceNum,
		Thumb:           p.Thumb,
		Size:            p.Size,
		StripePriceID:   p.StripePriceID,
		Qty:             1,
	}
}
