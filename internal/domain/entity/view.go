package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.20")
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingFee       = decimal.RequireFromString("4.99")
)

// CartViewItem is a stored line joined with the live product it references.
type CartViewItem struct {
	LineItem
	Product  *Product        `json:"product"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartView is the read-time representation of a cart. It is never persisted.
type CartView struct {
	Key       string          `json:"-"`
	Items     []CartViewItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Quantity  int             `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
	// Pruned lists product ids dropped from the record during this read
	// because they no longer resolve in the catalog.
	Pruned []string `json:"pruned,omitempty"`
}

func EmptyCartView(key string, now time.Time) *CartView {
	return &CartView{
		Key:       key,
		Items:     make([]CartViewItem, 0),
		Total:     decimal.Zero,
		UpdatedAt: now,
	}
}

// AddItem appends a line priced at the product's current price.
func (v *CartView) AddItem(item LineItem, product *Product) {
	subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	v.Items = append(v.Items, CartViewItem{
		LineItem: item,
		Product:  product,
		Subtotal: subtotal,
	})
	v.Total = v.Total.Add(subtotal)
	v.Quantity += item.Quantity
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals derives tax, shipping and grand total from the view's subtotal.
func ComputeTotals(view *CartView) Totals {
	subtotal := decimal.Zero
	if view != nil {
		subtotal = view.Total
	}

	tax := subtotal.Mul(TaxRate).Round(2)
	shipping := FlatShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
