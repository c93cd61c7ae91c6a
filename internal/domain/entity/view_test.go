package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func viewWithTotal(total string) *CartView {
	view := EmptyCartView("k", testNow)
	view.Total = decimal.RequireFromString(total)
	return view
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestComputeTotals_BelowFreeShipping(t *testing.T) {
	totals := ComputeTotals(viewWithTotal("40"))

	assertDecimal(t, "40", totals.Subtotal)
	assertDecimal(t, "8.00", totals.Tax)
	assertDecimal(t, "4.99", totals.Shipping)
	assertDecimal(t, "52.99", totals.Total)
}

func TestComputeTotals_FreeShipping(t *testing.T) {
	totals := ComputeTotals(viewWithTotal("60"))

	assertDecimal(t, "12.00", totals.Tax)
	assertDecimal(t, "0", totals.Shipping)
	assertDecimal(t, "72.00", totals.Total)
}

func TestComputeTotals_ThresholdIsInclusive(t *testing.T) {
	totals := ComputeTotals(viewWithTotal("50"))
	assertDecimal(t, "0", totals.Shipping)
	assertDecimal(t, "60", totals.Total)
}

func TestComputeTotals_NilView(t *testing.T) {
	totals := ComputeTotals(nil)
	assertDecimal(t, "0", totals.Subtotal)
	assertDecimal(t, "4.99", totals.Total)
}

func TestCartView_AddItemUsesLivePrice(t *testing.T) {
	view := EmptyCartView("k", testNow)
	item := LineItem{ProductID: "p1", Quantity: 3, Price: decimal.NewFromInt(10)}
	product := &Product{ID: "p1", Price: decimal.RequireFromString("12.50"), Status: ProductStatusActive}

	view.AddItem(item, product)

	assert.Len(t, view.Items, 1)
	assertDecimal(t, "37.50", view.Items[0].Subtotal)
	assertDecimal(t, "37.50", view.Total)
	assert.Equal(t, 3, view.Quantity)
}
