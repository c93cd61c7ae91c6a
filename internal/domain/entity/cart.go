package entity

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MetadataField is the hash field holding cart metadata; it can never be a product id.
const MetadataField = "metadata"

// DefaultMaxLineQuantity caps one line when no limit is configured.
const DefaultMaxLineQuantity = 999

type LineItem struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Variants  map[string]string `json:"variants,omitempty"`
	// Price is the unit price captured when the item was first added.
	// It is kept for audit only; totals always use the live catalog price.
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewLineItem(productID string, quantity int, variants map[string]string, price decimal.Decimal, now time.Time) (*LineItem, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return &LineItem{
		ProductID: productID,
		Quantity:  quantity,
		Variants:  copyVariants(variants),
		Price:     price,
		AddedAt:   now,
		UpdatedAt: now,
	}, nil
}

type Metadata struct {
	UpdatedAt time.Time `json:"updated_at"`
	Owner     *string   `json:"owner"`
	SessionID string    `json:"session_id"`
}

// Cart is one stored cart record: line items keyed by product id plus metadata.
// Metadata is nil for a record that has never been written.
type Cart struct {
	Key      string
	Items    map[string]*LineItem
	Metadata *Metadata
	// Corrupt lists fields that could not be decoded when the record was loaded.
	Corrupt []string
	// MaxQuantity is the per-line limit. Zero means DefaultMaxLineQuantity.
	MaxQuantity int
}

func NewCart(key string) *Cart {
	return &Cart{
		Key:   key,
		Items: make(map[string]*LineItem),
	}
}

func ValidateProductID(productID string) error {
	switch productID {
	case "":
		return ErrEmptyProductID
	case MetadataField:
		return ErrReservedProductID
	}
	return nil
}

func (c *Cart) maxQuantity() int {
	if c.MaxQuantity > 0 {
		return c.MaxQuantity
	}
	return DefaultMaxLineQuantity
}

// fits reports whether adding extra to current stays within the line limit.
// It compares by subtraction so large inputs cannot wrap around.
func (c *Cart) fits(current, extra int) bool {
	return extra <= c.maxQuantity()-current
}

func (c *Cart) GetItem(productID string) (*LineItem, bool) {
	item, ok := c.Items[productID]
	return item, ok
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// SortedItems returns items in the order they were first added.
func (c *Cart) SortedItems() []*LineItem {
	items := make([]*LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items
}

// AddItem increments an existing line or creates a new one priced at price.
// Existing variants are kept: lines are keyed by product id only.
func (c *Cart) AddItem(productID string, quantity int, variants map[string]string, price decimal.Decimal, now time.Time) (*LineItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if item, ok := c.Items[productID]; ok {
		if !c.fits(item.Quantity, quantity) {
			return nil, ErrQuantityLimit
		}
		item.Quantity += quantity
		item.UpdatedAt = now
		return item, nil
	}
	if !c.fits(0, quantity) {
		return nil, ErrQuantityLimit
	}

	item, err := NewLineItem(productID, quantity, variants, price, now)
	if err != nil {
		return nil, err
	}
	c.Items[productID] = item
	return item, nil
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(productID string, quantity int, now time.Time) (*LineItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !c.fits(0, quantity) {
		return nil, ErrQuantityLimit
	}
	item, ok := c.Items[productID]
	if !ok {
		return nil, ErrItemNotFound
	}
	item.Quantity = quantity
	item.UpdatedAt = now
	return item, nil
}

// RemoveItem reports whether a line was present.
func (c *Cart) RemoveItem(productID string) bool {
	if _, ok := c.Items[productID]; !ok {
		return false
	}
	delete(c.Items, productID)
	return true
}

// Touch refreshes metadata for a mutation made by identity.
func (c *Cart) Touch(identity Identity, now time.Time) Metadata {
	meta := Metadata{
		UpdatedAt: now,
		Owner:     identity.Owner(),
		SessionID: identity.SessionID,
	}
	c.Metadata = &meta
	return meta
}

// MergeFrom folds guest lines into c and returns the lines that changed.
// On a collision quantities are summed and c's variants win; other guest
// lines are copied as they are. If any resulting line would exceed the
// limit, c is left untouched and ErrQuantityLimit is returned.
func (c *Cart) MergeFrom(guest *Cart, now time.Time) ([]*LineItem, error) {
	guestItems := guest.SortedItems()
	for _, guestItem := range guestItems {
		current := 0
		if item, ok := c.Items[guestItem.ProductID]; ok {
			current = item.Quantity
		}
		if !c.fits(current, guestItem.Quantity) {
			return nil, fmt.Errorf("merging %s: %w", guestItem.ProductID, ErrQuantityLimit)
		}
	}

	changed := make([]*LineItem, 0, len(guestItems))
	for _, guestItem := range guestItems {
		if item, ok := c.Items[guestItem.ProductID]; ok {
			item.Quantity += guestItem.Quantity
			item.UpdatedAt = now
			changed = append(changed, item)
			continue
		}
		copied := *guestItem
		copied.Variants = copyVariants(guestItem.Variants)
		c.Items[copied.ProductID] = &copied
		changed = append(changed, &copied)
	}
	return changed, nil
}

func copyVariants(variants map[string]string) map[string]string {
	if len(variants) == 0 {
		return nil
	}
	out := make(map[string]string, len(variants))
	for k, v := range variants {
		out[k] = v
	}
	return out
}
