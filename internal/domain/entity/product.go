package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
	ProductStatusDeleted  ProductStatus = "deleted"
)

// Product is the catalog view the cart needs: live price, display name and stock.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Status    ProductStatus   `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p *Product) IsAvailable() bool {
	return p != nil && p.Status == ProductStatusActive
}
