package repository

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

// ProductRepository reads the storefront catalog. Missing products return ErrNotFound.
type ProductRepository interface {
	GetByID(ctx context.Context, productID string) (*entity.Product, error)
}
