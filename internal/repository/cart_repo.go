package repository

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

// CartWrite is one mutation of a cart record, applied atomically.
type CartWrite struct {
	Key string
	// Upserts are written as item fields, replacing any previous value.
	Upserts []*entity.LineItem
	// Removals are product ids whose fields are deleted.
	Removals []string
	// Metadata, when set, replaces the record's metadata field.
	Metadata *entity.Metadata
	// TTL > 0 (re)sets the record expiry. Zero leaves the expiry untouched.
	TTL time.Duration
	// Drop lists whole records deleted in the same transaction.
	Drop []string
}

type CartRepository interface {
	// Load returns the record at key. An absent key yields an empty cart with nil metadata.
	// Item fields that cannot be decoded are listed in Cart.Corrupt instead of failing the load.
	Load(ctx context.Context, key string) (*entity.Cart, error)
	Apply(ctx context.Context, write CartWrite) error
	Delete(ctx context.Context, key string) error
}
