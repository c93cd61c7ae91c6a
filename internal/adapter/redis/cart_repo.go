package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

// cartRepository stores each cart as a hash: one field per product id holding
// the JSON line item, plus the reserved metadata field.
type cartRepository struct {
	client *redis.Client
}

func NewCartRepository(client *redis.Client) repository.CartRepository {
	return &cartRepository{
		client: client,
	}
}

func (r *cartRepository) Load(ctx context.Context, key string) (*entity.Cart, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeError("load", key, err)
	}

	cart := entity.NewCart(key)
	for field, raw := range fields {
		if field == entity.MetadataField {
			// Undecodable metadata is dropped; the next mutation rewrites it.
			var meta entity.Metadata
			if err := json.Unmarshal([]byte(raw), &meta); err == nil {
				cart.Metadata = &meta
			}
			continue
		}

		item, err := decodeLineItem(field, raw)
		if err != nil {
			cart.Corrupt = append(cart.Corrupt, field)
			continue
		}
		cart.Items[field] = item
	}
	sort.Strings(cart.Corrupt)
	return cart, nil
}

// decodeLineItem rejects values that do not hold a usable line, including
// non-positive quantities.
func decodeLineItem(field, raw string) (*entity.LineItem, error) {
	var item entity.LineItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w: %v", field, repository.ErrCorruptRecord, err)
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("item %s has quantity %d: %w", field, item.Quantity, repository.ErrCorruptRecord)
	}
	item.ProductID = field
	return &item, nil
}

func (r *cartRepository) Apply(ctx context.Context, write repository.CartWrite) error {
	values := make([]interface{}, 0, 2*(len(write.Upserts)+1))
	for _, item := range write.Upserts {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal item %s of cart %s: %w", item.ProductID, write.Key, err)
		}
		values = append(values, item.ProductID, data)
	}
	if write.Metadata != nil {
		data, err := json.Marshal(write.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata of cart %s: %w", write.Key, err)
		}
		values = append(values, entity.MetadataField, data)
	}

	if len(values) == 0 && len(write.Removals) == 0 && len(write.Drop) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(write.Removals) > 0 {
			pipe.HDel(ctx, write.Key, write.Removals...)
		}
		if len(values) > 0 {
			pipe.HSet(ctx, write.Key, values...)
		}
		if write.TTL > 0 {
			pipe.Expire(ctx, write.Key, write.TTL)
		}
		if len(write.Drop) > 0 {
			pipe.Del(ctx, write.Drop...)
		}
		return nil
	})
	if err != nil {
		return storeError("write", write.Key, err)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return storeError("delete", key, err)
	}
	return nil
}

func storeError(action, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to %s cart %s: %w", action, key, err)
	}
	return fmt.Errorf("failed to %s cart %s: %w: %w", action, key, entity.ErrStoreUnavailable, err)
}
