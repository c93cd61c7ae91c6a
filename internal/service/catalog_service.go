package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

const (
	defaultProductCacheTTL = 5 * time.Minute
)

// ProductLookup resolves product ids against the live catalog. Products that
// are missing or no longer active resolve to entity.ErrProductNotFound.
type ProductLookup interface {
	Lookup(ctx context.Context, productID string) (*entity.Product, error)
	Invalidate(ctx context.Context, productID string) error
}

type CatalogServiceConfig struct {
	ProductCacheTTL time.Duration
}

type catalogService struct {
	products        repository.ProductRepository
	productCache    repository.ProductDetailCache
	log             logger.Logger
	productCacheTTL time.Duration
}

func NewCatalogService(
	products repository.ProductRepository,
	productCache repository.ProductDetailCache,
	log logger.Logger,
	cfg CatalogServiceConfig,
) ProductLookup {
	productCacheTTL := cfg.ProductCacheTTL
	if productCacheTTL <= 0 {
		productCacheTTL = defaultProductCacheTTL
	}
	return &catalogService{
		products:        products,
		productCache:    productCache,
		log:             log,
		productCacheTTL: productCacheTTL,
	}
}

func (s *catalogService) Lookup(ctx context.Context, productID string) (*entity.Product, error) {
	product, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsAvailable() {
		s.log.Debugf("Product %s has status %q and cannot be sold", productID, product.Status)
		return nil, fmt.Errorf("%w: %s is %s", entity.ErrProductNotFound, productID, product.Status)
	}
	return product, nil
}

func (s *catalogService) load(ctx context.Context, productID string) (*entity.Product, error) {
	cached, cacheErr := s.productCache.Get(ctx, productID)
	if cacheErr == nil && cached != nil {
		s.log.Debugf("Product %s found in cache", productID)
		return cached, nil
	}
	if cacheErr != nil && !errors.Is(cacheErr, repository.ErrNotFound) {
		s.log.Warnf("Error getting product %s from cache: %v. Fetching from catalog.", productID, cacheErr)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", entity.ErrProductNotFound, productID)
		}
		s.log.Errorf("Failed to get product %s from catalog: %v", productID, err)
		return nil, fmt.Errorf("could not load product %s: %w", productID, err)
	}

	if errSet := s.productCache.Set(ctx, product, s.productCacheTTL); errSet != nil {
		s.log.Warnf("Failed to set product %s to cache: %v", productID, errSet)
	}
	return product, nil
}

func (s *catalogService) Invalidate(ctx context.Context, productID string) error {
	if err := s.productCache.Delete(ctx, productID); err != nil {
		return fmt.Errorf("could not invalidate product %s: %w", productID, err)
	}
	return nil
}
