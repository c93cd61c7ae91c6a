package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_Lookup_CacheHit(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{})

	product := activeProduct("p1", "9.99")
	mockCache.On("Get", mock.Anything, "p1").Return(product, nil).Once()

	got, err := lookup.Lookup(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, product, got)
	mockProducts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestCatalogService_Lookup_CacheMissFillsCache(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	ttl := 2 * time.Minute
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{ProductCacheTTL: ttl})

	product := activeProduct("p1", "9.99")
	mockCache.On("Get", mock.Anything, "p1").Return(nil, repository.ErrNotFound).Once()
	mockProducts.On("GetByID", mock.Anything, "p1").Return(product, nil).Once()
	mockCache.On("Set", mock.Anything, product, ttl).Return(nil).Once()

	got, err := lookup.Lookup(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	mockProducts.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestCatalogService_Lookup_CacheErrorsAreNotFatal(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{})

	product := activeProduct("p1", "1")
	mockCache.On("Get", mock.Anything, "p1").Return(nil, errors.New("redis down")).Once()
	mockProducts.On("GetByID", mock.Anything, "p1").Return(product, nil).Once()
	mockCache.On("Set", mock.Anything, product, 5*time.Minute).Return(errors.New("redis down")).Once()

	got, err := lookup.Lookup(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, product, got)
	mockCache.AssertExpectations(t)
}

func TestCatalogService_Lookup_Missing(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{})

	mockCache.On("Get", mock.Anything, "nope").Return(nil, repository.ErrNotFound).Once()
	mockProducts.On("GetByID", mock.Anything, "nope").Return(nil, repository.ErrNotFound).Once()

	got, err := lookup.Lookup(context.Background(), "nope")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
	mockCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_Lookup_InactiveProduct(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{})

	product := activeProduct("p1", "1")
	product.Status = entity.ProductStatusDeleted
	mockCache.On("Get", mock.Anything, "p1").Return(product, nil).Once()

	got, err := lookup.Lookup(context.Background(), "p1")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCatalogService_Lookup_CatalogFailure(t *testing.T) {
	mockProducts := new(MockProductRepository)
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(mockProducts, mockCache, logger.NewNop(), CatalogServiceConfig{})

	mockCache.On("Get", mock.Anything, "p1").Return(nil, repository.ErrNotFound).Once()
	mockProducts.On("GetByID", mock.Anything, "p1").Return(nil, errors.New("server selection timeout")).Once()

	_, err := lookup.Lookup(context.Background(), "p1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrNotFound)
}

func TestCatalogService_Invalidate(t *testing.T) {
	mockCache := new(MockProductDetailCache)
	lookup := NewCatalogService(new(MockProductRepository), mockCache, logger.NewNop(), CatalogServiceConfig{})

	mockCache.On("Delete", mock.Anything, "p1").Return(nil).Once()
	mockCache.On("Delete", mock.Anything, "p2").Return(errors.New("redis down")).Once()

	assert.NoError(t, lookup.Invalidate(context.Background(), "p1"))
	assert.Error(t, lookup.Invalidate(context.Background(), "p2"))
	mockCache.AssertExpectations(t)
}
