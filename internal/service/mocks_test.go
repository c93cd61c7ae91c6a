package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/email"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Load(ctx context.Context, key string) (*entity.Cart, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Cart), args.Error(1)
}

func (m *MockCartRepository) Apply(ctx context.Context, write repository.CartWrite) error {
	args := m.Called(ctx, write)
	return args.Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

type MockProductDetailCache struct {
	mock.Mock
}

func (m *MockProductDetailCache) Get(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductDetailCache) Set(ctx context.Context, product *entity.Product, ttl time.Duration) error {
	args := m.Called(ctx, product, ttl)
	return args.Error(0)
}

func (m *MockProductDetailCache) Delete(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// memoryCartStore is an in-memory CartRepository that applies writes the way
// the Redis repository does and remembers expiries.
type memoryCartStore struct {
	mu     sync.Mutex
	carts  map[string]*entity.Cart
	ttls   map[string]time.Duration
	writes []repository.CartWrite
	err    error
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{
		carts: make(map[string]*entity.Cart),
		ttls:  make(map[string]time.Duration),
	}
}

func (s *memoryCartStore) Load(_ context.Context, key string) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	stored, ok := s.carts[key]
	if !ok {
		return entity.NewCart(key), nil
	}
	return cloneCart(stored), nil
}

func (s *memoryCartStore) Apply(_ context.Context, write repository.CartWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, write)

	stored, ok := s.carts[write.Key]
	if !ok {
		stored = entity.NewCart(write.Key)
	}
	for _, productID := range write.Removals {
		delete(stored.Items, productID)
		stored.Corrupt = without(stored.Corrupt, productID)
	}
	for _, item := range write.Upserts {
		copied := *item
		stored.Items[item.ProductID] = &copied
	}
	if write.Metadata != nil {
		meta := *write.Metadata
		stored.Metadata = &meta
	}
	if len(stored.Items) == 0 && stored.Metadata == nil && len(stored.Corrupt) == 0 {
		delete(s.carts, write.Key)
	} else {
		s.carts[write.Key] = stored
	}
	if write.TTL > 0 {
		s.ttls[write.Key] = write.TTL
	}
	for _, key := range write.Drop {
		delete(s.carts, key)
		delete(s.ttls, key)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func (s *memoryCartStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.carts, key)
	delete(s.ttls, key)
	return nil
}

func (s *memoryCartStore) put(cart *entity.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cart.Key] = cloneCart(cart)
}

func (s *memoryCartStore) stored(key string) (*entity.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[key]
	if !ok {
		return nil, false
	}
	return cloneCart(cart), true
}

func cloneCart(cart *entity.Cart) *entity.Cart {
	out := entity.NewCart(cart.Key)
	for id, item := range cart.Items {
		copied := *item
		out.Items[id] = &copied
	}
	if cart.Metadata != nil {
		meta := *cart.Metadata
		out.Metadata = &meta
	}
	out.Corrupt = append([]string(nil), cart.Corrupt...)
	return out
}

// stubCatalog resolves products from a map. failures forces an error per id.
type stubCatalog struct {
	products    map[string]*entity.Product
	failures    map[string]error
	invalidated []string
}

func newStubCatalog(products ...*entity.Product) *stubCatalog {
	c := &stubCatalog{
		products: make(map[string]*entity.Product),
		failures: make(map[string]error),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *stubCatalog) Lookup(_ context.Context, productID string) (*entity.Product, error) {
	if err, ok := c.failures[productID]; ok {
		return nil, err
	}
	product, ok := c.products[productID]
	if !ok || !product.IsAvailable() {
		return nil, fmt.Errorf("%w: %s", entity.ErrProductNotFound, productID)
	}
	return product, nil
}

func (c *stubCatalog) Invalidate(_ context.Context, productID string) error {
	c.invalidated = append(c.invalidated, productID)
	return nil
}

type publishedEvent struct {
	subject string
	event   CartEvent
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, message interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{subject: subject, event: message.(CartEvent)})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

func activeProduct(id, price string) *entity.Product {
	return &entity.Product{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.RequireFromString(price),
		Stock:  100,
		Status: entity.ProductStatusActive,
	}
}

func storedItem(productID string, quantity int, addedAt time.Time) *entity.LineItem {
	return &entity.LineItem{
		ProductID: productID,
		Quantity:  quantity,
		Price:     decimal.NewFromInt(1),
		AddedAt:   addedAt,
		UpdatedAt: addedAt,
	}
}
