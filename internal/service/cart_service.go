package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultGuestCartTTL = 30 * 24 * time.Hour
	tracerName          = "github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
)

const (
	SubjectItemAdded   = "cart.item.added"
	SubjectItemUpdated = "cart.item.updated"
	SubjectItemRemoved = "cart.item.removed"
	SubjectCleared     = "cart.cleared"
	SubjectMerged      = "cart.merged"
	SubjectPruned      = "cart.items.pruned"
)

type CartService interface {
	GetCart(ctx context.Context, identity entity.Identity) (*entity.CartView, error)
	AddItem(ctx context.Context, identity entity.Identity, productID string, quantity int, variants map[string]string) (*entity.CartView, error)
	UpdateItem(ctx context.Context, identity entity.Identity, productID string, quantity int) (*entity.CartView, error)
	RemoveItem(ctx context.Context, identity entity.Identity, productID string) (*entity.CartView, error)
	ClearCart(ctx context.Context, identity entity.Identity) (*entity.CartView, error)
	GetCartCount(ctx context.Context, identity entity.Identity) (int, error)
	MergeGuestIntoUser(ctx context.Context, guestSessionID, userID string) (*entity.CartView, error)
	ComputeTotals(view *entity.CartView) entity.Totals
}

// EventPublisher is satisfied by the NATS publisher. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

type CartEvent struct {
	CartKey    string    `json:"cart_key"`
	ProductID  string    `json:"product_id,omitempty"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	Owner      *string   `json:"owner"`
	SessionID  string    `json:"session_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CartServiceConfig struct {
	GuestTTL time.Duration
	// MaxLineQuantity caps the quantity of one line. Zero uses entity.DefaultMaxLineQuantity.
	MaxLineQuantity int
}

type cartService struct {
	cartRepo repository.CartRepository
	products ProductLookup
	events   EventPublisher
	metrics  *metrics.Manager
	log      logger.Logger
	tracer   trace.Tracer
	guestTTL time.Duration
	maxQty   int
	now      func() time.Time
}

// NewCartService wires the cart store. events and metricsManager may be nil.
func NewCartService(
	cartRepo repository.CartRepository,
	products ProductLookup,
	events EventPublisher,
	metricsManager *metrics.Manager,
	log logger.Logger,
	cfg CartServiceConfig,
) CartService {
	guestTTL := cfg.GuestTTL
	if guestTTL <= 0 {
		guestTTL = defaultGuestCartTTL
	}
	maxQty := cfg.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = entity.DefaultMaxLineQuantity
	}

	return &cartService{
		cartRepo: cartRepo,
		products: products,
		events:   events,
		metrics:  metricsManager,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		guestTTL: guestTTL,
		maxQty:   maxQty,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *cartService) startSpan(ctx context.Context, name, cartKey string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "CartService."+name, trace.WithAttributes(attribute.String("cart.key", cartKey)))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ttlFor returns the expiry applied on add: guest carts expire, user carts never do.
func (s *cartService) ttlFor(identity entity.Identity) time.Duration {
	if identity.IsAuthenticated() {
		return 0
	}
	return s.guestTTL
}

// buildView joins the cart with live product data. Lines whose product no
// longer resolves, and fields that could not be decoded, are deleted from the
// record and listed in view.Pruned.
func (s *cartService) buildView(ctx context.Context, cart *entity.Cart) (*entity.CartView, error) {
	view := entity.EmptyCartView(cart.Key, s.now())

	pruned := append([]string(nil), cart.Corrupt...)
	for _, item := range cart.SortedItems() {
		product, err := s.products.Lookup(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				pruned = append(pruned, item.ProductID)
				continue
			}
			return nil, fmt.Errorf("could not resolve product %s: %w", item.ProductID, err)
		}
		view.AddItem(*item, product)
	}

	if len(pruned) == 0 {
		return view, nil
	}

	if err := s.cartRepo.Apply(ctx, repository.CartWrite{Key: cart.Key, Removals: pruned}); err != nil {
		s.log.Errorf("Failed to prune %d dangling items from cart %s: %v", len(pruned), cart.Key, err)
		return nil, fmt.Errorf("could not prune cart: %w", err)
	}
	for _, productID := range pruned {
		cart.RemoveItem(productID)
	}
	cart.Corrupt = nil
	view.Pruned = pruned

	s.log.Warnf("Pruned %d items with unresolvable products from cart %s: %v", len(pruned), cart.Key, pruned)
	s.metrics.ObservePruned(len(pruned))
	s.publish(ctx, SubjectPruned, CartEvent{CartKey: cart.Key, ProductIDs: pruned, OccurredAt: view.UpdatedAt})
	return view, nil
}

func (s *cartService) publish(ctx context.Context, subject string, event CartEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, event); err != nil {
		s.log.Warnf("Failed to publish %s event for cart %s: %v", subject, event.CartKey, err)
		s.metrics.ObserveEventPublishError()
	}
}

func (s *cartService) load(ctx context.Context, key string) (*entity.Cart, error) {
	cart, err := s.cartRepo.Load(ctx, key)
	if err != nil {
		s.log.Errorf("Error getting cart %s: %v", key, err)
		return nil, fmt.Errorf("could not retrieve cart: %w", err)
	}
	if len(cart.Corrupt) > 0 {
		s.log.Warnf("Cart %s has %d undecodable fields: %v", key, len(cart.Corrupt), cart.Corrupt)
	}
	cart.MaxQuantity = s.maxQty
	return cart, nil
}

func (s *cartService) save(ctx context.Context, write repository.CartWrite) error {
	if err := s.cartRepo.Apply(ctx, write); err != nil {
		s.log.Errorf("Error saving cart %s: %v", write.Key, err)
		return fmt.Errorf("could not save cart: %w", err)
	}
	return nil
}

func (s *cartService) GetCart(ctx context.Context, identity entity.Identity) (view *entity.CartView, err error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	key := identity.CartKey()
	ctx, span := s.startSpan(ctx, "GetCart", key)
	defer func() { finishSpan(span, err) }()

	cart, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

func (s *cartService) AddItem(ctx context.Context, identity entity.Identity, productID string, quantity int, variants map[string]string) (view *entity.CartView, err error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := entity.ValidateProductID(productID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, entity.ErrInvalidQuantity
	}
	if quantity > s.maxQty {
		return nil, entity.ErrQuantityLimit
	}

	key := identity.CartKey()
	ctx, span := s.startSpan(ctx, "AddItem", key)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int("cart.quantity", quantity))

	s.log.Infof("Adding item to cart: Cart=%s, ProductID=%s, Quantity=%d", key, productID, quantity)
	product, err := s.products.Lookup(ctx, productID)
	if err != nil {
		s.log.Warnf("Cannot add product %s to cart %s: %v", productID, key, err)
		return nil, err
	}

	cart, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item, err := cart.AddItem(productID, quantity, variants, product.Price, now)
	if err != nil {
		return nil, fmt.Errorf("could not add item to cart: %w", err)
	}
	meta := cart.Touch(identity, now)

	err = s.save(ctx, repository.CartWrite{
		Key:      key,
		Upserts:  []*entity.LineItem{item},
		Metadata: &meta,
		TTL:      s.ttlFor(identity),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("add_item")
	s.publish(ctx, SubjectItemAdded, CartEvent{
		CartKey: key, ProductID: productID, Quantity: item.Quantity,
		Owner: meta.Owner, SessionID: meta.SessionID, OccurredAt: now,
	})
	s.log.Infof("Item %s added to cart %s, quantity now %d", productID, key, item.Quantity)
	return s.buildView(ctx, cart)
}

func (s *cartService) UpdateItem(ctx context.Context, identity entity.Identity, productID string, quantity int) (view *entity.CartView, err error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, identity, productID)
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := entity.ValidateProductID(productID); err != nil {
		return nil, err
	}

	key := identity.CartKey()
	ctx, span := s.startSpan(ctx, "UpdateItem", key)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int("cart.quantity", quantity))

	s.log.Infof("Updating item quantity: Cart=%s, ProductID=%s, NewQuantity=%d", key, productID, quantity)
	cart, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	item, err := cart.SetQuantity(productID, quantity, now)
	if err != nil {
		return nil, fmt.Errorf("could not update item %s: %w", productID, err)
	}
	meta := cart.Touch(identity, now)

	if err := s.save(ctx, repository.CartWrite{Key: key, Upserts: []*entity.LineItem{item}, Metadata: &meta}); err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("update_item")
	s.publish(ctx, SubjectItemUpdated, CartEvent{
		CartKey: key, ProductID: productID, Quantity: quantity,
		Owner: meta.Owner, SessionID: meta.SessionID, OccurredAt: now,
	})
	return s.buildView(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, identity entity.Identity, productID string) (view *entity.CartView, err error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if err := entity.ValidateProductID(productID); err != nil {
		return nil, err
	}

	key := identity.CartKey()
	ctx, span := s.startSpan(ctx, "RemoveItem", key)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("product.id", productID))

	s.log.Infof("Removing item from cart: Cart=%s, ProductID=%s", key, productID)
	cart, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveItem(productID) {
		s.log.Debugf("Item %s not in cart %s, nothing to remove", productID, key)
		return s.buildView(ctx, cart)
	}

	now := s.now()
	meta := cart.Touch(identity, now)
	if err := s.save(ctx, repository.CartWrite{Key: key, Removals: []string{productID}, Metadata: &meta}); err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation("remove_item")
	s.publish(ctx, SubjectItemRemoved, CartEvent{
		CartKey: key, ProductID: productID,
		Owner: meta.Owner, SessionID: meta.SessionID, OccurredAt: now,
	})
	return s.buildView(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, identity entity.Identity) (view *entity.CartView, err error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	key := identity.CartKey()
	ctx, span := s.startSpan(ctx, "ClearCart", key)
	defer func() { finishSpan(span, err) }()

	s.log.Infof("Clearing cart %s", key)
	if err := s.cartRepo.Delete(ctx, key); err != nil {
		s.log.Errorf("Error deleting cart %s: %v", key, err)
		return nil, fmt.Errorf("could not clear cart: %w", err)
	}

	now := s.now()
	s.metrics.ObserveMutation("clear")
	s.publish(ctx, SubjectCleared, CartEvent{
		CartKey: key, Owner: identity.Owner(), SessionID: identity.SessionID, OccurredAt: now,
	})
	return entity.EmptyCartView(key, now), nil
}

func (s *cartService) GetCartCount(ctx context.Context, identity entity.Identity) (int, error) {
	view, err := s.GetCart(ctx, identity)
	if err != nil {
		return 0, err
	}
	return view.Quantity, nil
}

// MergeGuestIntoUser moves a guest cart into the user's cart at login. The
// user write and the guest delete are one transaction, so a repeated call
// finds no guest cart and changes nothing.
func (s *cartService) MergeGuestIntoUser(ctx context.Context, guestSessionID, userID string) (view *entity.CartView, err error) {
	if guestSessionID == "" || userID == "" {
		return nil, entity.ErrInvalidIdentity
	}
	identity := entity.UserIdentity(userID, guestSessionID)
	guestKey := entity.GuestCartKey(guestSessionID)
	userKey := identity.CartKey()

	ctx, span := s.startSpan(ctx, "MergeGuestIntoUser", userKey)
	defer func() { finishSpan(span, err) }()
	span.SetAttributes(attribute.String("cart.guest_key", guestKey))

	guest, err := s.load(ctx, guestKey)
	if err != nil {
		return nil, err
	}
	user, err := s.load(ctx, userKey)
	if err != nil {
		return nil, err
	}

	if guest.IsEmpty() {
		s.log.Debugf("Guest cart %s is empty, nothing to merge into %s", guestKey, userKey)
		return s.buildView(ctx, user)
	}

	now := s.now()
	changed, err := user.MergeFrom(guest, now)
	if err != nil {
		s.log.Warnf("Cannot merge %s into %s: %v", guestKey, userKey, err)
		return nil, fmt.Errorf("could not merge carts: %w", err)
	}
	meta := user.Touch(identity, now)

	err = s.save(ctx, repository.CartWrite{
		Key:      userKey,
		Upserts:  changed,
		Metadata: &meta,
		Drop:     []string{guestKey},
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Merged %d guest items from %s into %s", len(changed), guestKey, userKey)
	s.metrics.ObserveMutation("merge")
	s.metrics.ObserveMerge()
	s.publish(ctx, SubjectMerged, CartEvent{
		CartKey: userKey, Quantity: guest.TotalQuantity(),
		Owner: meta.Owner, SessionID: guestSessionID, OccurredAt: now,
	})
	return s.buildView(ctx, user)
}

func (s *cartService) ComputeTotals(view *entity.CartView) entity.Totals {
	return entity.ComputeTotals(view)
}
