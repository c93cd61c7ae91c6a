package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
)

const (
	SubjectProductUpdated = "catalog.product.updated"
	SubjectProductDeleted = "catalog.product.deleted"

	invalidateTimeout = 3 * time.Second
)

// ProductInvalidator drops cached product data.
type ProductInvalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

type productChangedEvent struct {
	ID string `json:"id"`
}

type rawSubscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// ProductChangeListener evicts cached products when the catalog announces a change.
type ProductChangeListener struct {
	conn          rawSubscriber
	invalidator   ProductInvalidator
	log           logger.Logger
	subscriptions []*nats.Subscription
}

func NewProductChangeListener(conn *nats.Conn, invalidator ProductInvalidator, log logger.Logger) (*ProductChangeListener, error) {
	if conn == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return &ProductChangeListener{conn: conn, invalidator: invalidator, log: log}, nil
}

func (l *ProductChangeListener) Start() error {
	for _, subject := range []string{SubjectProductUpdated, SubjectProductDeleted} {
		sub, err := l.conn.Subscribe(subject, l.handle)
		if err != nil {
			l.Stop()
			return fmt.Errorf("failed to subscribe to NATS subject %s: %w", subject, err)
		}
		l.subscriptions = append(l.subscriptions, sub)
		l.log.Infof("Subscribed to NATS subject %s", subject)
	}
	return nil
}

func (l *ProductChangeListener) handle(msg *nats.Msg) {
	var event productChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.ID == "" {
		l.log.Warnf("Ignoring malformed message on %s: %s", msg.Subject, string(msg.Data))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := l.invalidator.Invalidate(ctx, event.ID); err != nil {
		l.log.Warnf("Failed to invalidate cached product %s after %s: %v", event.ID, msg.Subject, err)
		return
	}
	l.log.Debugf("Invalidated cached product %s after %s", event.ID, msg.Subject)
}

func (l *ProductChangeListener) Stop() {
	for _, sub := range l.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			l.log.Warnf("Failed to unsubscribe from %s: %v", sub.Subject, err)
		}
	}
	l.subscriptions = nil
}
