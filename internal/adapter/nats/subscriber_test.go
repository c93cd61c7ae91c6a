package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductInvalidator struct {
	mock.Mock
}

func (m *MockProductInvalidator) Invalidate(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

type recordingSubscriber struct {
	subjects []string
	err      error
}

func (s *recordingSubscriber) Subscribe(subject string, _ nats.MsgHandler) (*nats.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.subjects = append(s.subjects, subject)
	return &nats.Subscription{Subject: subject}, nil
}

func TestProductChangeListener_HandleInvalidates(t *testing.T) {
	invalidator := new(MockProductInvalidator)
	listener := &ProductChangeListener{invalidator: invalidator, log: logger.NewNop()}

	invalidator.On("Invalidate", mock.Anything, "p1").Return(nil).Once()
	invalidator.On("Invalidate", mock.Anything, "p2").Return(errors.New("redis down")).Once()

	listener.handle(&nats.Msg{Subject: SubjectProductUpdated, Data: []byte(`{"id":"p1"}`)})
	listener.handle(&nats.Msg{Subject: SubjectProductDeleted, Data: []byte(`{"id":"p2"}`)})

	invalidator.AssertExpectations(t)
}

func TestProductChangeListener_HandleIgnoresMalformed(t *testing.T) {
	invalidator := new(MockProductInvalidator)
	listener := &ProductChangeListener{invalidator: invalidator, log: logger.NewNop()}

	listener.handle(&nats.Msg{Subject: SubjectProductUpdated, Data: []byte(`not json`)})
	listener.handle(&nats.Msg{Subject: SubjectProductUpdated, Data: []byte(`{}`)})

	invalidator.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestProductChangeListener_StartSubscribesToCatalogSubjects(t *testing.T) {
	conn := &recordingSubscriber{}
	listener := &ProductChangeListener{conn: conn, invalidator: new(MockProductInvalidator), log: logger.NewNop()}

	require.NoError(t, listener.Start())
	assert.Equal(t, []string{SubjectProductUpdated, SubjectProductDeleted}, conn.subjects)
}

func TestProductChangeListener_StartError(t *testing.T) {
	listener := &ProductChangeListener{
		conn:        &recordingSubscriber{err: errors.New("nats: connection closed")},
		invalidator: new(MockProductInvalidator),
		log:         logger.NewNop(),
	}

	err := listener.Start()
	assert.ErrorContains(t, err, SubjectProductUpdated)
	assert.Empty(t, listener.subscriptions)
}

func TestNewProductChangeListener_NilConn(t *testing.T) {
	_, err := NewProductChangeListener(nil, new(MockProductInvalidator), logger.NewNop())
	assert.Error(t, err)
}
