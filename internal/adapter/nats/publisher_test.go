package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestNATSPublisher_PublishEncodesJSON(t *testing.T) {
	conn := &recordingConn{}
	pub := &natsPublisher{conn: conn}

	err := pub.Publish(context.Background(), "cart.item.added", map[string]interface{}{"product_id": "p1", "quantity": 2})

	require.NoError(t, err)
	assert.Equal(t, "cart.item.added", conn.subject)
	assert.JSONEq(t, `{"product_id":"p1","quantity":2}`, string(conn.data))
}

func TestNATSPublisher_PublishError(t *testing.T) {
	pub := &natsPublisher{conn: &recordingConn{err: errors.New("nats: connection closed")}}

	err := pub.Publish(context.Background(), "cart.cleared", struct{}{})
	assert.ErrorContains(t, err, "cart.cleared")
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	conn := &recordingConn{}
	pub := &natsPublisher{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.PublishRaw(ctx, "cart.cleared", []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conn.subject)
}

func TestNewNATSPublisher_NilConn(t *testing.T) {
	_, err := NewNATSPublisher(nil)
	assert.Error(t, err)
}
