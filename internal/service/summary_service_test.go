package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/email"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSummaryService_SendCartSummary(t *testing.T) {
	store := newMemoryCartStore()
	carts := newTestCartService(store, newStubCatalog(activeProduct("p1", "12.50")), nil, nil)
	sender := new(MockEmailSender)
	summary := NewSummaryService(carts, sender, logger.NewNop())
	identity := entity.GuestIdentity("s1")

	_, err := carts.AddItem(context.Background(), identity, "p1", 2, nil)
	require.NoError(t, err)

	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return len(msg.To) == 1 && msg.To[0] == "buyer@example.com" &&
			msg.Subject == "Your cart: 2 items, 34.99 total" &&
			strings.Contains(msg.BodyText, "- Product p1 (x2) @ 12.50 = 25.00") &&
			strings.Contains(msg.BodyText, "Tax: 5.00") &&
			strings.Contains(msg.BodyHTML, "<td>Product p1</td>")
	})).Return(nil).Once()

	err = summary.SendCartSummary(context.Background(), identity, "Buyer <buyer@example.com>")

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestSummaryService_SendCartSummary_Errors(t *testing.T) {
	store := newMemoryCartStore()
	carts := newTestCartService(store, newStubCatalog(activeProduct("p1", "1")), nil, nil)
	identity := entity.GuestIdentity("s1")

	t.Run("disabled", func(t *testing.T) {
		err := NewSummaryService(carts, nil, logger.NewNop()).SendCartSummary(context.Background(), identity, "a@b.c")
		assert.ErrorIs(t, err, ErrEmailDisabled)
	})

	t.Run("invalid address", func(t *testing.T) {
		sender := new(MockEmailSender)
		err := NewSummaryService(carts, sender, logger.NewNop()).SendCartSummary(context.Background(), identity, "not-an-address")
		assert.ErrorIs(t, err, entity.ErrInvalidArgument)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("empty cart", func(t *testing.T) {
		sender := new(MockEmailSender)
		err := NewSummaryService(carts, sender, logger.NewNop()).SendCartSummary(context.Background(), identity, "a@b.c")
		assert.ErrorIs(t, err, ErrEmptyCart)
		assert.ErrorIs(t, err, entity.ErrInvalidArgument)
	})

	t.Run("send failure", func(t *testing.T) {
		_, err := carts.AddItem(context.Background(), identity, "p1", 1, nil)
		require.NoError(t, err)

		sender := new(MockEmailSender)
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: 421")).Once()
		err = NewSummaryService(carts, sender, logger.NewNop()).SendCartSummary(context.Background(), identity, "a@b.c")
		assert.ErrorContains(t, err, "smtp: 421")
	})
}
