package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/email"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
)

var (
	ErrEmailDisabled = errors.New("cart summary e-mail is not configured")
	ErrEmptyCart     = fmt.Errorf("%w: cart is empty", entity.ErrInvalidArgument)
	ErrInvalidEmail  = fmt.Errorf("%w: invalid e-mail address", entity.ErrInvalidArgument)
)

type SummaryService interface {
	SendCartSummary(ctx context.Context, identity entity.Identity, to string) error
}

type summaryService struct {
	carts  CartService
	sender email.EmailSender
	log    logger.Logger
}

// NewSummaryService builds the summary mailer. A nil sender disables it.
func NewSummaryService(carts CartService, sender email.EmailSender, log logger.Logger) SummaryService {
	return &summaryService{
		carts:  carts,
		sender: sender,
		log:    log,
	}
}

var summaryHTML = template.Must(template.New("summary").Parse(`<h2>Your cart</h2>
<table>
<tr><th>Product</th><th>Qty</th><th>Price</th><th>Subtotal</th></tr>
{{range .View.Items}}<tr><td>{{.Product.Name}}</td><td>{{.Quantity}}</td><td>{{.Product.Price.StringFixed 2}}</td><td>{{.Subtotal.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Totals.Subtotal.StringFixed 2}}<br>
Tax: {{.Totals.Tax.StringFixed 2}}<br>
Shipping: {{.Totals.Shipping.StringFixed 2}}<br>
<b>Total: {{.Totals.Total.StringFixed 2}}</b></p>
`))

func (s *summaryService) SendCartSummary(ctx context.Context, identity entity.Identity, to string) error {
	if s.sender == nil {
		return ErrEmailDisabled
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEmail, to)
	}

	view, err := s.carts.GetCart(ctx, identity)
	if err != nil {
		return err
	}
	if len(view.Items) == 0 {
		return ErrEmptyCart
	}
	totals := s.carts.ComputeTotals(view)

	text := renderSummaryText(view, totals)
	var html bytes.Buffer
	if err := summaryHTML.Execute(&html, struct {
		View   *entity.CartView
		Totals entity.Totals
	}{view, totals}); err != nil {
		return fmt.Errorf("failed to render cart summary: %w", err)
	}

	msg := email.Message{
		To:       []string{addr.Address},
		Subject:  fmt.Sprintf("Your cart: %d items, %s total", view.Quantity, totals.Total.StringFixed(2)),
		BodyHTML: html.String(),
		BodyText: text,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Errorf("Failed to send cart summary for %s to %s: %v", identity.CartKey(), addr.Address, err)
		return fmt.Errorf("failed to send cart summary: %w", err)
	}

	s.log.Infof("Sent cart summary for %s to %s", identity.CartKey(), addr.Address)
	return nil
}

func renderSummaryText(view *entity.CartView, totals entity.Totals) string {
	var b strings.Builder
	b.WriteString("Items:\n")
	for _, item := range view.Items {
		fmt.Fprintf(&b, "- %s (x%d) @ %s = %s\n",
			item.Product.Name,
			item.Quantity,
			item.Product.Price.StringFixed(2),
			item.Subtotal.StringFixed(2),
		)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nTax: %s\nShipping: %s\nTotal: %s\n",
		totals.Subtotal.StringFixed(2),
		totals.Tax.StringFixed(2),
		totals.Shipping.StringFixed(2),
		totals.Total.StringFixed(2),
	)
	return b.String()
}
