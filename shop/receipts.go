package shop

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/dpup/storefront/email"
	"github.com/dpup/storefront/eventbus"
	"github.com/dpup/storefront/logging"
)

// ReceiptRenderer renders a named template for receipt bodies. Satisfied by
// the templates plugin.
type ReceiptRenderer interface {
	Render(ctx context.Context, name string, data interface{}) (string, error)
}

// ReceiptTemplate is the template name looked up when a renderer is
// configured. The event is passed as the template data.
const ReceiptTemplate = "order_receipt.tmpl"

// ReceiptOption customizes receipt delivery.
type ReceiptOption func(*receiptConfig)

type receiptConfig struct {
	renderer ReceiptRenderer
}

// WithReceiptRenderer renders receipt bodies from the order_receipt.tmpl
// template instead of the built-in plain text format.
func WithReceiptRenderer(r ReceiptRenderer) ReceiptOption {
	return func(c *receiptConfig) {
		c.renderer = r
	}
}

// SubscribeReceipts registers a handler that emails a receipt for every
// created order carrying a customer email. Walk-in sales have no email and
// are skipped.
func SubscribeReceipts(bus eventbus.EventBus, mailer *email.EmailPlugin, opts ...ReceiptOption) {
	cfg := receiptConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	bus.Subscribe(TopicOrderCreated, func(ctx context.Context, msg *eventbus.Message) error {
		event, ok := msg.Data.(OrderCreatedEvent)
		if !ok {
			logging.Warnw(ctx, "unexpected payload on order topic", "topic", msg.Topic)
			return nil
		}
		if event.CustomerEmail == "" {
			return nil
		}

		body := receiptBody(event)
		if cfg.renderer != nil {
			rendered, err := cfg.renderer.Render(ctx, ReceiptTemplate, event)
			if err != nil {
				logging.Warnw(ctx, "receipt template failed, using plain format",
					"orderID", event.Order.ID, "error", err)
			} else {
				body = rendered
			}
		}

		m := gomail.NewMessage()
		m.SetHeader("To", event.CustomerEmail)
		m.SetHeader("Subject", fmt.Sprintf("Receipt for order %s", event.Order.ID))
		m.SetBody("text/plain", body)
		return mailer.Send(ctx, m)
	})
}

func receiptBody(event OrderCreatedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n\n", event.Order.ID)
	for _, item := range event.Items {
		fmt.Fprintf(&b, "%d x %s %s\n", item.Quantity, item.ProductName,
			formatCents(item.UnitPriceCents*int64(item.Quantity), event.Order.Currency))
	}
	fmt.Fprintf(&b, "\nTotal %s\n", formatCents(event.Order.TotalCents, event.Order.Currency))
	return b.String()
}

func formatCents(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
