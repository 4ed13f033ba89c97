// Package shop implements the storefront's order and product workflows. It
// is the authoritative enforcement layer: every operation checks the
// authorization gate before acting and applies the row scope from the authz
// package before returning data. The route guard in authz mirrors these
// decisions for the UI but is never the security boundary.
package shop

import (
	"context"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/authz"
	"github.com/dpup/storefront/email"
	"github.com/dpup/storefront/eventbus"
	"github.com/dpup/storefront/storage"
	"github.com/dpup/storefront/templates"
)

// Constant name for identifying the shop plugin.
const PluginName = "shop"

// Event topics published by the shop services.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// OrderCreatedEvent is published on TopicOrderCreated.
type OrderCreatedEvent struct {
	Order Order
	Items []OrderItem

	// CustomerEmail is captured from the caller's identity at checkout, for
	// receipt delivery. Empty for walk-in sales.
	CustomerEmail string
}

// OrderStatusChangedEvent is published on TopicOrderStatusChanged.
type OrderStatusChangedEvent struct {
	Order    Order
	Previous OrderStatus
}

// ShopOption customizes the shop plugin.
type ShopOption func(*ShopPlugin)

// WithRegistry overrides the default permission registry. Primarily useful
// for tests exercising alternate grant matrices.
func WithRegistry(reg *authz.Registry) ShopOption {
	return func(p *ShopPlugin) {
		p.gate = authz.NewGate(reg)
	}
}

// Plugin returns the shop plugin. Orders and Products are available after
// Init has wired the storage and eventbus dependencies.
func Plugin(opts ...ShopOption) *ShopPlugin {
	p := &ShopPlugin{
		gate: authz.NewGate(authz.DefaultRegistry()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShopPlugin wires the order and product services into the plugin registry.
type ShopPlugin struct {
	gate     *authz.Gate
	Orders   *OrderService
	Products *ProductService
}

// From storefront.Plugin.
func (p *ShopPlugin) Name() string {
	return PluginName
}

// From storefront.DependentPlugin.
func (p *ShopPlugin) Deps() []string {
	return []string{storage.PluginName, eventbus.PluginName}
}

// From storefront.InitializablePlugin.
func (p *ShopPlugin) Init(ctx context.Context, r *storefront.Registry) error {
	store := r.Get(storage.PluginName).(storage.Store)
	bus := r.Get(eventbus.PluginName).(eventbus.EventBus)

	p.Orders = NewOrderService(p.gate, store, bus)
	p.Products = NewProductService(p.gate, store)

	// Receipts are optional; only wired when the email plugin is registered.
	// A templates plugin upgrades the receipt body from the built-in format.
	if ep, ok := r.Get(email.PluginName).(*email.EmailPlugin); ok {
		var opts []ReceiptOption
		if tp, ok := r.Get(templates.PluginName).(*templates.TemplatePlugin); ok {
			opts = append(opts, WithReceiptRenderer(tp))
		}
		SubscribeReceipts(bus, ep, opts...)
	}
	return nil
}

// Gate exposes the plugin's authorization gate, shared with routing callers
// so UI guards and service checks can't drift.
func (p *ShopPlugin) Gate() *authz.Gate {
	return p.gate
}
