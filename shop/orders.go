package shop

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/auth"
	"github.com/dpup/storefront/authz"
	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/eventbus"
	"github.com/dpup/storefront/logging"
	"github.com/dpup/storefront/storage"
)

// CreateOrderRequest describes a checkout. TargetUserID may differ from the
// caller for staff-assisted sales, and may be empty for walk-ins rung up by
// a cashier.
type CreateOrderRequest struct {
	TargetUserID string
	Items        []CartItem
}

// NewOrderService constructs an order service. The bus may be nil, in which
// case no events are published.
func NewOrderService(gate *authz.Gate, store storage.Store, bus eventbus.EventBus) *OrderService {
	return &OrderService{gate: gate, store: store, bus: bus}
}

// OrderService implements order creation, listing, and status transitions,
// with authorization and row scoping applied on every call.
type OrderService struct {
	gate  *authz.Gate
	store storage.Store
	bus   eventbus.EventBus
}

// Create checks out a cart. The permission gate runs first, then the
// self-order restriction, then prices are frozen into line items and the
// order is written.
//
// On stores supporting transactions the header and items commit atomically.
// Otherwise the write is a two-step sequence and a failure after the header
// surfaces as a PartialWriteError; it is never retried here since that could
// duplicate the header.
func (s *OrderService) Create(ctx context.Context, subject authz.Subject, req CreateOrderRequest) (*Order, error) {
	if d := s.gate.Check(ctx, subject, authz.PermCreateOrder); !d.Allowed {
		return nil, &AuthorizationError{Permission: authz.PermCreateOrder}
	}

	targetUserID := req.TargetUserID
	if targetUserID == "" && !isStaff(subject) {
		targetUserID = subject.ID
	}

	// Plain shoppers may only check out for themselves. Staff-assisted sales
	// are attributed below instead.
	if onlyPlainUser(subject) && targetUserID != subject.ID {
		return nil, &OwnershipMismatchError{
			Resource: "order",
			CallerID: subject.ID,
			TargetID: targetUserID,
		}
	}

	if len(req.Items) == 0 {
		return nil, errors.Codef(codes.InvalidArgument, "shop: order must contain at least one item")
	}

	order := Order{
		ID:        uuid.NewString(),
		UserID:    targetUserID,
		Status:    StatusPending,
		Currency:  storefront.ConfigString("shop.currency"),
		CreatedAt: time.Now(),
	}
	// Any staff member ringing up a sale is recorded as its cashier, so
	// walk-in orders keep an attribution even when an owner runs the till.
	if isStaff(subject) {
		order.CashierID = subject.ID
	}

	items := make([]OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, errors.Codef(codes.InvalidArgument, "shop: invalid quantity %d for product %q", line.Quantity, line.ProductID)
		}
		var p Product
		if err := s.store.Read(line.ProductID, &p); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, errors.Codef(codes.InvalidArgument, "shop: no such product %q", line.ProductID)
			}
			return nil, err
		}
		if !p.Purchasable() {
			return nil, errors.Codef(codes.FailedPrecondition, "shop: product %q is not available for purchase", p.ID)
		}
		// Freeze the unit price; later catalog edits must not change this
		// order's total.
		items = append(items, OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		order.TotalCents += p.PriceCents * int64(line.Quantity)
	}

	if err := s.writeOrder(order, items); err != nil {
		return nil, err
	}

	logging.Infow(ctx, "order created",
		"orderID", order.ID,
		"userID", order.UserID,
		"cashierID", order.CashierID,
		"totalCents", order.TotalCents)

	if s.bus != nil {
		event := OrderCreatedEvent{Order: order, Items: items}
		if identity, err := auth.IdentityFromContext(ctx); err == nil {
			event.CustomerEmail = identity.Email
		}
		s.bus.Publish(TopicOrderCreated, event)
	}
	return &order, nil
}

// writeOrder persists the header and items, in one transaction when the
// store supports it.
func (s *OrderService) writeOrder(order Order, items []OrderItem) error {
	if tr, ok := s.store.(storage.Transacter); ok {
		return tr.Transact(func(tx storage.Store) error {
			if err := tx.Create(order); err != nil {
				return err
			}
			for _, item := range items {
				if err := tx.Create(item); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := s.store.Create(order); err != nil {
		return err
	}
	for _, item := range items {
		if err := s.store.Create(item); err != nil {
			return &PartialWriteError{OrderID: order.ID, Err: err}
		}
	}
	return nil
}

// List returns the orders visible to the subject under their scope, sorted
// by creation time then id. A cashier is never gated out entirely; they are
// scoped down to the sales they processed.
func (s *OrderService) List(ctx context.Context, subject authz.Subject) ([]Order, error) {
	scope := s.gate.ScopeFor(authz.ResourceOrders, subject)
	if scope.DenyAll() {
		return nil, nil
	}

	var orders []Order
	if scope.Unrestricted() {
		if err := s.store.List(&orders, Order{}); err != nil {
			return nil, err
		}
		sortOrders(orders)
		return orders, nil
	}

	// One equality query per ownership clause, deduped by primary key for
	// subjects holding both the cashier and user roles. An empty clause value
	// would turn the store filter into match-everything, so it is skipped.
	seen := map[string]bool{}
	for _, clause := range scope.OwnerClauses() {
		if clause.Value == "" {
			continue
		}
		filter := Order{}
		switch clause.Field {
		case authz.OwnerFieldUserID:
			filter.UserID = clause.Value
		case authz.OwnerFieldCashierID:
			filter.CashierID = clause.Value
		default:
			continue
		}
		var batch []Order
		if err := s.store.List(&batch, filter); err != nil {
			return nil, err
		}
		for _, o := range batch {
			if !seen[o.ID] {
				seen[o.ID] = true
				orders = append(orders, o)
			}
		}
	}
	sortOrders(orders)
	return orders, nil
}

// Get reads a single order. Orders outside the subject's scope report not
// found rather than denied, so existence isn't leaked.
func (s *OrderService) Get(ctx context.Context, subject authz.Subject, orderID string) (*Order, error) {
	var order Order
	if err := s.store.Read(orderID, &order); err != nil {
		return nil, err
	}
	scope := s.gate.ScopeFor(authz.ResourceOrders, subject)
	if !scope.Matches(order) {
		return nil, errors.Mark(storage.ErrNotFound, 0)
	}
	return &order, nil
}

// Items returns the line items for an order the subject can see.
func (s *OrderService) Items(ctx context.Context, subject authz.Subject, orderID string) ([]OrderItem, error) {
	if _, err := s.Get(ctx, subject, orderID); err != nil {
		return nil, err
	}
	var items []OrderItem
	if err := s.store.List(&items, OrderItem{OrderID: orderID}); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus transitions an order. Requires update_order_status but
// deliberately applies no ownership restriction: any staff member holding
// the permission may transition any order, and the order's attribution
// fields are left untouched.
func (s *OrderService) UpdateStatus(ctx context.Context, subject authz.Subject, orderID string, status OrderStatus) (*Order, error) {
	if d := s.gate.Check(ctx, subject, authz.PermUpdateOrderStatus); !d.Allowed {
		return nil, &AuthorizationError{Permission: authz.PermUpdateOrderStatus}
	}
	if !KnownStatus(status) {
		return nil, errors.Codef(codes.InvalidArgument, "shop: unknown order status %q", status)
	}

	var order Order
	if err := s.store.Read(orderID, &order); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = status
	if err := s.store.Update(order); err != nil {
		return nil, err
	}

	logging.Infow(ctx, "order status updated",
		"orderID", order.ID,
		"from", previous,
		"to", status,
		"actor", subject.ID)

	if s.bus != nil {
		s.bus.Publish(TopicOrderStatusChanged, OrderStatusChangedEvent{
			Order:    order,
			Previous: previous,
		})
	}
	return &order, nil
}

// isStaff reports whether the subject holds any role that works the till.
func isStaff(s authz.Subject) bool {
	return s.HasAnyRole(authz.RoleCashier, authz.RoleOwner, authz.RoleSuperadmin)
}

// onlyPlainUser reports whether the subject's entire role set is the plain
// shopper role.
func onlyPlainUser(s authz.Subject) bool {
	if len(s.Roles) == 0 {
		return false
	}
	for _, r := range s.Roles {
		if r != authz.RoleUser {
			return false
		}
	}
	return true
}

func sortOrders(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}
