package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront/auth"
	"github.com/dpup/storefront/authz"
	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/eventbus"
	"github.com/dpup/storefront/storage"
	"github.com/dpup/storefront/storage/memorystore"
)

// captureBus records publishes synchronously so tests can assert on event
// payloads without racing a worker pool.
type captureBus struct {
	published []capturedEvent
}

type capturedEvent struct {
	topic string
	data  any
}

func (b *captureBus) Subscribe(topic string, handler eventbus.Handler)      {}
func (b *captureBus) SubscribeQueue(topic string, handler eventbus.Handler) {}
func (b *captureBus) Enqueue(topic string, data any)                        {}
func (b *captureBus) Wait(ctx context.Context) error                        { return nil }
func (b *captureBus) Shutdown(ctx context.Context) error                    { return nil }

func (b *captureBus) Publish(topic string, data any) {
	b.published = append(b.published, capturedEvent{topic: topic, data: data})
}

func seedCatalog(t *testing.T, store storage.Store) (coffee, mug Product) {
	t.Helper()
	coffee = Product{ID: "p-coffee", Name: "Coffee Beans", PriceCents: 1450, Active: true}
	mug = Product{ID: "p-mug", Name: "Mug", PriceCents: 900, Active: true}
	require.NoError(t, store.Create(coffee, mug))
	return coffee, mug
}

func userSubject(id string) authz.Subject {
	return authz.Subject{ID: id, Roles: []authz.Role{authz.RoleUser}, Authenticated: true}
}

func cashierSubject(id string) authz.Subject {
	return authz.Subject{ID: id, Roles: []authz.Role{authz.RoleCashier}, Authenticated: true}
}

func ownerSubject(id string) authz.Subject {
	return authz.Subject{ID: id, Roles: []authz.Role{authz.RoleOwner}, Authenticated: true}
}

func TestCreateOrderSnapshotsPrices(t *testing.T) {
	store := memorystore.New()
	bus := &captureBus{}
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, bus)
	coffee, mug := seedCatalog(t, store)

	ctx := auth.WithIdentity(context.Background(), auth.Identity{
		Subject: "u1",
		Email:   "u1@example.com",
		Roles:   []authz.Role{authz.RoleUser},
	})
	order, err := orders.Create(ctx, userSubject("u1"), CreateOrderRequest{
		Items: []CartItem{
			{ProductID: coffee.ID, Quantity: 2},
			{ProductID: mug.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", order.UserID)
	assert.Empty(t, order.CashierID)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, int64(2*1450+900), order.TotalCents)

	// Repricing the catalog must not touch the order.
	coffee.PriceCents = 9999
	require.NoError(t, store.Update(coffee))

	var stored Order
	require.NoError(t, store.Read(order.ID, &stored))
	assert.Equal(t, int64(2*1450+900), stored.TotalCents)

	var items []OrderItem
	require.NoError(t, store.List(&items, OrderItem{OrderID: order.ID}))
	require.Len(t, items, 2)
	for _, item := range items {
		if item.ProductID == coffee.ID {
			assert.Equal(t, int64(1450), item.UnitPriceCents)
			assert.Equal(t, "Coffee Beans", item.ProductName)
		}
	}

	require.Len(t, bus.published, 1)
	assert.Equal(t, TopicOrderCreated, bus.published[0].topic)
	event := bus.published[0].data.(OrderCreatedEvent)
	assert.Equal(t, order.ID, event.Order.ID)
	assert.Equal(t, "u1@example.com", event.CustomerEmail)
	assert.Len(t, event.Items, 2)
}

func TestCreateOrderDeniesGuests(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	coffee, _ := seedCatalog(t, store)

	_, err := orders.Create(context.Background(), authz.Guest(), CreateOrderRequest{
		Items: []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, authz.PermCreateOrder, authErr.Permission)
	assert.Equal(t, codes.PermissionDenied, errors.Code(err))
}

func TestCreateOrderForAnotherUser(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	coffee, _ := seedCatalog(t, store)

	// A plain shopper may not place orders on someone else's account, even
	// though they hold create_order.
	_, err := orders.Create(context.Background(), userSubject("u1"), CreateOrderRequest{
		TargetUserID: "u2",
		Items:        []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	var ownErr *OwnershipMismatchError
	require.ErrorAs(t, err, &ownErr)
	assert.Equal(t, "u1", ownErr.CallerID)
	assert.Equal(t, "u2", ownErr.TargetID)
	assert.Equal(t, codes.PermissionDenied, errors.Code(err))

	// A cashier placing the same order is an assisted sale, not a violation.
	order, err := orders.Create(context.Background(), cashierSubject("c1"), CreateOrderRequest{
		TargetUserID: "u2",
		Items:        []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "u2", order.UserID)
	assert.Equal(t, "c1", order.CashierID)
}

func TestCreateOrderWalkInSale(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	coffee, _ := seedCatalog(t, store)

	order, err := orders.Create(context.Background(), cashierSubject("c1"), CreateOrderRequest{
		Items: []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, order.UserID)
	assert.Equal(t, "c1", order.CashierID)

	// Owners and superadmins work the till too; their walk-in sales keep an
	// attribution instead of persisting ownerless.
	order, err = orders.Create(context.Background(), ownerSubject("boss"), CreateOrderRequest{
		Items: []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, order.UserID)
	assert.Equal(t, "boss", order.CashierID)
}

func TestCreateOrderRejectsUnpurchasable(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	require.NoError(t, store.Create(
		Product{ID: "p-retired", Name: "Retired", PriceCents: 100, Active: false},
		Product{ID: "p-archived", Name: "Archived", PriceCents: 100, Active: true, Archived: true},
	))

	for _, id := range []string{"p-retired", "p-archived", "p-missing"} {
		_, err := orders.Create(context.Background(), userSubject("u1"), CreateOrderRequest{
			Items: []CartItem{{ProductID: id, Quantity: 1}},
		})
		require.Error(t, err, id)
	}

	_, err := orders.Create(context.Background(), userSubject("u1"), CreateOrderRequest{})
	assert.Equal(t, codes.InvalidArgument, errors.Code(err))
}

func seedOrders(t *testing.T, store storage.Store) {
	t.Helper()
	require.NoError(t, store.Create(
		Order{ID: "o1", UserID: "u1", Status: StatusPaid},
		Order{ID: "o2", UserID: "u2", CashierID: "c1", Status: StatusPending},
		Order{ID: "o3", CashierID: "c1", Status: StatusPending},
		Order{ID: "o4", CashierID: "c2", Status: StatusFulfilled},
	))
}

func TestListOrdersScoping(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	seedOrders(t, store)

	orderIDs := func(list []Order) []string {
		ids := make([]string, len(list))
		for i, o := range list {
			ids[i] = o.ID
		}
		return ids
	}

	t.Run("owner sees all", func(t *testing.T) {
		list, err := orders.List(context.Background(), ownerSubject("boss"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"o1", "o2", "o3", "o4"}, orderIDs(list))
	})

	t.Run("cashier sees own sales only", func(t *testing.T) {
		list, err := orders.List(context.Background(), cashierSubject("c1"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"o2", "o3"}, orderIDs(list))
	})

	t.Run("user sees own orders only", func(t *testing.T) {
		list, err := orders.List(context.Background(), userSubject("u1"))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"o1"}, orderIDs(list))
	})

	t.Run("dual role unions without duplicates", func(t *testing.T) {
		subject := authz.Subject{
			ID:            "c1",
			Roles:         []authz.Role{authz.RoleCashier, authz.RoleUser},
			Authenticated: true,
		}
		require.NoError(t, store.Create(Order{ID: "o5", UserID: "c1", CashierID: "c1"}))
		list, err := orders.List(context.Background(), subject)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"o2", "o3", "o5"}, orderIDs(list))
	})

	t.Run("guest sees nothing", func(t *testing.T) {
		list, err := orders.List(context.Background(), authz.Guest())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("empty subject id sees nothing", func(t *testing.T) {
		// A malformed subject without an id must not degrade into a
		// match-everything filter.
		for _, roles := range [][]authz.Role{
			{authz.RoleUser},
			{authz.RoleCashier},
			{authz.RoleCashier, authz.RoleUser},
		} {
			subject := authz.Subject{ID: "", Roles: roles, Authenticated: true}
			list, err := orders.List(context.Background(), subject)
			require.NoError(t, err)
			assert.Empty(t, list, roles)
		}
	})
}

func TestGetOrderOutOfScope(t *testing.T) {
	store := memorystore.New()
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	seedOrders(t, store)

	_, err := orders.Get(context.Background(), userSubject("u1"), "o2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	order, err := orders.Get(context.Background(), userSubject("u1"), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
}

func TestUpdateStatus(t *testing.T) {
	store := memorystore.New()
	bus := &captureBus{}
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, bus)
	seedOrders(t, store)

	// Cashiers hold create_order but not update_order_status.
	_, err := orders.UpdateStatus(context.Background(), cashierSubject("c1"), "o3", StatusPaid)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, authz.PermUpdateOrderStatus, authErr.Permission)

	_, err = orders.UpdateStatus(context.Background(), ownerSubject("boss"), "o1", "shipped")
	assert.Equal(t, codes.InvalidArgument, errors.Code(err))

	// An owner may transition any order; attribution fields are untouched.
	order, err := orders.UpdateStatus(context.Background(), ownerSubject("boss"), "o2", StatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, order.Status)
	assert.Equal(t, "u2", order.UserID)
	assert.Equal(t, "c1", order.CashierID)

	require.Len(t, bus.published, 1)
	event := bus.published[0].data.(OrderStatusChangedEvent)
	assert.Equal(t, StatusPending, event.Previous)
	assert.Equal(t, StatusFulfilled, event.Order.Status)
}

// flakyStore fails line item writes, simulating a backend that dies partway
// through a multi-record write. It intentionally does not expose Transact.
type flakyStore struct {
	storage.Store
}

func (s *flakyStore) Create(models ...storage.Model) error {
	for _, m := range models {
		if _, ok := m.(OrderItem); ok {
			return errors.Codef(codes.Unavailable, "backend gone")
		}
	}
	return s.Store.Create(models...)
}

func TestCreateOrderPartialWrite(t *testing.T) {
	store := &flakyStore{Store: memorystore.New()}
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	coffee, _ := seedCatalog(t, store)

	_, err := orders.Create(context.Background(), userSubject("u1"), CreateOrderRequest{
		Items: []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, codes.DataLoss, errors.Code(err))

	// The header survives; that is exactly what PartialWriteError reports.
	exists, err := store.Exists(partial.OrderID, &Order{})
	require.NoError(t, err)
	assert.True(t, exists)
}

// txFlakyStore layers the same item failure onto a transactional store, so
// the failure happens inside Transact and must roll everything back.
type txFlakyStore struct {
	storage.Store
}

func (s *txFlakyStore) Transact(fn func(storage.Store) error) error {
	return s.Store.(storage.Transacter).Transact(func(tx storage.Store) error {
		return fn(&flakyStore{Store: tx})
	})
}

func TestCreateOrderTransactionalRollback(t *testing.T) {
	store := &txFlakyStore{Store: memorystore.New()}
	orders := NewOrderService(authz.NewGate(authz.DefaultRegistry()), store, nil)
	coffee, _ := seedCatalog(t, store)

	_, err := orders.Create(context.Background(), userSubject("u1"), CreateOrderRequest{
		Items: []CartItem{{ProductID: coffee.ID, Quantity: 1}},
	})
	require.Error(t, err)

	// On a transactional store the header must not leak.
	var partial *PartialWriteError
	assert.False(t, errors.As(err, &partial))
	var headers []Order
	require.NoError(t, store.List(&headers, Order{}))
	assert.Empty(t, headers)
}
