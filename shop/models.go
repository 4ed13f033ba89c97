package shop

import "time"

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusFulfilled OrderStatus = "fulfilled"
	StatusCancelled OrderStatus = "cancelled"
)

// KnownStatus reports whether the status is part of the closed set.
func KnownStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusPaid, StatusFulfilled, StatusCancelled:
		return true
	}
	return false
}

// Order is the persisted order header. Attribution fields drive row
// visibility: UserID names the customer, CashierID names the staff member
// who rang up the sale. A walk-in sale has a CashierID but no UserID.
type Order struct {
	ID         string
	UserID     string
	CashierID  string
	Status     OrderStatus
	TotalCents int64
	Currency   string
	CreatedAt  time.Time
}

func (o Order) PK() string { return o.ID }

// OrderUserID implements authz.OrderRow.
func (o Order) OrderUserID() string { return o.UserID }

// OrderCashierID implements authz.OrderRow.
func (o Order) OrderCashierID() string { return o.CashierID }

// OrderItem is a line on an order. UnitPriceCents is snapshotted from the
// product at creation time; later catalog price changes must not alter
// historical orders.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
}

func (i OrderItem) PK() string { return i.ID }

// Product is a catalog entry. Products carry no owner; staff manage them
// globally and shoppers see only active, unarchived rows.
type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Active      bool
	Archived    bool
}

func (p Product) PK() string { return p.ID }

// ProductActive implements authz.ProductRow.
func (p Product) ProductActive() bool { return p.Active }

// ProductArchived implements authz.ProductRow.
func (p Product) ProductArchived() bool { return p.Archived }

// Purchasable reports whether the product can appear on a new order.
func (p Product) Purchasable() bool { return p.Active && !p.Archived }

// CartItem is a line in a checkout request, before prices are frozen.
type CartItem struct {
	ProductID string
	Quantity  int
}
