package authz

// Resource identifies a scopeable data set.
type Resource string

const (
	ResourceOrders   Resource = "orders"
	ResourceProducts Resource = "products"
)

// Ownership fields an OwnerClause may name. Shared with callers that
// translate clauses into storage filters.
const (
	OwnerFieldUserID    = "user_id"
	OwnerFieldCashierID = "cashier_id"
)

// OwnerClause restricts rows to those owned by the subject through a named
// field. Multiple clauses on a scope union: a row matches if any clause
// matches. A clause with an empty Value matches nothing; an absent owner id
// must never widen visibility to unowned rows.
type OwnerClause struct {
	// Field is the storage column holding the owner id, OwnerFieldUserID or
	// OwnerFieldCashierID.
	Field string

	// Value is the subject id that must appear in the field.
	Value string
}

// Scope describes which rows of a resource a subject may see. Scopes narrow
// a query; they never widen one. A scope is derived fresh per request from
// the subject's current roles.
//
// The zero scope denies everything. Fail closed: a subject whose roles grant
// no visibility rule at all gets the deny-all scope, not unrestricted
// access.
type Scope struct {
	resource     Resource
	unrestricted bool
	owners       []OwnerClause
	activeOnly   bool
}

// UnrestrictedScope returns a scope that matches every row of the resource.
func UnrestrictedScope(resource Resource) Scope {
	return Scope{resource: resource, unrestricted: true}
}

// DenyAllScope returns a scope that matches no rows.
func DenyAllScope(resource Resource) Scope {
	return Scope{resource: resource}
}

// OwnedScope returns a scope matching rows owned by the subject under any of
// the given clauses.
func OwnedScope(resource Resource, owners ...OwnerClause) Scope {
	return Scope{resource: resource, owners: owners}
}

// ActiveOnlyScope returns the shopper's product scope: active, unarchived
// rows only.
func ActiveOnlyScope(resource Resource) Scope {
	return Scope{resource: resource, activeOnly: true}
}

// Resource returns the resource this scope applies to.
func (s Scope) Resource() Resource { return s.resource }

// Unrestricted reports whether the scope matches every row.
func (s Scope) Unrestricted() bool { return s.unrestricted }

// DenyAll reports whether the scope matches no rows.
func (s Scope) DenyAll() bool {
	return !s.unrestricted && !s.activeOnly && len(s.owners) == 0
}

// OwnerClauses returns the ownership restrictions, for callers that push the
// filter into a storage query instead of matching in memory.
func (s Scope) OwnerClauses() []OwnerClause { return s.owners }

// ActiveOnly reports whether the scope is limited to active, unarchived
// rows.
func (s Scope) ActiveOnly() bool { return s.activeOnly }

// OrderRow is the view of an order a scope needs to match against.
type OrderRow interface {
	OrderUserID() string
	OrderCashierID() string
}

// ProductRow is the view of a product a scope needs to match against.
type ProductRow interface {
	ProductActive() bool
	ProductArchived() bool
}

// Matches reports whether a row is visible under the scope. Rows of the
// wrong type for the scope's resource never match. Applying a scope to rows
// it already admitted returns the same rows; filtering is idempotent.
func (s Scope) Matches(row interface{}) bool {
	if s.unrestricted {
		return true
	}
	switch s.resource {
	case ResourceOrders:
		o, ok := row.(OrderRow)
		if !ok {
			return false
		}
		for _, clause := range s.owners {
			if clause.Value == "" {
				continue
			}
			switch clause.Field {
			case OwnerFieldUserID:
				if o.OrderUserID() == clause.Value {
					return true
				}
			case OwnerFieldCashierID:
				if o.OrderCashierID() == clause.Value {
					return true
				}
			}
		}
		return false
	case ResourceProducts:
		p, ok := row.(ProductRow)
		if !ok {
			return false
		}
		if s.activeOnly {
			return p.ProductActive() && !p.ProductArchived()
		}
		return false
	}
	return false
}

// ScopeFor derives the row visibility scope for a subject on a resource.
//
// Orders: view_all_orders grants unrestricted access. Otherwise each role
// contributes its ownership clause (cashier rows by cashier_id, user rows by
// user_id) and the clauses union. Subjects with neither get deny-all.
//
// Products: view_dashboard grants the full catalog including inactive and
// archived rows. Everyone else, guests included, sees the live catalog only.
func (g *Gate) ScopeFor(resource Resource, subject Subject) Scope {
	switch resource {
	case ResourceOrders:
		if !subject.Authenticated {
			return DenyAllScope(resource)
		}
		if g.reg.HasAny(subject.Roles, PermViewAllOrders) {
			return UnrestrictedScope(resource)
		}
		// Ownership scoping is meaningless without an id. An authenticated
		// subject missing one is malformed; fail closed rather than emit
		// empty-value clauses.
		if subject.ID == "" {
			return DenyAllScope(resource)
		}
		var owners []OwnerClause
		if subject.HasRole(RoleCashier) {
			owners = append(owners, OwnerClause{Field: OwnerFieldCashierID, Value: subject.ID})
		}
		if subject.HasRole(RoleUser) {
			owners = append(owners, OwnerClause{Field: OwnerFieldUserID, Value: subject.ID})
		}
		if len(owners) == 0 {
			return DenyAllScope(resource)
		}
		return OwnedScope(resource, owners...)

	case ResourceProducts:
		if g.reg.HasAny(subject.Roles, PermViewDashboard) {
			return UnrestrictedScope(resource)
		}
		return ActiveOnlyScope(resource)
	}
	return DenyAllScope(resource)
}
