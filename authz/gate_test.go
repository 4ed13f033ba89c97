package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAccess(t *testing.T) {
	gate := NewGate(DefaultRegistry())

	// A shopper can check out.
	assert.True(t, gate.CanAccess([]Role{RoleUser}, PermCheckout))

	// A cashier cannot touch the catalog.
	assert.False(t, gate.CanAccess([]Role{RoleCashier}, PermEditProduct))

	assert.False(t, gate.CanAccess(nil, PermViewProducts))
}

func TestCheckDeniesGuests(t *testing.T) {
	gate := NewGate(DefaultRegistry())

	d := gate.Check(context.Background(), Guest(), PermViewProducts)
	assert.False(t, d.Allowed)
	assert.Equal(t, "authentication required", d.Reason)
	assert.Equal(t, PermViewProducts, d.MissingPermission)
}

func TestCheckDeniedNamesPermission(t *testing.T) {
	gate := NewGate(DefaultRegistry())
	cashier := Subject{ID: "C1", Roles: []Role{RoleCashier}, Authenticated: true}

	d := gate.Check(context.Background(), cashier, PermEditProduct)
	assert.False(t, d.Allowed)
	assert.Equal(t, PermEditProduct, d.MissingPermission)
	assert.NotEmpty(t, d.Reason)
}

func TestCheckAllowed(t *testing.T) {
	gate := NewGate(DefaultRegistry())
	shopper := Subject{ID: "U1", Roles: []Role{RoleUser}, Authenticated: true}

	d := gate.Check(context.Background(), shopper, PermCheckout)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
	assert.Empty(t, d.MissingPermission)
}

// Decisions derive from the role set passed in, so revoking a role changes
// the outcome on the next call with no cache to invalidate.
func TestCheckReflectsCurrentRoles(t *testing.T) {
	gate := NewGate(DefaultRegistry())
	s := Subject{ID: "U1", Roles: []Role{RoleOwner}, Authenticated: true}

	assert.True(t, gate.Check(context.Background(), s, PermManageUsers).Allowed)

	s.Roles = []Role{RoleUser}
	assert.False(t, gate.Check(context.Background(), s, PermManageUsers).Allowed)
}
