package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryGrants(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleUser, PermCheckout, true},
		{RoleUser, PermViewCart, true},
		{RoleUser, PermEditProduct, false},
		{RoleUser, PermViewAllOrders, false},
		{RoleCashier, PermViewDashboard, true},
		{RoleCashier, PermCreateOrder, true},
		{RoleCashier, PermEditProduct, false},
		{RoleCashier, PermViewCart, false},
		{RoleCashier, PermViewAllOrders, false},
		{RoleOwner, PermDeleteProduct, true},
		{RoleOwner, PermViewAllOrders, true},
		{RoleSuperadmin, PermViewAuditLogs, true},
		{RoleSuperadmin, PermAddToCart, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reg.HasPermission(tt.role, tt.perm),
			"%s / %s", tt.role, tt.perm)
	}
}

func TestAdminRolesHoldEveryPermission(t *testing.T) {
	reg := DefaultRegistry()
	for _, p := range Permissions() {
		assert.True(t, reg.HasPermission(RoleSuperadmin, p), "superadmin missing %s", p)
		assert.True(t, reg.HasPermission(RoleOwner, p), "owner missing %s", p)
	}
}

// Rank must never leak into permission checks. Cashier outranks user but
// does not inherit user grants, and no role gains view_all_orders from
// sitting above another in the hierarchy.
func TestNoRankBasedInheritance(t *testing.T) {
	reg := DefaultRegistry()
	h := DefaultHierarchy()

	require.True(t, h.IsAtLeast(RoleCashier, RoleUser))
	assert.False(t, reg.HasPermission(RoleCashier, PermViewCart))
	assert.False(t, reg.HasPermission(RoleCashier, PermAddToCart))
	assert.False(t, reg.HasPermission(RoleCashier, PermViewAllOrders))
}

func TestHasAnyIsUnion(t *testing.T) {
	reg := DefaultRegistry()

	assert.False(t, reg.HasAny([]Role{RoleUser, RoleCashier}, PermViewAllOrders))
	assert.True(t, reg.HasAny([]Role{RoleUser, RoleOwner}, PermViewAllOrders))

	// A user promoted to cashier keeps shopping capabilities and gains the
	// dashboard. Union, not intersection.
	both := []Role{RoleUser, RoleCashier}
	assert.True(t, reg.HasAny(both, PermViewCart))
	assert.True(t, reg.HasAny(both, PermViewDashboard))
}

func TestHasAnyEmptyAndUnknown(t *testing.T) {
	reg := DefaultRegistry()

	assert.False(t, reg.HasAny(nil, PermViewProducts))
	assert.False(t, reg.HasAny([]Role{Role("intern")}, PermViewProducts))
	assert.False(t, reg.HasAny([]Role{RoleUser}, Permission("fly")))
}

func TestAggregatePermissions(t *testing.T) {
	reg := DefaultRegistry()

	perms := reg.AggregatePermissions([]Role{RoleUser, RoleCashier})
	assert.Contains(t, perms, PermViewCart)
	assert.Contains(t, perms, PermViewDashboard)
	assert.NotContains(t, perms, PermManageUsers)

	assert.Nil(t, reg.AggregatePermissions(nil))
	assert.Len(t, reg.AggregatePermissions([]Role{RoleOwner}), len(Permissions()))
}

func TestNewRegistryRejectsUnknownTokens(t *testing.T) {
	_, err := NewRegistry(map[Role][]Permission{
		Role("intern"): {PermViewProducts},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intern")

	_, err = NewRegistry(map[Role][]Permission{
		RoleUser: {Permission("teleport")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestHierarchyRanks(t *testing.T) {
	h := DefaultHierarchy()

	assert.Equal(t, 4, h.Rank(RoleSuperadmin))
	assert.Equal(t, 3, h.Rank(RoleOwner))
	assert.Equal(t, 2, h.Rank(RoleCashier))
	assert.Equal(t, 1, h.Rank(RoleUser))
	assert.Equal(t, 0, h.Rank(Role("intern")))

	assert.True(t, h.IsAtLeast(RoleOwner, RoleCashier))
	assert.True(t, h.IsAtLeast(RoleOwner, RoleOwner))
	assert.False(t, h.IsAtLeast(RoleUser, RoleCashier))

	assert.Equal(t, 2, h.MaxRank([]Role{RoleUser, RoleCashier}))
	assert.Equal(t, 0, h.MaxRank(nil))
}
