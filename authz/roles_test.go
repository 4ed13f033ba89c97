package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownRole(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, KnownRole(r), r)
	}
	assert.False(t, KnownRole("manager"))
	assert.False(t, KnownRole(""))
}

func TestDefaultHierarchyRanks(t *testing.T) {
	h := DefaultHierarchy()
	assert.Equal(t, 4, h.Rank(RoleSuperadmin))
	assert.Equal(t, 3, h.Rank(RoleOwner))
	assert.Equal(t, 2, h.Rank(RoleCashier))
	assert.Equal(t, 1, h.Rank(RoleUser))
	assert.Equal(t, 0, h.Rank("manager"))
}

func TestIsAtLeast(t *testing.T) {
	h := DefaultHierarchy()
	assert.True(t, h.IsAtLeast(RoleSuperadmin, RoleOwner))
	assert.True(t, h.IsAtLeast(RoleOwner, RoleOwner))
	assert.False(t, h.IsAtLeast(RoleCashier, RoleOwner))
	// Unknown roles rank below everything.
	assert.False(t, h.IsAtLeast("manager", RoleUser))
	assert.True(t, h.IsAtLeast(RoleUser, "manager"))
}

func TestMaxRank(t *testing.T) {
	h := DefaultHierarchy()
	assert.Equal(t, 0, h.MaxRank(nil))
	assert.Equal(t, 2, h.MaxRank([]Role{RoleUser, RoleCashier}))
	assert.Equal(t, 4, h.MaxRank([]Role{RoleUser, RoleSuperadmin}))
}

// Rank must never stand in for a permission check: a higher-ranked role does
// not inherit a lower role's grants.
func TestRankDoesNotGrantPermissions(t *testing.T) {
	h := DefaultHierarchy()
	reg := DefaultRegistry()

	assert.True(t, h.IsAtLeast(RoleCashier, RoleUser))
	assert.True(t, reg.HasPermission(RoleUser, PermAddToCart))
	assert.False(t, reg.HasPermission(RoleCashier, PermAddToCart))
}
