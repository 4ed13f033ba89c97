package authz

// Role names a bundle of permissions assigned to a subject. The set of roles
// is closed; there is no runtime role creation.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleOwner      Role = "owner"
	RoleCashier    Role = "cashier"
	RoleUser       Role = "user"
)

// Roles returns the closed set of known roles, most privileged first.
func Roles() []Role {
	return []Role{RoleSuperadmin, RoleOwner, RoleCashier, RoleUser}
}

// KnownRole reports whether the given role is part of the closed set.
func KnownRole(r Role) bool {
	switch r {
	case RoleSuperadmin, RoleOwner, RoleCashier, RoleUser:
		return true
	}
	return false
}

// Hierarchy assigns an integer rank to each role, supporting "is at least as
// privileged as" comparisons.
//
// The hierarchy is for UI labeling and coarse elevation checks only. It must
// never replace an explicit permission check: ranks are totally ordered but
// capabilities are not. A cashier sits above a plain user yet holds none of
// the owner's product-mutation permissions, and deriving permissions from
// rank would silently grant them.
type Hierarchy struct {
	ranks map[Role]int
}

// NewHierarchy builds a hierarchy from roles listed most powerful first,
// mirroring how policies read ("superadmin, owner, cashier, user"). The last
// role gets rank 1; unknown roles rank 0.
func NewHierarchy(roles ...Role) *Hierarchy {
	ranks := make(map[Role]int, len(roles))
	for i, r := range roles {
		ranks[r] = len(roles) - i
	}
	return &Hierarchy{ranks: ranks}
}

// DefaultHierarchy returns the storefront ordering: superadmin=4, owner=3,
// cashier=2, user=1.
func DefaultHierarchy() *Hierarchy {
	return NewHierarchy(RoleSuperadmin, RoleOwner, RoleCashier, RoleUser)
}

// Rank returns the rank of a role. Unknown roles rank 0, below every known
// role.
func (h *Hierarchy) Rank(r Role) int {
	return h.ranks[r]
}

// IsAtLeast reports whether role ranks at or above target.
func (h *Hierarchy) IsAtLeast(role, target Role) bool {
	return h.ranks[role] >= h.ranks[target]
}

// MaxRank returns the highest rank held by any role in the set. Useful for
// labeling a multi-role subject by their most privileged role.
func (h *Hierarchy) MaxRank(roles []Role) int {
	max := 0
	for _, r := range roles {
		if rank := h.ranks[r]; rank > max {
			max = rank
		}
	}
	return max
}
