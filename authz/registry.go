package authz

import (
	"sort"

	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront/errors"
)

// Registry is the immutable role → permission matrix. Build one with
// NewRegistry or DefaultRegistry at process start and inject it wherever
// authorization decisions are made; do not mutate grants at runtime.
type Registry struct {
	grants map[Role]map[Permission]bool
}

// NewRegistry validates and indexes a grants matrix. Every role and every
// permission token must belong to the closed sets; a typo in a grant table
// should fail process startup, not silently deny at request time.
func NewRegistry(grants map[Role][]Permission) (*Registry, error) {
	indexed := make(map[Role]map[Permission]bool, len(grants))
	for role, perms := range grants {
		if !KnownRole(role) {
			return nil, errors.Codef(codes.InvalidArgument, "authz: unknown role %q in grants", role)
		}
		set := make(map[Permission]bool, len(perms))
		for _, p := range perms {
			if !KnownPermission(p) {
				return nil, errors.Codef(codes.InvalidArgument, "authz: unknown permission %q granted to role %q", p, role)
			}
			set[p] = true
		}
		indexed[role] = set
	}
	return &Registry{grants: indexed}, nil
}

// DefaultRegistry returns the storefront's production grants matrix.
//
// Superadmin and owner hold every permission. Cashiers operate the register:
// they ring up sales and watch the dashboard but cannot touch the catalog or
// administer anything. Users shop. Note that view_dashboard belongs to
// cashiers but view_cart does not; a cashier who also shops carries the user
// role alongside.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(map[Role][]Permission{
		RoleSuperadmin: Permissions(),
		RoleOwner:      Permissions(),
		RoleCashier: {
			PermViewProducts,
			PermCheckout,
			PermViewOwnOrders,
			PermCreateOrder,
			PermViewDashboard,
		},
		RoleUser: {
			PermViewProducts,
			PermViewCart,
			PermAddToCart,
			PermCheckout,
			PermViewOwnOrders,
			PermCreateOrder,
		},
	})
	if err != nil {
		// Unreachable: the default matrix only uses closed-set tokens.
		panic(err)
	}
	return reg
}

// PermissionsOf returns the permissions granted to a single role, sorted for
// stable display. Unknown roles return nil.
func (r *Registry) PermissionsOf(role Role) []Permission {
	set := r.grants[role]
	if len(set) == 0 {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasPermission reports whether a single role holds a permission. Unknown
// roles and unknown permissions always report false.
func (r *Registry) HasPermission(role Role, p Permission) bool {
	return r.grants[role][p]
}

// HasAny reports whether any role in the set holds the permission. This is
// the union rule for multi-role subjects: each additional role can only
// widen access, never narrow it.
func (r *Registry) HasAny(roles []Role, p Permission) bool {
	for _, role := range roles {
		if r.grants[role][p] {
			return true
		}
	}
	return false
}

// AggregatePermissions returns the union of permissions across the role set,
// sorted for stable display. An empty or unknown role set returns nil.
func (r *Registry) AggregatePermissions(roles []Role) []Permission {
	union := make(map[Permission]bool)
	for _, role := range roles {
		for p := range r.grants[role] {
			union[p] = true
		}
	}
	if len(union) == 0 {
		return nil
	}
	perms := make([]Permission, 0, len(union))
	for p := range union {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
