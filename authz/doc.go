// Package authz implements the storefront's role based authorization core:
// a static role → permission registry, a rank based role hierarchy, the
// permission gate consulted before every privileged operation, row level
// scope filters for orders and products, and a declarative route guard
// evaluator used to gate UI navigation.
//
// # Design
//
// Roles and permissions are closed, enumerated sets. Permissions are never
// granted implicitly: absence from the registry means denial, and the
// hierarchy is never consulted when answering a permission check. Ranks exist
// only for coarse "is this role at least as privileged" comparisons, such as
// distinguishing superadmin-only panels from shared staff dashboards. A
// cashier outranks a plain user but does not inherit any owner capability.
//
// Multi-role subjects union their permissions (HasAny): a user promoted to
// cashier keeps their shopping capabilities. This is a deliberate business
// rule. Do not replace it with "most restrictive role wins".
//
// Everything here is pure and stateless. The registry is an immutable value
// constructed once at process start and passed by injection into the Gate
// and RouteTable, so the core can be exercised with alternate matrices in
// tests. No function performs I/O, and decisions must be re-derived from the
// subject's current role set on every call; a role grant or revoke takes
// effect on the next check.
//
// # Enforcement model
//
// The route guard is advisory: it decides whether a screen should render,
// and can be bypassed by invoking an operation directly. The authoritative
// check is always the Gate (plus the scope filter) at the point of data
// access, in the shop package's service layer. Both are call sites of the
// same decision functions, so what the UI shows and what the service layer
// allows cannot drift.
//
// Access denial is a normal return value at this layer (false, or a
// deny-all scope). Converting a denial into an error is the workflow layer's
// job (see shop.AuthorizationError), keeping this package trivially
// testable.
//
// # Getting started
//
//	reg := authz.DefaultRegistry()
//	gate := authz.NewGate(reg)
//
//	if !gate.CanAccess(subject.Roles, authz.PermCreateOrder) {
//		// deny
//	}
//
//	scope := gate.ScopeFor(authz.ResourceOrders, subject)
//	// apply scope to the listing query
package authz
