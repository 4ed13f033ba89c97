package authz

import (
	"context"

	"github.com/dpup/storefront/logging"
)

// Gate answers permission questions against an injected registry. It is the
// single choke point for "may this subject do X": workflows call it before
// privileged operations and the route guard evaluator delegates to it.
type Gate struct {
	reg *Registry
}

// NewGate returns a gate bound to the given registry.
func NewGate(reg *Registry) *Gate {
	return &Gate{reg: reg}
}

// Registry exposes the underlying matrix, for introspection surfaces such as
// an admin permissions page.
func (g *Gate) Registry() *Registry {
	return g.reg
}

// CanAccess reports whether any of the roles holds the permission. Empty
// role sets and unknown tokens report false; there is no error path because
// denial is an expected outcome, not a failure.
func (g *Gate) CanAccess(roles []Role, p Permission) bool {
	return g.reg.HasAny(roles, p)
}

// Decision explains the outcome of a Check, for logging and for building
// user facing denial messages.
type Decision struct {
	Allowed bool
	Reason  string

	// MissingPermission is set on denial to the permission that was required,
	// so callers can surface it without re-deriving the question.
	MissingPermission Permission
}

// Check evaluates a permission for a subject and records the outcome on the
// context logger. Guests are denied before the registry is consulted.
func (g *Gate) Check(ctx context.Context, subject Subject, p Permission) Decision {
	logging.Track(ctx, "authz.permission", string(p))

	if !subject.Authenticated {
		logging.Debugw(ctx, "authz denied", "reason", "unauthenticated")
		return Decision{
			Allowed:           false,
			Reason:            "authentication required",
			MissingPermission: p,
		}
	}
	if !g.reg.HasAny(subject.Roles, p) {
		logging.Debugw(ctx, "authz denied",
			"subject", subject.ID,
			"roles", subject.Roles)
		return Decision{
			Allowed:           false,
			Reason:            "permission not granted to any held role",
			MissingPermission: p,
		}
	}
	return Decision{Allowed: true}
}
