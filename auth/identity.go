package auth

import (
	"context"

	"github.com/dpup/storefront/authz"
)

// Identity describes an authenticated user, as verified from a subject
// token.
type Identity struct {
	// Stable user identifier. Maps to the `sub` JWT claim.
	Subject string

	// Email address on the account, if available.
	Email string

	// Display name, if available.
	Name string

	// Roles assigned at the time the token was issued.
	Roles []authz.Role
}

// AuthzSubject converts the identity into the subject shape the authz
// package makes decisions about.
func (i Identity) AuthzSubject() authz.Subject {
	return authz.Subject{
		ID:            i.Subject,
		Roles:         i.Roles,
		Authenticated: i.Subject != "",
	}
}

type ctxkey struct{}

// WithIdentity attaches a verified identity to the context. Only call this
// after the subject token has been validated.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxkey{}, identity)
}

// IdentityFromContext returns the verified identity on the context, or
// ErrNotFound if the caller is anonymous.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(ctxkey{}).(Identity)
	if !ok {
		return Identity{}, ErrNotFound
	}
	return identity, nil
}

// SubjectFromContext resolves the authz subject for the caller. Anonymous
// callers get the guest subject rather than an error, since many operations
// are guest-accessible.
func SubjectFromContext(ctx context.Context) authz.Subject {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return authz.Guest()
	}
	return identity.AuthzSubject()
}

// WithIdentityForTest attaches an unverified identity to the context. For
// use in tests only.
func WithIdentityForTest(ctx context.Context, id string, roles ...authz.Role) context.Context {
	return WithIdentity(ctx, Identity{Subject: id, Roles: roles})
}
