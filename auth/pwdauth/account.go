package pwdauth

import (
	"context"

	"github.com/dpup/storefront/auth"
	"github.com/dpup/storefront/authz"
)

type AccountFinder interface {
	// FindAccount looks up a user by their email.
	FindAccount(ctx context.Context, email string) (*Account, error)
}

// Account contains the minimal information needed by the pwdauth plugin to
// authenticate a user. The application should map its own user model to this
// via the AccountFinder interface. Roles are resolved here, at login, and
// baked into the issued subject token.
type Account struct {
	ID             string
	Email          string
	Name           string
	Roles          []authz.Role
	HashedPassword []byte
}

func identityFromAccount(a *Account) auth.Identity {
	return auth.Identity{
		Subject: a.ID,
		Email:   a.Email,
		Name:    a.Name,
		Roles:   a.Roles,
	}
}
