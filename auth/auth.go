// Package auth issues and verifies signed subject tokens for the storefront.
// It authenticates callers and resolves the roles baked into their session;
// it performs no authorization itself, that is the authz package's job.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/authz"
)

const PluginName = "auth"

var (
	// No identity was found within the incoming context.
	ErrNotFound = status.Error(codes.NotFound, "identity not found")

	// The token's expiration date was in the past.
	ErrExpired = status.Error(codes.FailedPrecondition, "token has expired")

	// The token was not signed correctly.
	ErrInvalid = status.Error(codes.InvalidArgument, "token is invalid")

	// Only accept tokens this process issued.
	jwtIssuer = "storefront"

	jwtAudience = "access"

	// Allows for time to be stubbed in tests.
	timeFunc = time.Now
)

// Claims carried by a subject token. Roles are baked in at issue time; a
// role grant or revoke takes effect when the subject next signs in or the
// token is reissued.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (c *Claims) Validate() error {
	for _, r := range c.Roles {
		if !authz.KnownRole(authz.Role(r)) {
			return ErrInvalid
		}
	}
	return nil
}

func signingKey() ([]byte, error) {
	key := storefront.ConfigString("auth.signingKey")
	if key == "" {
		return nil, status.Error(codes.FailedPrecondition, "auth: no signing key configured, set auth.signingKey")
	}
	return []byte(key), nil
}

func tokenExpiration() time.Duration {
	if d := storefront.ConfigDuration("auth.tokenExpiration"); d > 0 {
		return d
	}
	return time.Hour * 24 * 30
}

// SubjectToken creates a signed JWT for the given identity.
func SubjectToken(ctx context.Context, identity Identity) (string, error) {
	key, err := signingKey()
	if err != nil {
		return "", err
	}
	roles := make([]string, len(identity.Roles))
	for i, r := range identity.Roles {
		roles[i] = string(r)
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(timeFunc().Add(tokenExpiration())),
			IssuedAt:  jwt.NewNumericDate(timeFunc()),
			Issuer:    jwtIssuer,
			Subject:   identity.Subject,
		},
		Name:  identity.Name,
		Email: identity.Email,
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ParseSubjectToken takes a signed JWT, validates it, and returns the
// identity encoded within. Invalid and expired tokens error.
func ParseSubjectToken(ctx context.Context, tokenString string) (Identity, error) {
	key, err := signingKey()
	if err != nil {
		return Identity{}, err
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return key, nil
		},
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(timeFunc),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Identity{}, status.Error(codes.InvalidArgument, err.Error())
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		roles := make([]authz.Role, len(claims.Roles))
		for i, r := range claims.Roles {
			roles[i] = authz.Role(r)
		}
		return Identity{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
			Roles:   roles,
		}, nil
	}
	return Identity{}, ErrInvalid
}
