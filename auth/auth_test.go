package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/authz"
)

func configureSigningKey(t *testing.T) {
	t.Helper()
	storefront.LoadConfigDefaults(map[string]interface{}{
		"auth.signingKey": "test-signing-key",
	})
}

func TestSubjectTokenRoundTrip(t *testing.T) {
	configureSigningKey(t)
	ctx := context.Background()

	token, err := SubjectToken(ctx, Identity{
		Subject: "U1",
		Email:   "shopper@example.com",
		Name:    "Pat",
		Roles:   []authz.Role{authz.RoleUser, authz.RoleCashier},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := ParseSubjectToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "U1", identity.Subject)
	assert.Equal(t, "shopper@example.com", identity.Email)
	assert.Equal(t, []authz.Role{authz.RoleUser, authz.RoleCashier}, identity.Roles)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	configureSigningKey(t)
	ctx := context.Background()

	token, err := SubjectToken(ctx, Identity{Subject: "U1", Roles: []authz.Role{authz.RoleUser}})
	require.NoError(t, err)

	_, err = ParseSubjectToken(ctx, token+"x")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestParseRejectsExpiredToken(t *testing.T) {
	configureSigningKey(t)
	ctx := context.Background()

	timeFunc = func() time.Time { return time.Now().Add(-time.Hour * 24 * 365) }
	token, err := SubjectToken(ctx, Identity{Subject: "U1"})
	timeFunc = time.Now
	require.NoError(t, err)

	_, err = ParseSubjectToken(ctx, token)
	require.Error(t, err)
}

func TestParseRejectsUnknownRoleClaim(t *testing.T) {
	configureSigningKey(t)
	ctx := context.Background()

	token, err := SubjectToken(ctx, Identity{Subject: "U1", Roles: []authz.Role{"intern"}})
	require.NoError(t, err)

	_, err = ParseSubjectToken(ctx, token)
	require.Error(t, err)
}

func TestIdentityContextRoundTrip(t *testing.T) {
	ctx := WithIdentityForTest(context.Background(), "U1", authz.RoleUser)

	identity, err := IdentityFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "U1", identity.Subject)

	subject := SubjectFromContext(ctx)
	assert.True(t, subject.Authenticated)
	assert.Equal(t, []authz.Role{authz.RoleUser}, subject.Roles)
}

func TestSubjectFromContextAnonymous(t *testing.T) {
	subject := SubjectFromContext(context.Background())
	assert.False(t, subject.Authenticated)
	assert.Empty(t, subject.Roles)
}

func TestLoginDispatch(t *testing.T) {
	configureSigningKey(t)
	p := Plugin()
	p.AddLoginHandler("static", func(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
		if req.Creds["code"] != "open-sesame" {
			return nil, status.Error(codes.Unauthenticated, "bad code")
		}
		return &LoginResponse{Identity: Identity{Subject: "U1"}}, nil
	})

	ctx := context.Background()
	_, err := p.Login(ctx, &LoginRequest{Provider: "unknown"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = p.Login(ctx, &LoginRequest{Provider: "static", Creds: map[string]string{"code": "nope"}})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := p.Login(ctx, &LoginRequest{Provider: "static", Creds: map[string]string{"code": "open-sesame"}})
	require.NoError(t, err)
	assert.Equal(t, "U1", resp.Identity.Subject)
}
