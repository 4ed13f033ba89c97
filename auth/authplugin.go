package auth

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dpup/storefront"
	"github.com/dpup/storefront/logging"
)

// LoginRequest carries provider specific credentials, e.g. email/password
// for the pwdauth provider.
type LoginRequest struct {
	Provider string
	Creds    map[string]string
}

// LoginResponse returns the verified identity and a signed subject token the
// client presents on subsequent calls.
type LoginResponse struct {
	Identity Identity
	Token    string
}

// LoginHandler authenticates a set of credentials for one provider.
type LoginHandler func(ctx context.Context, req *LoginRequest) (*LoginResponse, error)

// Plugin returns the auth plugin. Provider plugins such as pwdauth register
// their login handlers against it during Init.
func Plugin() *AuthPlugin {
	return &AuthPlugin{loginHandlers: map[string]LoginHandler{}}
}

type AuthPlugin struct {
	loginHandlers map[string]LoginHandler
}

// From storefront.Plugin.
func (p *AuthPlugin) Name() string {
	return PluginName
}

// From storefront.InitializablePlugin.
func (p *AuthPlugin) Init(ctx context.Context, r *storefront.Registry) error {
	if storefront.ConfigString("auth.signingKey") == "" {
		return status.Error(codes.FailedPrecondition, "auth: plugin requires auth.signingKey to be configured")
	}
	return nil
}

// AddLoginHandler registers a provider's login handler. Registering the same
// provider twice is a programming error and panics during startup.
func (p *AuthPlugin) AddLoginHandler(provider string, handler LoginHandler) {
	if _, exists := p.loginHandlers[provider]; exists {
		panic("auth: duplicate login handler for provider " + provider)
	}
	p.loginHandlers[provider] = handler
}

// Login dispatches the request to the matching provider's handler.
func (p *AuthPlugin) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	handler, ok := p.loginHandlers[req.Provider]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "auth: no login handler for provider %q", req.Provider)
	}
	resp, err := handler(ctx, req)
	if err != nil {
		logging.Warnw(ctx, "login failed", "provider", req.Provider, "error", err)
		return nil, err
	}
	logging.Infow(ctx, "login succeeded", "provider", req.Provider, "subject", resp.Identity.Subject)
	return resp, nil
}
