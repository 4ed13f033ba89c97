package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
	"google.golang.org/grpc/codes"

	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/logging"
)

// RouteConfig declares the guard conditions for a single path. Entries are
// defined once at startup, typically in storefront.yaml under routes.guards,
// and never mutated at runtime.
//
//	routes:
//	  guards:
//	    /admin:
//	      requireAuth: true
//	      requiredRoles: [superadmin, owner]
//	      requiredPermissions: [access_admin_panel]
//	    /products:
//	      allowGuest: true
type RouteConfig struct {
	// RequireAuth denies unauthenticated subjects outright.
	RequireAuth bool `koanf:"requireAuth"`

	// AllowGuest permits unauthenticated subjects when RequireAuth is false.
	// An unauthenticated subject on a route without AllowGuest is denied.
	AllowGuest bool `koanf:"allowGuest"`

	// RequiredRoles is OR-matched: holding any one listed role suffices.
	RequiredRoles []Role `koanf:"requiredRoles"`

	// RequiredPermissions is OR-matched: holding any one listed permission,
	// through any role, suffices.
	RequiredPermissions []Permission `koanf:"requiredPermissions"`
}

// EvaluateRoute applies the guard conditions in order, short-circuiting on
// the first failure: authentication, guest access, roles, permissions.
//
// The evaluator is advisory. It controls navigation and rendering only, and
// can be bypassed by invoking an operation directly, so the authoritative
// check remains the Gate at the point of data access.
func (g *Gate) EvaluateRoute(cfg RouteConfig, subject Subject) Decision {
	if cfg.RequireAuth && !subject.Authenticated {
		return Decision{Allowed: false, Reason: "authentication required"}
	}
	if !subject.Authenticated && !cfg.AllowGuest {
		return Decision{Allowed: false, Reason: "guests not allowed"}
	}
	if len(cfg.RequiredRoles) > 0 && !subject.HasAnyRole(cfg.RequiredRoles...) {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("requires one of roles: %s", joinRoles(cfg.RequiredRoles)),
		}
	}
	if len(cfg.RequiredPermissions) > 0 {
		granted := false
		for _, p := range cfg.RequiredPermissions {
			if g.reg.HasAny(subject.Roles, p) {
				granted = true
				break
			}
		}
		if !granted {
			d := Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("requires one of permissions: %s", joinPermissions(cfg.RequiredPermissions)),
			}
			if len(cfg.RequiredPermissions) == 1 {
				d.MissingPermission = cfg.RequiredPermissions[0]
			}
			return d
		}
	}
	return Decision{Allowed: true}
}

// RouteTable is the static path → guard mapping for the whole application.
type RouteTable struct {
	gate   *Gate
	guards map[string]RouteConfig
}

// NewRouteTable validates the guard entries against the closed role and
// permission sets and binds them to a gate. A typo in a route's guard should
// fail startup rather than fail closed at navigation time where it would
// look like a permissions bug.
func NewRouteTable(gate *Gate, guards map[string]RouteConfig) (*RouteTable, error) {
	for path, cfg := range guards {
		for _, r := range cfg.RequiredRoles {
			if !KnownRole(r) {
				return nil, errors.Codef(codes.InvalidArgument, "authz: route %q requires unknown role %q", path, r)
			}
		}
		for _, p := range cfg.RequiredPermissions {
			if !KnownPermission(p) {
				return nil, errors.Codef(codes.InvalidArgument, "authz: route %q requires unknown permission %q", path, p)
			}
		}
	}
	return &RouteTable{gate: gate, guards: guards}, nil
}

// LoadRouteTable unmarshals the guard table from a koanf config tree at the
// given key (conventionally "routes.guards") and validates it.
func LoadRouteTable(gate *Gate, k *koanf.Koanf, key string) (*RouteTable, error) {
	guards := map[string]RouteConfig{}
	if err := k.Unmarshal(key, &guards); err != nil {
		return nil, errors.Wrap(err, 0).WithCode(codes.InvalidArgument)
	}
	return NewRouteTable(gate, guards)
}

// Evaluate looks up the guard for a path and evaluates it for the subject.
// Paths with no guard entry are denied: an unlisted route fails closed, so
// forgetting to register a new admin page hides it instead of exposing it.
func (t *RouteTable) Evaluate(ctx context.Context, path string, subject Subject) Decision {
	logging.Track(ctx, "authz.route", path)

	cfg, ok := t.guards[path]
	if !ok {
		logging.Debugw(ctx, "route denied", "reason", "no guard configured")
		return Decision{Allowed: false, Reason: "no guard configured for path"}
	}
	d := t.gate.EvaluateRoute(cfg, subject)
	if !d.Allowed {
		logging.Debugw(ctx, "route denied", "reason", d.Reason, "subject", subject.ID)
	}
	return d
}

// Paths returns the guarded paths, for building navigation menus.
func (t *RouteTable) Paths() []string {
	paths := make([]string, 0, len(t.guards))
	for p := range t.guards {
		paths = append(paths, p)
	}
	return paths
}

func joinRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func joinPermissions(perms []Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
