package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/accountforge/authcore/permission"
)

// AuthType is a route's declared authentication requirement.
type AuthType int

const (
	// AuthNone skips identity resolution entirely.
	AuthNone AuthType = iota
	// AuthPassword requires email + password (+ TOTP when enrolled).
	AuthPassword
	// AuthBearer requires a valid access token.
	AuthBearer
	// AuthAPIKey requires a structured API key.
	AuthAPIKey
)

var (
	// ErrUnauthenticated is returned when a route requires an identity and
	// none was resolved.
	ErrUnauthenticated = errors.New("identity required")
	// ErrDenied is returned when an authenticated identity fails a role,
	// permission, or policy stage.
	ErrDenied = errors.New("access denied")
)

// Identity is the verified per-request principal the engine evaluates.
// Derived from an external user record or token claims; never persisted
// here.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Perms  permission.Flags
}

// Route is the explicit per-route access declaration.
type Route struct {
	Auth       AuthType
	Roles      []string
	Permission string
	Policies   []string
}

// PolicyFunc is a named policy handler. A nil return allows; a non-nil
// error denies with that reason.
type PolicyFunc func(ctx context.Context, id Identity, route Route) error

// Engine evaluates routes against resolved identities. Policies are
// registered at startup; evaluation is read-only and safe for concurrent
// use.
type Engine struct {
	registry  *permission.Registry
	superRole string

	mu       sync.RWMutex
	policies map[string]PolicyFunc
}

// New creates a decision engine. superRole names the role that bypasses
// role checks (and only role checks); empty disables the bypass.
func New(registry *permission.Registry, superRole string) *Engine {
	return &Engine{
		registry:  registry,
		superRole: superRole,
		policies:  make(map[string]PolicyFunc),
	}
}

// RegisterPolicy binds a handler to a policy name referenced by routes.
func (e *Engine) RegisterPolicy(name string, fn PolicyFunc) error {
	if name == "" {
		return errors.New("policy name cannot be empty")
	}
	if fn == nil {
		return errors.New("policy handler cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.policies[name]; exists {
		return errors.New("policy already registered: " + name)
	}
	e.policies[name] = fn
	return nil
}

// Authorize evaluates route against id in fixed order, short-circuiting
// on the first denial. id may be nil only for AuthNone routes.
func (e *Engine) Authorize(ctx context.Context, id *Identity, route Route) error {
	if route.Auth != AuthNone && id == nil {
		return ErrUnauthenticated
	}
	if id == nil {
		// Anonymous route: role/permission/policy stages have no subject
		// to evaluate, and declaring them on an AuthNone route is a
		// configuration mistake that must fail closed.
		if len(route.Roles) > 0 || route.Permission != "" || len(route.Policies) > 0 {
			return ErrUnauthenticated
		}
		return nil
	}

	if err := e.checkRole(*id, route); err != nil {
		return err
	}
	if err := e.checkPermission(*id, route); err != nil {
		return err
	}
	return e.checkPolicies(ctx, *id, route)
}

func (e *Engine) checkRole(id Identity, route Route) error {
	if len(route.Roles) == 0 {
		return nil
	}
	// Super role skips role membership only; permission and policy stages
	// still apply.
	if e.superRole != "" && id.Role == e.superRole {
		return nil
	}
	for _, role := range route.Roles {
		if id.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q not allowed", ErrDenied, id.Role)
}

func (e *Engine) checkPermission(id Identity, route Route) error {
	if route.Permission == "" {
		return nil
	}
	bit, ok := e.registry.Bit(route.Permission)
	if !ok {
		// Unregistered permission names deny rather than silently allow.
		return fmt.Errorf("%w: unknown permission %q", ErrDenied, route.Permission)
	}
	if !id.Perms.Has(bit) {
		return fmt.Errorf("%w: missing permission %q", ErrDenied, route.Permission)
	}
	return nil
}

func (e *Engine) checkPolicies(ctx context.Context, id Identity, route Route) error {
	for _, name := range route.Policies {
		e.mu.RLock()
		fn, ok := e.policies[name]
		e.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: unknown policy %q", ErrDenied, name)
		}
		if err := fn(ctx, id, route); err != nil {
			return fmt.Errorf("%w: policy %q: %v", ErrDenied, name, err)
		}
	}
	return nil
}
