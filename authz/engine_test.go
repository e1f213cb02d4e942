package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/accountforge/authcore/permission"
)

func newTestEngine(t *testing.T, superRole string) *Engine {
	t.Helper()
	reg := permission.NewRegistry()
	for _, name := range []string{"reports.read", "reports.write"} {
		if _, err := reg.Register(name); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	reg.Freeze()
	return New(reg, superRole)
}

func flagsFor(t *testing.T, e *Engine, names ...string) permission.Flags {
	t.Helper()
	var f permission.Flags
	for _, name := range names {
		bit, ok := e.registry.Bit(name)
		if !ok {
			t.Fatalf("unknown permission %s", name)
		}
		f = f.With(bit)
	}
	return f
}

func TestAuthorizeAnonymousRoutes(t *testing.T) {
	e := newTestEngine(t, "")
	ctx := context.Background()

	if err := e.Authorize(ctx, nil, Route{Auth: AuthNone}); err != nil {
		t.Fatalf("plain AuthNone should allow, got %v", err)
	}
	if err := e.Authorize(ctx, nil, Route{Auth: AuthBearer}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("missing identity should fail, got %v", err)
	}

	// Declaring subject stages on an anonymous route is a config mistake
	// and must fail closed.
	for _, route := range []Route{
		{Auth: AuthNone, Roles: []string{"admin"}},
		{Auth: AuthNone, Permission: "reports.read"},
		{Auth: AuthNone, Policies: []string{"any"}},
	} {
		if err := e.Authorize(ctx, nil, route); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("route %+v should fail closed, got %v", route, err)
		}
	}
}

func TestAuthorizeStageOrderShortCircuits(t *testing.T) {
	e := newTestEngine(t, "")
	policyCalls := 0
	if err := e.RegisterPolicy("count", func(context.Context, Identity, Route) error {
		policyCalls++
		return nil
	}); err != nil {
		t.Fatalf("RegisterPolicy failed: %v", err)
	}

	id := Identity{UserID: "u1", Role: "member"}
	route := Route{
		Auth:       AuthBearer,
		Roles:      []string{"admin"},
		Permission: "reports.read",
		Policies:   []string{"count"},
	}

	// Role stage denies first; later stages never run.
	if err := e.Authorize(context.Background(), &id, route); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if policyCalls != 0 {
		t.Fatalf("policy ran despite earlier denial: %d calls", policyCalls)
	}

	// With the role satisfied the permission stage denies, still before
	// any policy.
	id.Role = "admin"
	if err := e.Authorize(context.Background(), &id, route); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if policyCalls != 0 {
		t.Fatalf("policy ran despite permission denial: %d calls", policyCalls)
	}

	id.Perms = flagsFor(t, e, "reports.read")
	if err := e.Authorize(context.Background(), &id, route); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if policyCalls != 1 {
		t.Fatalf("expected one policy evaluation, got %d", policyCalls)
	}
}

func TestPoliciesRunInDeclarationOrder(t *testing.T) {
	e := newTestEngine(t, "")
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		fail := name == "second"
		if err := e.RegisterPolicy(name, func(context.Context, Identity, Route) error {
			order = append(order, name)
			if fail {
				return errors.New("denied here")
			}
			return nil
		}); err != nil {
			t.Fatalf("RegisterPolicy failed: %v", err)
		}
	}

	id := Identity{UserID: "u1"}
	route := Route{Auth: AuthBearer, Policies: []string{"first", "second", "third"}}
	if err := e.Authorize(context.Background(), &id, route); !errors.Is(err, ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected policy order %v", order)
	}
}

func TestUnknownNamesDeny(t *testing.T) {
	e := newTestEngine(t, "")
	id := Identity{UserID: "u1", Role: "admin"}

	if err := e.Authorize(context.Background(), &id, Route{Auth: AuthBearer, Permission: "ghost.perm"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("unknown permission must deny, got %v", err)
	}
	if err := e.Authorize(context.Background(), &id, Route{Auth: AuthBearer, Policies: []string{"ghost"}}); !errors.Is(err, ErrDenied) {
		t.Fatalf("unknown policy must deny, got %v", err)
	}
}

func TestSuperRoleScope(t *testing.T) {
	e := newTestEngine(t, "super")
	super := Identity{UserID: "root", Role: "super"}

	if err := e.Authorize(context.Background(), &super, Route{Auth: AuthBearer, Roles: []string{"admin"}}); err != nil {
		t.Fatalf("super should pass role stage, got %v", err)
	}
	if err := e.Authorize(context.Background(), &super, Route{Auth: AuthBearer, Permission: "reports.write"}); !errors.Is(err, ErrDenied) {
		t.Fatalf("super must not bypass permission stage, got %v", err)
	}

	denyAll := func(context.Context, Identity, Route) error { return errors.New("no") }
	if err := e.RegisterPolicy("deny-all", denyAll); err != nil {
		t.Fatalf("RegisterPolicy failed: %v", err)
	}
	if err := e.Authorize(context.Background(), &super, Route{Auth: AuthBearer, Policies: []string{"deny-all"}}); !errors.Is(err, ErrDenied) {
		t.Fatalf("super must not bypass policies, got %v", err)
	}
}

func TestRegisterPolicyDuplicate(t *testing.T) {
	e := newTestEngine(t, "")
	fn := func(context.Context, Identity, Route) error { return nil }
	if err := e.RegisterPolicy("p", fn); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := e.RegisterPolicy("p", fn); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
