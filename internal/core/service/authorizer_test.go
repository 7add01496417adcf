package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

func newTestAuthorizer(seed ...*domain.User) *Authorizer {
	return NewAuthorizer(newStubUserRepo(seed...), zerolog.Nop())
}

func TestAuthorizeDevices_Admin(t *testing.T) {
	a := newTestAuthorizer()
	admin := &domain.Principal{UserID: "a-1", Role: domain.RoleAdmin, AllowedDevices: []string{"dev-1", "dev-2"}}

	if err := a.AuthorizeDevices(admin, "dev-1", "dev-2"); err != nil {
		t.Fatalf("expected assigned devices permitted, got %v", err)
	}
	if err := a.AuthorizeDevices(admin, "dev-1", "dev-9"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned device, got %v", err)
	}
}

func TestAuthorizeDevices_SuperAdminNeverForbidden(t *testing.T) {
	a := newTestAuthorizer()
	root := &domain.Principal{UserID: "root", Role: domain.RoleSuperAdmin}

	if err := a.AuthorizeDevices(root, "anything", "else"); err != nil {
		t.Fatalf("expected super admin permitted, got %v", err)
	}
}

// Plain users are not restricted to their own device on resource routes.
func TestAuthorizeDevices_UserIsNotDeviceScoped(t *testing.T) {
	a := newTestAuthorizer()
	user := &domain.Principal{UserID: "u-1", Role: domain.RoleUser, AllowedDevices: []string{"dev-1"}}

	if err := a.AuthorizeDevices(user, "dev-2"); err != nil {
		t.Fatalf("expected user permitted, got %v", err)
	}
}

func TestAuthorizeDevices_NilOrUnknownRole(t *testing.T) {
	a := newTestAuthorizer()

	if err := a.AuthorizeDevices(nil, "dev-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("nil principal: expected ErrForbidden, got %v", err)
	}
	if err := a.AuthorizeDevices(&domain.Principal{Role: "guest"}, "dev-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("unknown role: expected ErrForbidden, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	a := newTestAuthorizer()
	admin := &domain.Principal{Role: domain.RoleAdmin}

	if err := a.RequireRole(admin, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		t.Errorf("expected admin permitted, got %v", err)
	}
	if err := a.RequireRole(admin, domain.RoleSuperAdmin); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := a.RequireRole(nil, domain.RoleUser); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden for nil principal, got %v", err)
	}
}

func TestDeviceScope(t *testing.T) {
	a := newTestAuthorizer()

	tests := []struct {
		name    string
		p       *domain.Principal
		wantAll bool
		wantIDs int
		wantErr bool
	}{
		{"super admin", &domain.Principal{Role: domain.RoleSuperAdmin}, true, 0, false},
		{"admin with devices", &domain.Principal{Role: domain.RoleAdmin, AllowedDevices: []string{"d1", "d2"}}, false, 2, false},
		{"admin without devices", &domain.Principal{Role: domain.RoleAdmin}, false, 0, true},
		{"user", &domain.Principal{Role: domain.RoleUser, AllowedDevices: []string{"d1"}}, false, 0, true},
		{"nil", nil, false, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids, all, err := a.DeviceScope(tc.p)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if all != tc.wantAll || len(ids) != tc.wantIDs {
				t.Errorf("got all=%v ids=%v", all, ids)
			}
		})
	}
}

func TestResolve_ReadsCurrentState(t *testing.T) {
	users := newStubUserRepo(&domain.User{ID: "a-1", Role: domain.RoleAdmin, AllowedDevices: []string{"dev-1"}})
	a := NewAuthorizer(users, zerolog.Nop())
	ctx := context.Background()

	p, err := a.Resolve(ctx, "a-1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if err := a.AuthorizeDevices(p, "dev-2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected dev-2 forbidden before assignment")
	}

	if _, err := users.AddAllowedDevice(ctx, "a-1", "dev-2"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	p, _ = a.Resolve(ctx, "a-1")
	if err := a.AuthorizeDevices(p, "dev-2"); err != nil {
		t.Fatalf("expected dev-2 permitted after assignment, got %v", err)
	}

	if _, err := a.Resolve(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
