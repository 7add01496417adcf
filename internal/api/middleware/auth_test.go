package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/token"
)

func newManager(t *testing.T) *token.Manager {
	t.Helper()
	m, err := token.NewManager("secret")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	m := newManager(t)
	signed, _, err := m.Mint("user-1", token.PurposeSession, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := Auth(m)(func(c echo.Context) error {
		called = true
		if UserID(c) != "user-1" {
			t.Fatalf("user id not set, got %q", UserID(c))
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := newManager(t)
	reset, _, _ := m.Mint("user-1", token.PurposeReset, time.Hour)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
		{"reset token", "Bearer " + reset},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := Auth(m)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

type stubResolver struct {
	principal *domain.Principal
	err       error
}

func (s *stubResolver) Resolve(_ context.Context, userID string) (*domain.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.principal
	p.UserID = userID
	return &p, nil
}

func TestLoadPrincipal_SetsPrincipal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(ContextUserID, "user-7")

	resolver := &stubResolver{principal: &domain.Principal{Role: domain.RoleAdmin, AllowedDevices: []string{"dev-1"}}}
	handler := LoadPrincipal(resolver)(func(c echo.Context) error {
		p := PrincipalFrom(c)
		if p == nil || p.UserID != "user-7" || p.Role != domain.RoleAdmin {
			t.Fatalf("unexpected principal: %+v", p)
		}
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestLoadPrincipal_DeletedUserIsUnauthorized(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(ContextUserID, "user-7")

	handler := LoadPrincipal(&stubResolver{err: domain.ErrUserNotFound})(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoadPrincipal_StoreErrorPropagates(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(ContextUserID, "user-7")

	storeErr := errors.New("connection reset")
	handler := LoadPrincipal(&stubResolver{err: storeErr})(func(c echo.Context) error {
		return nil
	})

	if err := handler(c); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestLoadPrincipal_WithoutAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	handler := LoadPrincipal(&stubResolver{})(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if err := handler(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
