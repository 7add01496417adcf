package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Rahul-9211/child-tracker-server/internal/api/middleware"
	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

// newJSONContext builds a context whose Echo instance validates like the router.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(middleware.ContextUserID, p.UserID)
	c.Set(middleware.ContextPrincipal, p)
}

type stubAuthService struct {
	signupFn  func(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error)
	signinFn  func(ctx context.Context, email, password string, client domain.ClientInfo) (*ports.AuthResult, error)
	forgotFn  func(ctx context.Context, email string) error
	resetFn   func(ctx context.Context, token, newPassword string) error
	addFn     func(ctx context.Context, callerID, deviceID string) (*domain.User, error)
	authLogFn func(ctx context.Context) ([]domain.AuthLogView, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Signin(ctx context.Context, email, password string, client domain.ClientInfo) (*ports.AuthResult, error) {
	return s.signinFn(ctx, email, password, client)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.resetFn(ctx, token, newPassword)
}

func (s *stubAuthService) AddDevice(ctx context.Context, callerID, deviceID string) (*domain.User, error) {
	return s.addFn(ctx, callerID, deviceID)
}

func (s *stubAuthService) AuthLogs(ctx context.Context) ([]domain.AuthLogView, error) {
	return s.authLogFn(ctx)
}

type stubDeviceService struct {
	listFn       func(ctx context.Context, caller *domain.Principal) ([]*domain.Device, error)
	listPublicFn func(ctx context.Context) ([]*domain.Device, error)
	getFn        func(ctx context.Context, caller *domain.Principal, deviceID string) (*domain.Device, error)
	createFn     func(ctx context.Context, in ports.CreateDeviceInput) (*domain.Device, error)
	updateFn     func(ctx context.Context, caller *domain.Principal, deviceID string, in ports.UpdateDeviceInput) (*domain.Device, error)
	deleteFn     func(ctx context.Context, caller *domain.Principal, deviceID string) error
	assignFn     func(ctx context.Context, caller *domain.Principal, adminID, deviceID string) (*domain.User, error)
}

func (s *stubDeviceService) List(ctx context.Context, caller *domain.Principal) ([]*domain.Device, error) {
	return s.listFn(ctx, caller)
}

func (s *stubDeviceService) ListPublic(ctx context.Context) ([]*domain.Device, error) {
	return s.listPublicFn(ctx)
}

func (s *stubDeviceService) Get(ctx context.Context, caller *domain.Principal, deviceID string) (*domain.Device, error) {
	return s.getFn(ctx, caller, deviceID)
}

func (s *stubDeviceService) Create(ctx context.Context, in ports.CreateDeviceInput) (*domain.Device, error) {
	return s.createFn(ctx, in)
}

func (s *stubDeviceService) Update(ctx context.Context, caller *domain.Principal, deviceID string, in ports.UpdateDeviceInput) (*domain.Device, error) {
	return s.updateFn(ctx, caller, deviceID, in)
}

func (s *stubDeviceService) Delete(ctx context.Context, caller *domain.Principal, deviceID string) error {
	return s.deleteFn(ctx, caller, deviceID)
}

func (s *stubDeviceService) AssignToAdmin(ctx context.Context, caller *domain.Principal, adminID, deviceID string) (*domain.User, error) {
	return s.assignFn(ctx, caller, adminID, deviceID)
}

type stubTelemetryService struct {
	listFn   func(ctx context.Context, in ports.ListTelemetryInput) (*ports.ListTelemetryResult, error)
	latestFn func(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error)
	updateFn func(ctx context.Context, in ports.UpdateTelemetryInput) (*domain.TelemetryRecord, error)
	deleteFn func(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, id string) error
}

func (s *stubTelemetryService) Ingest(context.Context, ports.TelemetryInput) error { return nil }

func (s *stubTelemetryService) List(ctx context.Context, in ports.ListTelemetryInput) (*ports.ListTelemetryResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubTelemetryService) Latest(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error) {
	return s.latestFn(ctx, caller, kind, deviceID)
}

func (s *stubTelemetryService) Update(ctx context.Context, in ports.UpdateTelemetryInput) (*domain.TelemetryRecord, error) {
	return s.updateFn(ctx, in)
}

func (s *stubTelemetryService) Delete(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, id string) error {
	return s.deleteFn(ctx, caller, kind, id)
}

type stubDispatcher struct {
	enqueued []ports.TelemetryInput
	err      error
}

func (s *stubDispatcher) Enqueue(_ context.Context, in ports.TelemetryInput) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, in)
	return nil
}

func (s *stubDispatcher) EnqueueBatch(_ context.Context, batch []ports.TelemetryInput) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.enqueued = append(s.enqueued, batch...)
	return len(batch), nil
}
