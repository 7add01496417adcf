package ports

import (
	"context"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// SignupInput carries the signup request as received by the transport layer.
type SignupInput struct {
	Email         string
	Password      string
	Name          string
	Role          string
	DeviceID      string
	SuperAdminKey string
	Client        domain.ClientInfo
}

// AuthResult is returned by a successful signup or signin.
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService owns credential issuance and the password reset lifecycle.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Signin(ctx context.Context, email, password string, client domain.ClientInfo) (*AuthResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	AddDevice(ctx context.Context, callerID, deviceID string) (*domain.User, error)
	AuthLogs(ctx context.Context) ([]domain.AuthLogView, error)
}

// Mailer delivers a single HTML email. Errors are fatal to the caller; there is
// no retry or queueing.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
