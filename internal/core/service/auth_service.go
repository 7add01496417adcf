package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/metrics"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/token"
)

const (
	passwordCost    = 10
	authLogLimit    = 100
	resetSubject    = "Password reset request"
	defaultResetTTL = time.Hour
)

var resetEmail = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. Use the link below within {{.Valid}}:</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not request this, you can ignore this email.</p>`))

// AuthConfig carries the secrets and lifetimes injected at startup.
type AuthConfig struct {
	SuperAdminKey string
	SessionTTL    time.Duration
	ResetTTL      time.Duration
	// ResetURL is the frontend page that receives ?token=<reset token>.
	ResetURL string
}

// AuthService implements signup, signin and the password reset lifecycle.
type AuthService struct {
	users   ports.UserRepository
	devices ports.DeviceRepository
	logs    ports.AuthLogRepository
	tokens  *token.Manager
	mailer  ports.Mailer
	cfg     AuthConfig
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	devices ports.DeviceRepository,
	logs ports.AuthLogRepository,
	tokens *token.Manager,
	mailer ports.Mailer,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = defaultResetTTL
	}
	return &AuthService{
		users:   users,
		devices: devices,
		logs:    logs,
		tokens:  tokens,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Signup registers a new user. An already-registered email is audited against
// the existing account before failing. Super-admin rejections are not audited.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", domain.ErrInvalidInput)
	}
	role := domain.Role(in.Role)
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.audit(ctx, existing.ID, domain.ActionSignup, domain.AuthFailed, in.Client, domain.ReasonEmailExists)
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("signup: lookup email: %w", err)
	}

	if role == domain.RoleSuperAdmin {
		if !s.superAdminKeyMatches(in.SuperAdminKey) {
			return nil, fmt.Errorf("%w: invalid super admin key", domain.ErrForbidden)
		}
		// Best-effort; the partial unique index on role closes the race.
		_, err := s.users.FindByRole(ctx, domain.RoleSuperAdmin)
		switch {
		case err == nil:
			return nil, domain.ErrConflict
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("signup: lookup super admin: %w", err)
		}
	}

	if (role == domain.RoleAdmin || role == domain.RoleUser) && in.DeviceID == "" {
		return nil, fmt.Errorf("%w: device id is required for admin/user signup", domain.ErrInvalidInput)
	}
	if in.DeviceID != "" {
		if err := s.deviceExists(ctx, in.DeviceID); err != nil {
			return nil, err
		}
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	allowed := []string{}
	if in.DeviceID != "" {
		allowed = []string{in.DeviceID}
	}
	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:          email,
		Name:           strings.TrimSpace(in.Name),
		PasswordHash:   hash,
		Role:           role,
		AllowedDevices: allowed,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("signup: create user: %w", err)
	}

	tkn, _, err := s.tokens.Mint(created.ID, token.PurposeSession, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.audit(ctx, created.ID, domain.ActionSignup, domain.AuthSuccess, in.Client, "")
	s.log.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("user signed up")

	return &ports.AuthResult{User: created, Token: tkn}, nil
}

// Signin authenticates by email and password. Unknown email and wrong password
// fail identically; only the audit entry tells them apart.
func (s *AuthService) Signin(ctx context.Context, email, password string, client domain.ClientInfo) (*ports.AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("signin: lookup email: %w", err)
		}
		s.audit(ctx, uuid.NewString(), domain.ActionSignin, domain.AuthFailed, client, domain.ReasonInvalidEmail)
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.audit(ctx, user.ID, domain.ActionSignin, domain.AuthFailed, client, domain.ReasonInvalidPassword)
		return nil, domain.ErrInvalidCredentials
	}

	tkn, _, err := s.tokens.Mint(user.ID, token.PurposeSession, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}

	s.audit(ctx, user.ID, domain.ActionSignin, domain.AuthSuccess, client, "")
	return &ports.AuthResult{User: user, Token: tkn}, nil
}

// ForgotPassword issues a reset token, stores it as the only valid one for the
// user and emails a reset link. A failed send is returned as-is; the stored
// token is not rolled back and stays redeemable.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("forgot password: lookup email: %w", err)
	}

	raw, exp, err := s.tokens.Mint(user.ID, token.PurposeReset, s.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, raw, exp.UTC()); err != nil {
		return fmt.Errorf("forgot password: store token: %w", err)
	}

	body, err := s.renderResetEmail(user, raw)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if err := s.mailer.Send(ctx, user.Email, resetSubject, body); err != nil {
		metrics.PasswordResetEmailsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("forgot password: send email: %w", err)
	}
	metrics.PasswordResetEmailsTotal.WithLabelValues("sent").Inc()

	s.log.Info().Str("user_id", user.ID).Msg("password reset issued")
	return nil
}

// ResetPassword redeems a reset token. The token must verify, match the one
// currently stored on the user, and be inside the stored expiry. Redemption
// clears the stored token, so each token works at most once.
func (s *AuthService) ResetPassword(ctx context.Context, raw, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrInvalidInput)
	}

	claims, err := s.tokens.Parse(raw, token.PurposeReset)
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("reset password: lookup user: %w", err)
	}

	now := s.now().UTC()
	if user.ResetToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.ResetToken), []byte(raw)) != 1 ||
		user.ResetExpiresAt == nil ||
		!now.Before(*user.ResetExpiresAt) {
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.ConsumeResetToken(ctx, user.ID, raw, hash, now); err != nil {
		if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// AddDevice appends deviceID to the caller's own allowed-device set.
func (s *AuthService) AddDevice(ctx context.Context, callerID, deviceID string) (*domain.User, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", domain.ErrInvalidInput)
	}

	user, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.deviceExists(ctx, deviceID); err != nil {
		return nil, err
	}
	if user.HasDevice(deviceID) {
		return nil, domain.ErrAlreadyAssigned
	}

	updated, err := s.users.AddAllowedDevice(ctx, user.ID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("add device: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("device_id", deviceID).Msg("device added to user")
	return updated, nil
}

// AuthLogs returns the most recent audit entries, newest first.
func (s *AuthService) AuthLogs(ctx context.Context) ([]domain.AuthLogView, error) {
	logs, err := s.logs.Recent(ctx, authLogLimit)
	if err != nil {
		return nil, fmt.Errorf("auth logs: %w", err)
	}
	return logs, nil
}

// audit writes one entry. Write failures are logged and counted, never returned.
func (s *AuthService) audit(ctx context.Context, userID string, action domain.AuthAction, status domain.AuthStatus, client domain.ClientInfo, reason string) {
	metrics.AuthAttemptsTotal.WithLabelValues(string(action), string(status)).Inc()

	entry := &domain.AuthLogEntry{
		UserID:        userID,
		Action:        action,
		Status:        status,
		FailureReason: reason,
		DeviceInfo:    client,
		Timestamp:     s.now().UTC(),
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		metrics.AuthAuditWriteFailuresTotal.Inc()
		s.log.Warn().Err(err).
			Str("user_id", userID).
			Str("action", string(action)).
			Str("status", string(status)).
			Msg("failed to write auth audit entry")
	}
}

func (s *AuthService) deviceExists(ctx context.Context, deviceID string) error {
	if _, err := s.devices.FindByDeviceID(ctx, deviceID); err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return err
		}
		return fmt.Errorf("lookup device: %w", err)
	}
	return nil
}

// superAdminKeyMatches compares in constant time. An unset code never matches.
func (s *AuthService) superAdminKeyMatches(key string) bool {
	if s.cfg.SuperAdminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.SuperAdminKey)) == 1
}

func (s *AuthService) renderResetEmail(user *domain.User, raw string) (string, error) {
	link, err := url.Parse(s.cfg.ResetURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := link.Query()
	q.Set("token", raw)
	link.RawQuery = q.Encode()

	var buf bytes.Buffer
	err = resetEmail.Execute(&buf, struct {
		Name  string
		Link  string
		Valid string
	}{Name: user.Name, Link: link.String(), Valid: s.cfg.ResetTTL.String()})
	if err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password exceeds 72 bytes", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
