package ports

import (
	"context"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// UserRepository is the credential store. It is the sole writer of users.
//
// Lookups that find nothing return domain.ErrUserNotFound. Create maps a
// uniqueness violation to domain.ErrDuplicateEmail or domain.ErrConflict.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByRole returns any one user holding role.
	FindByRole(ctx context.Context, role domain.Role) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// SetResetToken stores token as the user's only valid reset token. It
	// touches no other field, so concurrent device changes are kept.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// AddAllowedDevice appends deviceID to the user's allowed set unless it is
	// already present, and returns the updated user.
	AddAllowedDevice(ctx context.Context, userID, deviceID string) (*domain.User, error)
	// ConsumeResetToken replaces the password hash and clears the reset token,
	// but only while the stored token still equals token and has not expired at now.
	// It returns domain.ErrInvalidOrExpiredToken when no such user matches.
	ConsumeResetToken(ctx context.Context, userID, token, passwordHash string, now time.Time) error
}
