package ports

import (
	"context"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// DeviceRepository is the device registry.
type DeviceRepository interface {
	// FindByDeviceID returns domain.ErrDeviceNotFound when no device matches.
	FindByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error)
	// List returns every device when deviceIDs is nil, otherwise only those listed.
	List(ctx context.Context, deviceIDs []string) ([]*domain.Device, error)
	// Create returns domain.ErrDuplicateDevice when the device id is taken.
	Create(ctx context.Context, device *domain.Device) error
	// Update applies the non-nil fields of in and returns the stored device,
	// or domain.ErrDeviceNotFound.
	Update(ctx context.Context, deviceID string, in UpdateDeviceInput, now time.Time) (*domain.Device, error)
	// Delete returns domain.ErrDeviceNotFound when no device matches.
	Delete(ctx context.Context, deviceID string) error
}
