package ports

import (
	"context"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// CreateDeviceInput is the provisioning payload sent by the device agent.
// Zero-valued settings are replaced by the domain defaults.
type CreateDeviceInput struct {
	DeviceID      string
	DeviceName    string
	DeviceType    string
	OSVersion     string
	Manufacturer  string
	LastConnected time.Time
	Status        string
	ChildID       string
	BatteryLevel  int
	InstalledApps []domain.InstalledApp
	Settings      domain.DeviceSettings
}

// UpdateDeviceInput changes the descriptive fields of a device. Nil fields are
// left as stored. The device id itself is immutable.
type UpdateDeviceInput struct {
	DeviceName    *string
	DeviceType    *string
	OSVersion     *string
	Manufacturer  *string
	LastConnected *time.Time
	Status        *string
	ChildID       *string
	BatteryLevel  *int
	InstalledApps []domain.InstalledApp
	Settings      *domain.DeviceSettings
}

// IsEmpty reports whether the input changes nothing.
func (in UpdateDeviceInput) IsEmpty() bool {
	return in.DeviceName == nil && in.DeviceType == nil && in.OSVersion == nil &&
		in.Manufacturer == nil && in.LastConnected == nil && in.Status == nil &&
		in.ChildID == nil && in.BatteryLevel == nil && in.InstalledApps == nil && in.Settings == nil
}

// DeviceService serves the device registry to authenticated callers.
type DeviceService interface {
	List(ctx context.Context, caller *domain.Principal) ([]*domain.Device, error)
	ListPublic(ctx context.Context) ([]*domain.Device, error)
	Get(ctx context.Context, caller *domain.Principal, deviceID string) (*domain.Device, error)
	Create(ctx context.Context, in CreateDeviceInput) (*domain.Device, error)
	Update(ctx context.Context, caller *domain.Principal, deviceID string, in UpdateDeviceInput) (*domain.Device, error)
	Delete(ctx context.Context, caller *domain.Principal, deviceID string) error
	AssignToAdmin(ctx context.Context, caller *domain.Principal, adminID, deviceID string) (*domain.User, error)
}

// PrincipalResolver loads the caller's current role and device set.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.Principal, error)
}
