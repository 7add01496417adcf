package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
)

type DeviceService struct {
	devices ports.DeviceRepository
	users   ports.UserRepository
	authz   *Authorizer
	log     zerolog.Logger
	now     func() time.Time
}

func NewDeviceService(devices ports.DeviceRepository, users ports.UserRepository, authz *Authorizer, log zerolog.Logger) *DeviceService {
	return &DeviceService{devices: devices, users: users, authz: authz, log: log, now: time.Now}
}

// List returns the devices visible to caller.
func (s *DeviceService) List(ctx context.Context, caller *domain.Principal) ([]*domain.Device, error) {
	ids, all, err := s.authz.DeviceScope(caller)
	if err != nil {
		return nil, err
	}
	if all {
		ids = nil
	}
	devices, err := s.devices.List(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// ListPublic returns every device without a caller. It backs the agent-facing
// public listing.
func (s *DeviceService) ListPublic(ctx context.Context) ([]*domain.Device, error) {
	devices, err := s.devices.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// Get returns one device if caller may see it.
func (s *DeviceService) Get(ctx context.Context, caller *domain.Principal, deviceID string) (*domain.Device, error) {
	device, err := s.devices.FindByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeDevices(caller, device.DeviceID); err != nil {
		return nil, err
	}
	return device, nil
}

// Create provisions a device reported by the agent.
func (s *DeviceService) Create(ctx context.Context, in ports.CreateDeviceInput) (*domain.Device, error) {
	if in.DeviceID == "" || in.DeviceName == "" || in.DeviceType == "" || in.OSVersion == "" || in.Manufacturer == "" {
		return nil, fmt.Errorf("%w: device_id, device_name, device_type, os_version and manufacturer are required", domain.ErrInvalidInput)
	}
	if in.BatteryLevel < 0 || in.BatteryLevel > 100 {
		return nil, fmt.Errorf("%w: battery_level must be between 0 and 100", domain.ErrInvalidInput)
	}

	status := domain.DeviceStatus(in.Status)
	switch status {
	case "":
		status = domain.DeviceInactive
	case domain.DeviceActive, domain.DeviceInactive:
	default:
		return nil, fmt.Errorf("%w: status must be active or inactive", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	lastConnected := in.LastConnected
	if lastConnected.IsZero() {
		lastConnected = now
	}

	settings := in.Settings
	if settings.ScreenTimeLimit == 0 {
		settings.ScreenTimeLimit = domain.DefaultScreenTimeLimit
	}
	if settings.GeofenceRadius == 0 {
		settings.GeofenceRadius = domain.DefaultGeofenceRadius
	}
	if settings.AllowedApps == nil {
		settings.AllowedApps = []string{}
	}
	if settings.BlockedWebsites == nil {
		settings.BlockedWebsites = []string{}
	}
	apps := in.InstalledApps
	if apps == nil {
		apps = []domain.InstalledApp{}
	}

	device := &domain.Device{
		DeviceID:      in.DeviceID,
		DeviceName:    in.DeviceName,
		DeviceType:    in.DeviceType,
		OSVersion:     in.OSVersion,
		Manufacturer:  in.Manufacturer,
		LastConnected: lastConnected.UTC(),
		Status:        status,
		ChildID:       in.ChildID,
		BatteryLevel:  in.BatteryLevel,
		InstalledApps: apps,
		Settings:      settings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.devices.Create(ctx, device); err != nil {
		if errors.Is(err, domain.ErrDuplicateDevice) {
			return nil, err
		}
		return nil, fmt.Errorf("create device: %w", err)
	}

	s.log.Info().Str("device_id", device.DeviceID).Msg("device provisioned")
	return device, nil
}

// Update changes a device's descriptive fields. Only the super admin and admins
// assigned to the device may update it. Access is checked before the lookup so
// an unassigned admin cannot learn which device ids exist.
//
//	caller                  unknown device   assigned   not assigned
//	super_admin             404              200        200
//	admin                   403              200        403
//	user                    403              403        403
func (s *DeviceService) Update(ctx context.Context, caller *domain.Principal, deviceID string, in ports.UpdateDeviceInput) (*domain.Device, error) {
	if err := s.authz.RequireRole(caller, domain.RoleSuperAdmin, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeDevices(caller, deviceID); err != nil {
		return nil, err
	}
	if err := validateDeviceUpdate(&in); err != nil {
		return nil, err
	}

	device, err := s.devices.Update(ctx, deviceID, in, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update device: %w", err)
	}

	s.log.Info().Str("device_id", deviceID).Str("updated_by", caller.UserID).Msg("device updated")
	return device, nil
}

// Delete removes a device from the registry. Only the super admin may delete.
// Admin assignments that name the device are left in place and simply stop
// matching anything.
func (s *DeviceService) Delete(ctx context.Context, caller *domain.Principal, deviceID string) error {
	if err := s.authz.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return fmt.Errorf("%w: only super admin can delete devices", err)
	}
	if err := s.devices.Delete(ctx, deviceID); err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return err
		}
		return fmt.Errorf("delete device: %w", err)
	}

	s.log.Info().Str("device_id", deviceID).Str("deleted_by", caller.UserID).Msg("device deleted")
	return nil
}

func validateDeviceUpdate(in *ports.UpdateDeviceInput) error {
	if in.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	for name, v := range map[string]*string{
		"device_name":  in.DeviceName,
		"device_type":  in.DeviceType,
		"os_version":   in.OSVersion,
		"manufacturer": in.Manufacturer,
	} {
		if v != nil && *v == "" {
			return fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, name)
		}
	}
	if in.BatteryLevel != nil && (*in.BatteryLevel < 0 || *in.BatteryLevel > 100) {
		return fmt.Errorf("%w: battery_level must be between 0 and 100", domain.ErrInvalidInput)
	}
	if in.Status != nil {
		switch domain.DeviceStatus(*in.Status) {
		case domain.DeviceActive, domain.DeviceInactive:
		default:
			return fmt.Errorf("%w: status must be active or inactive", domain.ErrInvalidInput)
		}
	}
	if in.LastConnected != nil {
		t := in.LastConnected.UTC()
		in.LastConnected = &t
	}
	if in.Settings != nil {
		settings := *in.Settings
		if settings.AllowedApps == nil {
			settings.AllowedApps = []string{}
		}
		if settings.BlockedWebsites == nil {
			settings.BlockedWebsites = []string{}
		}
		in.Settings = &settings
	}
	return nil
}

// AssignToAdmin grants an admin access to a device. Only the super admin may
// assign. Assigning a device the admin already holds is a no-op.
func (s *DeviceService) AssignToAdmin(ctx context.Context, caller *domain.Principal, adminID, deviceID string) (*domain.User, error) {
	if err := s.authz.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, fmt.Errorf("%w: only super admin can assign devices", err)
	}

	admin, err := s.users.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, fmt.Errorf("assign device: lookup admin: %w", err)
	}
	if admin.Role != domain.RoleAdmin {
		return nil, domain.ErrAdminNotFound
	}

	if _, err := s.devices.FindByDeviceID(ctx, deviceID); err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("assign device: lookup device: %w", err)
	}

	if admin.HasDevice(deviceID) {
		return admin, nil
	}

	updated, err := s.users.AddAllowedDevice(ctx, admin.ID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("assign device: %w", err)
	}
	s.log.Info().
		Str("admin_id", admin.ID).
		Str("device_id", deviceID).
		Str("assigned_by", caller.UserID).
		Msg("device assigned to admin")
	return updated, nil
}
