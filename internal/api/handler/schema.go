package handler

import (
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type signupRequest struct {
	Email         string `json:"email"           validate:"required,email"`
	Password      string `json:"password"        validate:"required"`
	Name          string `json:"name"            validate:"required"`
	Role          string `json:"role"            validate:"omitempty,oneof=super_admin admin user"`
	DeviceID      string `json:"device_id"`
	SuperAdminKey string `json:"super_admin_key"`
}

type signinRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"        validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type addDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type userMessageResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// --- Devices ---

type installedAppRequest struct {
	AppName      string `json:"app_name"     validate:"required"`
	PackageName  string `json:"package_name" validate:"required"`
	IsRestricted bool   `json:"is_restricted"`
}

type deviceSettingsRequest struct {
	ScreenTimeLimit int      `json:"screen_time_limit" validate:"gte=0"`
	GeofenceRadius  int      `json:"geofence_radius"   validate:"gte=0"`
	AllowedApps     []string `json:"allowed_apps"`
	BlockedWebsites []string `json:"blocked_websites"`
}

type createDeviceRequest struct {
	DeviceID      string                 `json:"device_id"      validate:"required"`
	DeviceName    string                 `json:"device_name"    validate:"required"`
	DeviceType    string                 `json:"device_type"    validate:"required"`
	OSVersion     string                 `json:"os_version"     validate:"required"`
	Manufacturer  string                 `json:"manufacturer"   validate:"required"`
	LastConnected time.Time              `json:"last_connected"`
	Status        string                 `json:"status"         validate:"omitempty,oneof=active inactive"`
	ChildID       string                 `json:"child_id"`
	BatteryLevel  int                    `json:"battery_level"  validate:"gte=0,lte=100"`
	InstalledApps []installedAppRequest  `json:"installed_apps" validate:"omitempty,dive"`
	Settings      *deviceSettingsRequest `json:"settings"`
}

// updateDeviceRequest is a partial update: absent fields are left as stored.
// Field values are checked by the device service.
type updateDeviceRequest struct {
	DeviceName    *string                `json:"device_name"`
	DeviceType    *string                `json:"device_type"`
	OSVersion     *string                `json:"os_version"`
	Manufacturer  *string                `json:"manufacturer"`
	LastConnected *time.Time             `json:"last_connected"`
	Status        *string                `json:"status"`
	ChildID       *string                `json:"child_id"`
	BatteryLevel  *int                   `json:"battery_level"`
	InstalledApps []installedAppRequest  `json:"installed_apps" validate:"omitempty,dive"`
	Settings      *deviceSettingsRequest `json:"settings"`
}

type assignDeviceRequest struct {
	AdminID  string `json:"admin_id"  validate:"required"`
	DeviceID string `json:"device_id" validate:"required"`
}

type assignDeviceResponse struct {
	Message string       `json:"message"`
	Admin   *domain.User `json:"admin"`
}

// --- Telemetry ---

type telemetryRequest struct {
	DeviceID  string         `json:"device_id" validate:"required"`
	Timestamp time.Time      `json:"timestamp" validate:"required"`
	Data      map[string]any `json:"data"`
}

// updateTelemetryRequest replaces a stored record's data. The device a record
// belongs to cannot be changed.
type updateTelemetryRequest struct {
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type telemetryListResponse struct {
	Records    []*domain.TelemetryRecord `json:"records"`
	Pagination paginationResponse        `json:"pagination"`
}
