package domain

import "time"

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

// Provisioning defaults applied when the agent omits settings.
const (
	DefaultScreenTimeLimit = 120 // minutes
	DefaultGeofenceRadius  = 100 // meters
)

// InstalledApp is one application reported by the agent.
type InstalledApp struct {
	AppName      string `json:"app_name" bson:"app_name"`
	PackageName  string `json:"package_name" bson:"package_name"`
	IsRestricted bool   `json:"is_restricted" bson:"is_restricted"`
}

// DeviceSettings holds the parental controls configured for a device.
type DeviceSettings struct {
	ScreenTimeLimit int      `json:"screen_time_limit" bson:"screen_time_limit"`
	GeofenceRadius  int      `json:"geofence_radius" bson:"geofence_radius"`
	AllowedApps     []string `json:"allowed_apps" bson:"allowed_apps"`
	BlockedWebsites []string `json:"blocked_websites" bson:"blocked_websites"`
}

// Device is the canonical record of a monitored device. Devices are provisioned
// before any user may reference them by DeviceID.
type Device struct {
	ID            string         `json:"id" bson:"_id,omitempty"`
	DeviceID      string         `json:"device_id" bson:"device_id"`
	DeviceName    string         `json:"device_name" bson:"device_name"`
	DeviceType    string         `json:"device_type" bson:"device_type"`
	OSVersion     string         `json:"os_version" bson:"os_version"`
	Manufacturer  string         `json:"manufacturer" bson:"manufacturer"`
	LastConnected time.Time      `json:"last_connected" bson:"last_connected"`
	Status        DeviceStatus   `json:"status" bson:"status"`
	ChildID       string         `json:"child_id,omitempty" bson:"child_id,omitempty"`
	BatteryLevel  int            `json:"battery_level" bson:"battery_level"`
	InstalledApps []InstalledApp `json:"installed_apps" bson:"installed_apps"`
	Settings      DeviceSettings `json:"settings" bson:"settings"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}
