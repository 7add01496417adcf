package domain

import "time"

// TelemetryKind names one stream of agent telemetry. Each kind is stored in its
// own collection.
type TelemetryKind string

const (
	KindCalls           TelemetryKind = "calls"
	KindSMS             TelemetryKind = "sms"
	KindLocations       TelemetryKind = "locations"
	KindNotifications   TelemetryKind = "notifications"
	KindContacts        TelemetryKind = "contacts"
	KindApplications    TelemetryKind = "applications"
	KindProcessActivity TelemetryKind = "process-activity"
)

var telemetryKinds = map[TelemetryKind]string{
	KindCalls:           "calls",
	KindSMS:             "sms",
	KindLocations:       "locations",
	KindNotifications:   "notifications",
	KindContacts:        "contacts",
	KindApplications:    "applications",
	KindProcessActivity: "process_activities",
}

// ParseTelemetryKind validates a kind taken from a URL path.
func ParseTelemetryKind(s string) (TelemetryKind, error) {
	k := TelemetryKind(s)
	if _, ok := telemetryKinds[k]; !ok {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Collection returns the storage collection that holds records of this kind.
func (k TelemetryKind) Collection() string {
	return telemetryKinds[k]
}

// TelemetryRecord is one datum reported by the device agent. Data is kept
// schemaless; only DeviceID and Timestamp take part in authorization and ordering.
type TelemetryRecord struct {
	ID         string         `json:"id"`
	Kind       TelemetryKind  `json:"kind"`
	DeviceID   string         `json:"device_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}

// TelemetryKinds lists every known kind in a stable order.
func TelemetryKinds() []TelemetryKind {
	return []TelemetryKind{
		KindCalls,
		KindSMS,
		KindLocations,
		KindNotifications,
		KindContacts,
		KindApplications,
		KindProcessActivity,
	}
}
