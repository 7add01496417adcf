package ports

import (
	"context"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// TelemetryFilter carries the query parameters for listing one device's records.
// Authorization on DeviceID is enforced by the service before the query runs.
type TelemetryFilter struct {
	Kind     domain.TelemetryKind
	DeviceID string
	From     time.Time // optional: timestamp >= From
	To       time.Time // optional: timestamp <= To
	Page     int       // 1-based
	Limit    int
}

// TelemetryRepository persists agent telemetry, one collection per kind.
type TelemetryRepository interface {
	Insert(ctx context.Context, record *domain.TelemetryRecord) error
	// List returns a page of records, newest first, and the total match count.
	List(ctx context.Context, filter TelemetryFilter) ([]*domain.TelemetryRecord, int64, error)
	// FindByID returns domain.ErrRecordNotFound when no record matches.
	FindByID(ctx context.Context, kind domain.TelemetryKind, id string) (*domain.TelemetryRecord, error)
	// Latest returns the device's newest record by timestamp, or
	// domain.ErrRecordNotFound when it has none.
	Latest(ctx context.Context, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error)
	// Update sets data, and timestamp when non-zero, on one record and
	// returns the stored result.
	Update(ctx context.Context, kind domain.TelemetryKind, id string, data map[string]any, timestamp time.Time) (*domain.TelemetryRecord, error)
	Delete(ctx context.Context, kind domain.TelemetryKind, id string) error
}
