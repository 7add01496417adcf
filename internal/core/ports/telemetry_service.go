package ports

import (
	"context"
	"time"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// TelemetryInput is the DTO passed from the ingestion endpoint to the service.
type TelemetryInput struct {
	Kind      domain.TelemetryKind
	DeviceID  string
	Timestamp time.Time
	Data      map[string]any
}

// ListTelemetryInput carries the caller and filters for a device read.
type ListTelemetryInput struct {
	Caller   *domain.Principal
	Kind     domain.TelemetryKind
	DeviceID string
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

// ListTelemetryResult is one page of records.
type ListTelemetryResult struct {
	Records    []*domain.TelemetryRecord
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UpdateTelemetryInput replaces the payload of one stored record. A zero
// Timestamp keeps the stored one. The record's device cannot be changed.
type UpdateTelemetryInput struct {
	Caller    *domain.Principal
	Kind      domain.TelemetryKind
	ID        string
	Timestamp time.Time
	Data      map[string]any
}

// TelemetryService ingests agent telemetry and serves it under device scope.
type TelemetryService interface {
	Ingest(ctx context.Context, in TelemetryInput) error
	List(ctx context.Context, in ListTelemetryInput) (*ListTelemetryResult, error)
	// Latest returns the device's newest record of kind.
	Latest(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error)
	Update(ctx context.Context, in UpdateTelemetryInput) (*domain.TelemetryRecord, error)
	Delete(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, id string) error
}
