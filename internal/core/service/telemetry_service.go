package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
	"github.com/Rahul-9211/child-tracker-server/internal/core/ports"
	"github.com/Rahul-9211/child-tracker-server/internal/pkg/metrics"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// DedupChecker abstracts the idempotency store (Redis). Agents resend on poor
// connectivity. A record is identified by kind, device, timestamp and a
// digest of its payload, so two different events in the same millisecond are
// both kept.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, kind, deviceID string, ts time.Time, digest string) (bool, error)
	Mark(ctx context.Context, kind, deviceID string, ts time.Time, digest string) error
}

// payloadDigest fingerprints data. encoding/json sorts map keys, so equal
// payloads always hash the same.
func payloadDigest(data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16]), nil
}

type telemetryService struct {
	repo  ports.TelemetryRepository
	dedup DedupChecker
	authz *Authorizer
	log   zerolog.Logger
	now   func() time.Time
}

// NewTelemetryService returns a TelemetryService implementation.
func NewTelemetryService(
	repo ports.TelemetryRepository,
	dedup DedupChecker,
	authz *Authorizer,
	log zerolog.Logger,
) ports.TelemetryService {
	return &telemetryService{
		repo:  repo,
		dedup: dedup,
		authz: authz,
		log:   log,
		now:   time.Now,
	}
}

// Ingest deduplicates and persists a single record.
func (s *telemetryService) Ingest(ctx context.Context, in ports.TelemetryInput) error {
	kind := string(in.Kind)

	digest, err := payloadDigest(in.Data)
	if err != nil {
		return fmt.Errorf("%w: data: %v", domain.ErrInvalidInput, err)
	}

	// 1. Idempotency check: silently skip duplicates.
	isDup, err := s.dedup.IsDuplicate(ctx, kind, in.DeviceID, in.Timestamp, digest)
	if err != nil {
		s.log.Warn().Err(err).Str("device_id", in.DeviceID).Msg("dedup check failed, processing anyway")
	} else if isDup {
		metrics.TelemetryDedupTotal.WithLabelValues("hit").Inc()
		s.log.Debug().Str("device_id", in.DeviceID).Str("kind", kind).Msg("duplicate record skipped")
		return nil
	}
	metrics.TelemetryDedupTotal.WithLabelValues("miss").Inc()

	// 2. Persist.
	record := &domain.TelemetryRecord{
		Kind:       in.Kind,
		DeviceID:   in.DeviceID,
		Timestamp:  in.Timestamp.UTC(),
		Data:       in.Data,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		metrics.TelemetryErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("ingest %s: %w", kind, err)
	}

	// 3. Mark only after the write, so a failed insert can be retried.
	if err := s.dedup.Mark(ctx, kind, in.DeviceID, in.Timestamp, digest); err != nil {
		s.log.Warn().Err(err).Str("device_id", in.DeviceID).Msg("failed to set dedup key")
	}

	metrics.TelemetryIngestedTotal.WithLabelValues(kind).Inc()
	return nil
}

// List returns one page of a device's records, newest first, after checking
// the caller may read that device.
func (s *telemetryService) List(ctx context.Context, in ports.ListTelemetryInput) (*ports.ListTelemetryResult, error) {
	if err := s.authz.AuthorizeDevices(in.Caller, in.DeviceID); err != nil {
		return nil, err
	}
	if !in.From.IsZero() && !in.To.IsZero() && in.From.After(in.To) {
		return nil, fmt.Errorf("%w: from must not be after to", domain.ErrInvalidInput)
	}

	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	records, total, err := s.repo.List(ctx, ports.TelemetryFilter{
		Kind:     in.Kind,
		DeviceID: in.DeviceID,
		From:     in.From,
		To:       in.To,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", in.Kind, err)
	}

	return &ports.ListTelemetryResult{
		Records:    records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Latest returns the device's newest record of kind.
func (s *telemetryService) Latest(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, deviceID string) (*domain.TelemetryRecord, error) {
	if err := s.authz.AuthorizeDevices(caller, deviceID); err != nil {
		return nil, err
	}
	record, err := s.repo.Latest(ctx, kind, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("latest %s: %w", kind, err)
	}
	return record, nil
}

// Update replaces a record's payload. As with Delete, authorization is checked
// against the device the stored record belongs to, and the record stays on
// that device.
func (s *telemetryService) Update(ctx context.Context, in ports.UpdateTelemetryInput) (*domain.TelemetryRecord, error) {
	if in.Data == nil {
		return nil, fmt.Errorf("%w: data is required", domain.ErrInvalidInput)
	}
	record, err := s.repo.FindByID(ctx, in.Kind, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeDevices(in.Caller, record.DeviceID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, in.Kind, in.ID, in.Data, in.Timestamp)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update %s: %w", in.Kind, err)
	}

	s.log.Info().Str("kind", string(in.Kind)).Str("id", in.ID).Str("updated_by", in.Caller.UserID).Msg("telemetry record updated")
	return updated, nil
}

// Delete removes one record. Authorization is checked against the device the
// record belongs to.
func (s *telemetryService) Delete(ctx context.Context, caller *domain.Principal, kind domain.TelemetryKind, id string) error {
	record, err := s.repo.FindByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.authz.AuthorizeDevices(caller, record.DeviceID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	s.log.Info().Str("kind", string(kind)).Str("id", id).Str("deleted_by", caller.UserID).Msg("telemetry record deleted")
	return nil
}
