package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// DedupChecker provides idempotency checks backed by Redis.
// Key format: dedup:<kind>:<device_id>:<unix_millis>:<payload_digest>
type DedupChecker struct {
	client *redis.Client
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client) *DedupChecker {
	return &DedupChecker{client: client}
}

// IsDuplicate reports whether this exact record has already been stored.
func (d *DedupChecker) IsDuplicate(ctx context.Context, kind, deviceID string, ts time.Time, digest string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(kind, deviceID, ts, digest)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this record has been stored (expires after dedupTTL).
func (d *DedupChecker) Mark(ctx context.Context, kind, deviceID string, ts time.Time, digest string) error {
	return d.client.Set(ctx, dedupKey(kind, deviceID, ts, digest), "1", dedupTTL).Err()
}

func dedupKey(kind, deviceID string, ts time.Time, digest string) string {
	return fmt.Sprintf("dedup:%s:%s:%d:%s", kind, deviceID, ts.UnixMilli(), digest)
}
