package ports

import (
	"context"

	"github.com/Rahul-9211/child-tracker-server/internal/core/domain"
)

// AuthLogRepository is the append-only auth audit log.
type AuthLogRepository interface {
	Insert(ctx context.Context, entry *domain.AuthLogEntry) error
	// Recent returns at most limit entries, newest first, joined with the
	// owning user's name and email where the user exists.
	Recent(ctx context.Context, limit int) ([]domain.AuthLogView, error)
}
