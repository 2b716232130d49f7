package interfaces

import (
	"context"
	"time"

	"github.com/customeros/waitlist/internal/models"
)

type WaitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	GetByID(ctx context.Context, id string) (*models.WaitlistEntry, error)
	List(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error)
	ListPendingConfirmations(ctx context.Context, createdBefore, queuedBefore time.Time, maxAttempts, limit int) ([]*models.WaitlistEntry, error)
	MarkConfirmationQueued(ctx context.Context, id string, queuedAt time.Time) error
	MarkConfirmationSent(ctx context.Context, id string, sentAt time.Time) error
	RecordConfirmationFailure(ctx context.Context, id string, reason string) error
	Delete(ctx context.Context, id string) error
}

type ScamLogRepository interface {
	Create(ctx context.Context, entry *models.ScamLogEntry) error
	List(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
