package interfaces

import (
	"context"
	"time"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/models"
)

type Validator interface {
	Validate(ctx context.Context, raw string) intake.Result
}

type WaitlistService interface {
	Join(ctx context.Context, request dto.JoinRequest) (*dto.JoinResult, error)
	Check(ctx context.Context, raw string) intake.Result
	SendConfirmation(ctx context.Context, entryID string) error
	ListEntries(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error)
	ListScamLogs(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error)
	RemoveEntry(ctx context.Context, entryID string) error
	RetryPendingConfirmations(ctx context.Context, olderThan time.Duration, maxAttempts int) (int, error)
	PurgeScamLogs(ctx context.Context, olderThan time.Duration) (int64, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}
