package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/models"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) interfaces.WaitlistRepository {
	return &waitlistRepository{db: db}
}

// Create inserts the entry, returning ErrDuplicateEmail when the normalized email is already present.
func (r *waitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if entry == nil || entry.Email == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		span.SetTag("duplicate", true)
		return ErrDuplicateEmail
	}

	tracing.TagEntity(span, entry.ID)
	return nil
}

func (r *waitlistRepository) GetByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	if id == "" {
		return nil, ErrInvalidInput
	}

	var entry models.WaitlistEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) List(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.List")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(log.Int("limit", limit), log.Int("offset", offset))

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	var entries []*models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return entries, total, nil
}

// ListPendingConfirmations returns entries still waiting for a confirmation mail, oldest first.
// Entries handed to the queue at or after queuedBefore are left to the queue consumer.
func (r *waitlistRepository) ListPendingConfirmations(ctx context.Context, createdBefore, queuedBefore time.Time, maxAttempts, limit int) ([]*models.WaitlistEntry, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.ListPendingConfirmations")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(log.String("createdBefore", createdBefore.String()), log.Int("maxAttempts", maxAttempts))

	if limit <= 0 {
		limit = 100
	}

	var entries []*models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("confirmation_sent_at IS NULL").
		Where("confirmation_attempts < ?", maxAttempts).
		Where("created_at < ?", createdBefore).
		Where("confirmation_queued_at IS NULL OR confirmation_queued_at < ?", queuedBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(log.Int("result.count", len(entries)))
	return entries, nil
}

func (r *waitlistRepository) MarkConfirmationQueued(ctx context.Context, id string, queuedAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.MarkConfirmationQueued")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"confirmation_queued_at": queuedAt,
			"updated_at":             utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *waitlistRepository) MarkConfirmationSent(ctx context.Context, id string, sentAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.MarkConfirmationSent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"confirmation_sent_at":    sentAt,
			"confirmation_attempts":   gorm.Expr("confirmation_attempts + 1"),
			"last_confirmation_error": "",
			"updated_at":              utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *waitlistRepository) RecordConfirmationFailure(ctx context.Context, id string, reason string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.RecordConfirmationFailure")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"confirmation_attempts":   gorm.Expr("confirmation_attempts + 1"),
			"last_confirmation_error": reason,
			"updated_at":              utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *waitlistRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "waitlistRepository.Delete")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	if id == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).Delete(&models.WaitlistEntry{}, "id = ?", id)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
