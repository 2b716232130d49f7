package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"

	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/models"
	"github.com/customeros/waitlist/internal/tracing"
)

type scamLogRepository struct {
	db *gorm.DB
}

func NewScamLogRepository(db *gorm.DB) interfaces.ScamLogRepository {
	return &scamLogRepository{db: db}
}

func (r *scamLogRepository) Create(ctx context.Context, entry *models.ScamLogEntry) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scamLogRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	if entry == nil || entry.Email == "" {
		return ErrInvalidInput
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagEntity(span, entry.ID)
	return nil
}

func (r *scamLogRepository) List(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scamLogRepository.List")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ScamLogEntry{}).Count(&total).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}

	var entries []*models.ScamLogEntry
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

func (r *scamLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scamLogRepository.DeleteOlderThan")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ScamLogEntry{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}

	span.LogFields(log.Int64("result.deleted", result.RowsAffected))
	return result.RowsAffected, nil
}
