package waitlist

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/internal/enum"
	"github.com/customeros/waitlist/internal/models"
)

type mockWaitlistRepository struct {
	mock.Mock
}

func (m *mockWaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	args := m.Called(ctx, entry)
	if args.Error(0) == nil && entry.ID == "" {
		entry.ID = "wl_test"
	}
	return args.Error(0)
}

func (m *mockWaitlistRepository) GetByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*models.WaitlistEntry)
	return entry, args.Error(1)
}

func (m *mockWaitlistRepository) List(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	entries, _ := args.Get(0).([]*models.WaitlistEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockWaitlistRepository) ListPendingConfirmations(ctx context.Context, createdBefore, queuedBefore time.Time, maxAttempts, limit int) ([]*models.WaitlistEntry, error) {
	args := m.Called(ctx, createdBefore, queuedBefore, maxAttempts, limit)
	entries, _ := args.Get(0).([]*models.WaitlistEntry)
	return entries, args.Error(1)
}

func (m *mockWaitlistRepository) MarkConfirmationQueued(ctx context.Context, id string, queuedAt time.Time) error {
	return m.Called(ctx, id, queuedAt).Error(0)
}

func (m *mockWaitlistRepository) MarkConfirmationSent(ctx context.Context, id string, sentAt time.Time) error {
	return m.Called(ctx, id, sentAt).Error(0)
}

func (m *mockWaitlistRepository) RecordConfirmationFailure(ctx context.Context, id string, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *mockWaitlistRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockScamLogRepository struct {
	mock.Mock
}

func (m *mockScamLogRepository) Create(ctx context.Context, entry *models.ScamLogEntry) error {
	args := m.Called(ctx, entry)
	if args.Error(0) == nil && entry.ID == "" {
		entry.ID = "scam_test"
	}
	return args.Error(0)
}

func (m *mockScamLogRepository) List(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	entries, _ := args.Get(0).([]*models.ScamLogEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockScamLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, message dto.OutgoingMessage) error {
	return m.Called(ctx, message).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error {
	return m.Called(ctx, entityId, entityType, message).Error(0)
}

func (m *mockPublisher) PublishDirectEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error {
	return m.Called(ctx, entityId, entityType, message).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

type staticFilter struct {
	classification enum.AddressClassification
	reason         string
}

func (f staticFilter) Classify(context.Context, string) (enum.AddressClassification, string) {
	return f.classification, f.reason
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *mockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	content, _ := args.Get(0).([]byte)
	return content, args.Error(1)
}
