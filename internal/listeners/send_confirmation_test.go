package listeners

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/internal/enum"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/models"
	"github.com/customeros/waitlist/services/events"
)

type mockWaitlistService struct {
	mock.Mock
}

func (m *mockWaitlistService) Join(ctx context.Context, request dto.JoinRequest) (*dto.JoinResult, error) {
	args := m.Called(ctx, request)
	result, _ := args.Get(0).(*dto.JoinResult)
	return result, args.Error(1)
}

func (m *mockWaitlistService) Check(ctx context.Context, raw string) intake.Result {
	return m.Called(ctx, raw).Get(0).(intake.Result)
}

func (m *mockWaitlistService) SendConfirmation(ctx context.Context, entryID string) error {
	return m.Called(ctx, entryID).Error(0)
}

func (m *mockWaitlistService) ListEntries(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.WaitlistEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockWaitlistService) ListScamLogs(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.ScamLogEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockWaitlistService) RemoveEntry(ctx context.Context, entryID string) error {
	return m.Called(ctx, entryID).Error(0)
}

func (m *mockWaitlistService) RetryPendingConfirmations(ctx context.Context, olderThan time.Duration, maxAttempts int) (int, error) {
	args := m.Called(ctx, olderThan, maxAttempts)
	return args.Int(0), args.Error(1)
}

func (m *mockWaitlistService) PurgeScamLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func sendConfirmationEvent(entryID string) dto.Event {
	event := events.NewEvent(context.Background(), entryID, enum.WAITLIST_ENTRY, dto.SendConfirmation{EntryID: entryID}, "")
	// events arrive JSON-decoded from the queue
	event.Event.Data = map[string]interface{}{"entryId": entryID}
	return event
}

func TestSendConfirmationListener_Handle(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("SendConfirmation", mock.Anything, "wl_1").Return(nil).Once()

	listener := NewSendConfirmationListener(testLogger(), service)
	assert.Equal(t, events.QueueSendConfirmation, listener.GetQueueName())
	assert.Equal(t, "SendConfirmation", listener.GetEventType())

	require.NoError(t, listener.Handle(context.Background(), sendConfirmationEvent("wl_1")))
	service.AssertExpectations(t)
}

func TestSendConfirmationListener_RemovedEntryIsAcknowledged(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("SendConfirmation", mock.Anything, "wl_gone").Return(waitlisterrors.ErrEntryNotFound)

	listener := NewSendConfirmationListener(testLogger(), service)
	assert.NoError(t, listener.Handle(context.Background(), sendConfirmationEvent("wl_gone")))
}

func TestSendConfirmationListener_SendFailureIsReturned(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("SendConfirmation", mock.Anything, "wl_1").Return(errors.New("smtp down"))

	listener := NewSendConfirmationListener(testLogger(), service)
	assert.ErrorContains(t, listener.Handle(context.Background(), sendConfirmationEvent("wl_1")), "smtp down")
}

func TestSendConfirmationListener_InvalidEvent(t *testing.T) {
	service := new(mockWaitlistService)
	listener := NewSendConfirmationListener(testLogger(), service)

	assert.Error(t, listener.Handle(context.Background(), "garbage"))
	service.AssertNotCalled(t, "SendConfirmation", mock.Anything, mock.Anything)
}
