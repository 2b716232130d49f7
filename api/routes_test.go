package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/waitlist/api/middleware"
	"github.com/customeros/waitlist/dto"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/metrics"
	"github.com/customeros/waitlist/internal/models"
)

const testAPIKey = "secret"

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
	entries, _ := args.Get(0).([]*models.WaitlistEntry)
	return entries, args.Get(1).(int64), args.Error(2)
}

func (m *mockWaitlistService) ListScamLogs(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	entries, _ := args.Get(0).([]*models.ScamLogEntry)
	return entries, args.Get(1).(int64), args.Error(2)
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

type countingLimiter struct {
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.seen[key]++
	if l.seen[key] > l.limit {
		return false, 1500 * time.Millisecond, nil
	}
	return true, 0, nil
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func setupRouter(service *mockWaitlistService, cfg RouteConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}
	RegisterRoutes(r, service, testLogger(), cfg)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, _ := json.Marshal(b)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	r := setupRouter(new(mockWaitlistService), RouteConfig{})

	rec := doRequest(r, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestJoin_PanicRecoveredOnce(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Once()
	r := setupRouter(service, RouteConfig{})

	// a single recovery middleware is installed engine wide
	assert.Len(t, r.Handlers, 1)

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", map[string]string{"email": "user@example.com"}, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])

	rec = doRequest(r, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJoin_Accepted(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.MatchedBy(func(request dto.JoinRequest) bool {
		return request.Email == "  USER@Example.COM " && request.Source == "landing" && request.IPAddress != ""
	})).Return(&dto.JoinResult{
		Verdict: intake.Result{Email: "user@example.com", Domain: "example.com", Accepted: true},
		Entry:   &models.WaitlistEntry{ID: "wl_1", Email: "user@example.com"},
	}, nil)
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "  USER@Example.COM ", "source": "landing"}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Added to waitlist", body["message"])
	assert.Equal(t, "user@example.com", body["email"])
}

func TestJoin_Rejections(t *testing.T) {
	tests := []struct {
		reason  intake.Reason
		message string
	}{
		{intake.ReasonInvalidFormat, "Invalid email format"},
		{intake.ReasonInvalidDomain, "Invalid email domain"},
		{intake.ReasonFlaggedScam, "Email flagged as suspicious"},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			service := new(mockWaitlistService)
			service.On("Join", mock.Anything, mock.Anything).Return(&dto.JoinResult{
				Verdict: intake.Result{Email: "x", Reason: tt.reason},
			}, nil)
			r := setupRouter(service, RouteConfig{})

			rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "x"}, false)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.reason.String(), body["reason"])
		})
	}
}

func TestJoin_MissingEmail(t *testing.T) {
	service := new(mockWaitlistService)
	r := setupRouter(service, RouteConfig{})

	for _, body := range []interface{}{gin.H{}, gin.H{"email": "   "}, "not json", nil} {
		rec := doRequest(r, http.MethodPost, "/v1/waitlist", body, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required field: email", decode(t, rec)["error"])
	}
	service.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
}

func TestJoin_Duplicate(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.Anything).Return(nil, waitlisterrors.ErrAlreadyOnWaitlist)
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "user@example.com"}, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already on waitlist", decode(t, rec)["error"])
}

func TestJoin_InternalError(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "user@example.com"}, false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestJoin_RateLimited(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.Anything).Return(nil, waitlisterrors.ErrAlreadyOnWaitlist)
	m := metrics.New(prometheus.NewRegistry())
	r := setupRouter(service, RouteConfig{
		Limiter: &countingLimiter{limit: 2, seen: map[string]int{}},
		Metrics: m,
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "user@example.com"}, false)
		assert.Equal(t, http.StatusConflict, rec.Code)
	}

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "user@example.com"}, false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	service.AssertNumberOfCalls(t, "Join", 2)
}

func TestJoin_LimiterErrorAllowsRequest(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Join", mock.Anything, mock.Anything).Return(nil, waitlisterrors.ErrAlreadyOnWaitlist)
	r := setupRouter(service, RouteConfig{Limiter: &countingLimiter{err: errors.New("redis down")}})

	rec := doRequest(r, http.MethodPost, "/v1/waitlist", gin.H{"email": "user@example.com"}, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdmin_RequiresAPIKey(t *testing.T) {
	r := setupRouter(new(mockWaitlistService), RouteConfig{})

	rec := doRequest(r, http.MethodGet, "/v1/admin/waitlist", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing API key", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/waitlist", nil)
	req.Header.Set(middleware.APIKeyHeader, "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", decode(t, rec)["error"])
}

func TestAdmin_Validate(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("Check", mock.Anything, "buyer123456@outlook.com").Return(intake.Result{
		Email: "buyer123456@outlook.com", Domain: "outlook.com", Reason: intake.ReasonFlaggedScam, MatchedRule: "pattern:digits_outlook",
	})
	service.On("Check", mock.Anything, "user@example.com").Return(intake.Result{
		Email: "user@example.com", Domain: "example.com", Accepted: true,
	})
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodPost, "/v1/admin/validate", gin.H{"email": "buyer123456@outlook.com"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["accepted"])
	assert.Equal(t, "flagged_scam", body["reason"])
	assert.Equal(t, "pattern:digits_outlook", body["matchedRule"])

	rec = doRequest(r, http.MethodPost, "/v1/admin/validate", gin.H{"email": "user@example.com"}, true)
	body = decode(t, rec)
	assert.Equal(t, true, body["accepted"])
	assert.NotContains(t, body, "reason")

	service.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
}

func TestAdmin_ListEntries(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("ListEntries", mock.Anything, 10, 20).Return([]*models.WaitlistEntry{{ID: "wl_1", Email: "a@example.com"}}, int64(21), nil)
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodGet, "/v1/admin/waitlist?limit=10&offset=20", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(21), body["total"])
	assert.Len(t, body["entries"], 1)

	rec = doRequest(r, http.MethodGet, "/v1/admin/waitlist?limit=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_ListScamLogs(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("ListScamLogs", mock.Anything, 0, 0).Return([]*models.ScamLogEntry{{ID: "scam_1", MatchedRule: "address"}}, int64(1), nil)
	r := setupRouter(service, RouteConfig{})

	rec := doRequest(r, http.MethodGet, "/v1/admin/scam-logs", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total"])
}

func TestAdmin_RemoveEntry(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("RemoveEntry", mock.Anything, "wl_1").Return(nil)
	service.On("RemoveEntry", mock.Anything, "wl_404").Return(waitlisterrors.ErrEntryNotFound)
	r := setupRouter(service, RouteConfig{})

	assert.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/v1/admin/waitlist/wl_1", nil, true).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodDelete, "/v1/admin/waitlist/wl_404", nil, true).Code)
}

func TestAdmin_ResendConfirmation(t *testing.T) {
	service := new(mockWaitlistService)
	service.On("SendConfirmation", mock.Anything, "wl_1").Return(nil)
	service.On("SendConfirmation", mock.Anything, "wl_404").Return(waitlisterrors.ErrEntryNotFound)
	service.On("SendConfirmation", mock.Anything, "wl_err").Return(errors.New("smtp down"))
	r := setupRouter(service, RouteConfig{})

	assert.Equal(t, http.StatusAccepted, doRequest(r, http.MethodPost, "/v1/admin/waitlist/wl_1/confirmation", nil, true).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodPost, "/v1/admin/waitlist/wl_404/confirmation", nil, true).Code)
	assert.Equal(t, http.StatusBadGateway, doRequest(r, http.MethodPost, "/v1/admin/waitlist/wl_err/confirmation", nil, true).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveVerdict("flagged_scam")
	r := setupRouter(new(mockWaitlistService), RouteConfig{Metrics: m})

	rec := doRequest(r, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "waitlist_intake_verdicts_total")
}
