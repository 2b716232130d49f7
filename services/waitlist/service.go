package waitlist

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/enum"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/metrics"
	"github.com/customeros/waitlist/internal/models"
	"github.com/customeros/waitlist/internal/repository"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
	"github.com/customeros/waitlist/services/mailer"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	retryBatchSize  = 100

	// QueuedConfirmationGrace is how long a published confirmation belongs to the queue
	// consumer before the retry job may send it.
	QueuedConfirmationGrace = time.Hour
)

// Content is the product information rendered into confirmation mails.
type Content struct {
	ProductName string
	PublicURL   string
}

type waitlistService struct {
	log          logger.Logger
	repositories *repository.Repositories
	validator    interfaces.Validator
	emailFilter  interfaces.EmailFilterService
	mailer       interfaces.Mailer
	publisher    interfaces.EventPublisher
	metrics      *metrics.Metrics
	content      Content
}

// NewWaitlistService wires the intake pipeline. publisher and metrics may be nil: without a
// publisher confirmations are sent inline.
func NewWaitlistService(
	log logger.Logger,
	repositories *repository.Repositories,
	validator interfaces.Validator,
	emailFilter interfaces.EmailFilterService,
	mailer interfaces.Mailer,
	publisher interfaces.EventPublisher,
	metrics *metrics.Metrics,
	content Content,
) interfaces.WaitlistService {
	return &waitlistService{
		log:          log,
		repositories: repositories,
		validator:    validator,
		emailFilter:  emailFilter,
		mailer:       mailer,
		publisher:    publisher,
		metrics:      metrics,
		content:      content,
	}
}

func (s *waitlistService) Check(ctx context.Context, raw string) intake.Result {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.Check")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	return s.validate(ctx, raw)
}

func (s *waitlistService) validate(ctx context.Context, raw string) intake.Result {
	verdict := s.validator.Validate(ctx, raw)
	s.metrics.ObserveVerdict(verdict.Reason.String())
	s.metrics.ObserveMXLookup(verdict.Lookup.String())

	if verdict.Reason == intake.ReasonInvalidDomain {
		s.log.Warnf("Rejected %s: mx lookup for %s returned %s", utils.MaskEmail(verdict.Email), verdict.Domain, verdict.Lookup)
	}
	return verdict
}

func (s *waitlistService) Join(ctx context.Context, request dto.JoinRequest) (*dto.JoinResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.Join")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogFields(tracingLog.String("request.source", request.Source))

	verdict := s.validate(ctx, request.Email)
	result := &dto.JoinResult{Verdict: verdict}
	tracing.TagVerdict(span, verdict.Accepted, verdict.Reason.String())

	if !verdict.Accepted {
		if verdict.IsScam() {
			if err := s.recordScam(ctx, request, verdict); err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
		}
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classification, reason := s.emailFilter.Classify(ctx, verdict.Email)
	entry := &models.WaitlistEntry{
		Email:                verdict.Email,
		Domain:               verdict.Domain,
		Classification:       classification,
		ClassificationReason: reason,
		Source:               request.Source,
		IPAddress:            request.IPAddress,
		MXHosts:              verdict.MXHosts,
		Metadata:             models.JSONMap(request.Metadata),
	}

	err := s.repositories.WaitlistRepository.Create(ctx, entry)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		span.SetTag("duplicate", true)
		return nil, waitlisterrors.ErrAlreadyOnWaitlist
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create waitlist entry")
	}
	tracing.TagEntity(span, entry.ID)
	result.Entry = entry

	result.ConfirmationQueued = s.requestConfirmation(ctx, entry)

	s.publishFanout(ctx, entry.ID, enum.WAITLIST_ENTRY, dto.WaitlistJoined{
		EntryID:        entry.ID,
		Email:          entry.Email,
		Domain:         entry.Domain,
		Classification: entry.Classification.String(),
		Source:         entry.Source,
	})

	return result, nil
}

func (s *waitlistService) recordScam(ctx context.Context, request dto.JoinRequest, verdict intake.Result) error {
	logEntry := &models.ScamLogEntry{
		Email:       verdict.Email,
		Domain:      verdict.Domain,
		MatchedRule: verdict.MatchedRule,
		Source:      request.Source,
		IPAddress:   request.IPAddress,
	}
	if err := s.repositories.ScamLogRepository.Create(ctx, logEntry); err != nil {
		return errors.Wrap(err, "failed to record scam log entry")
	}
	s.log.Infof("Flagged %s as scam by %s", utils.MaskEmail(verdict.Email), verdict.MatchedRule)

	s.publishFanout(ctx, logEntry.ID, enum.SCAM_LOG_ENTRY, dto.ScamFlagged{
		LogID:       logEntry.ID,
		Domain:      logEntry.Domain,
		MatchedRule: logEntry.MatchedRule,
	})
	return nil
}

// requestConfirmation queues the mail when events are available and sends it inline otherwise.
// Failures are recorded on the entry and picked up by the retry job.
func (s *waitlistService) requestConfirmation(ctx context.Context, entry *models.WaitlistEntry) bool {
	if s.publisher != nil {
		err := s.publisher.PublishDirectEvent(ctx, entry.ID, enum.WAITLIST_ENTRY, dto.SendConfirmation{EntryID: entry.ID})
		if err == nil {
			s.metrics.ObserveConfirmation(enum.ConfirmationQueued.String())
			if err := s.repositories.WaitlistRepository.MarkConfirmationQueued(ctx, entry.ID, utils.Now()); err != nil {
				s.log.Errorf("Failed to record queued confirmation for %s: %v", entry.ID, err)
			}
			return true
		}
		s.log.Warnf("Failed to queue confirmation for %s, sending inline: %v", entry.ID, err)
	}

	if err := s.sendConfirmation(ctx, entry); err != nil {
		s.log.Errorf("Failed to send confirmation for %s: %v", entry.ID, err)
		return false
	}
	return true
}

func (s *waitlistService) publishFanout(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFanoutEvent(ctx, entityId, entityType, message); err != nil {
		s.log.Warnf("Failed to publish %s event for %s: %v", entityType, entityId, err)
	}
}

// SendConfirmation mails the confirmation for a pending entry. Entries already confirmed are skipped.
func (s *waitlistService) SendConfirmation(ctx context.Context, entryID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.SendConfirmation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, entryID)

	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if !entry.ConfirmationPending() {
		span.LogFields(tracingLog.String("result", "already sent"))
		s.metrics.ObserveConfirmation(enum.ConfirmationSkipped.String())
		return nil
	}

	err = s.sendConfirmation(ctx, entry)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *waitlistService) getEntry(ctx context.Context, entryID string) (*models.WaitlistEntry, error) {
	entry, err := s.repositories.WaitlistRepository.GetByID(ctx, entryID)
	if errors.Is(err, repository.ErrEntryNotFound) || errors.Is(err, repository.ErrInvalidInput) {
		return nil, waitlisterrors.ErrEntryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get waitlist entry")
	}
	return entry, nil
}

func (s *waitlistService) sendConfirmation(ctx context.Context, entry *models.WaitlistEntry) error {
	message, err := mailer.RenderConfirmation(mailer.ConfirmationData{
		ProductName: s.content.ProductName,
		PublicURL:   s.content.PublicURL,
		Email:       entry.Email,
	})
	if err != nil {
		return err
	}

	sendErr := s.mailer.Send(ctx, message)
	if sendErr != nil {
		s.metrics.ObserveConfirmation(enum.ConfirmationFailed.String())
		if err := s.repositories.WaitlistRepository.RecordConfirmationFailure(ctx, entry.ID, sendErr.Error()); err != nil {
			s.log.Errorf("Failed to record confirmation failure for %s: %v", entry.ID, err)
		}
		return errors.Wrap(sendErr, "failed to send confirmation")
	}

	s.metrics.ObserveConfirmation(enum.ConfirmationSent.String())
	sentAt := utils.Now()
	if err := s.repositories.WaitlistRepository.MarkConfirmationSent(ctx, entry.ID, sentAt); err != nil {
		return errors.Wrap(err, "failed to mark confirmation sent")
	}
	entry.ConfirmationSentAt = &sentAt
	return nil
}

func (s *waitlistService) ListEntries(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.ListEntries")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	limit, offset = utils.ClampPage(limit, offset, defaultPageSize, maxPageSize)
	entries, total, err := s.repositories.WaitlistRepository.List(ctx, limit, offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, errors.Wrap(err, "failed to list waitlist entries")
	}
	return entries, total, nil
}

func (s *waitlistService) ListScamLogs(ctx context.Context, limit, offset int) ([]*models.ScamLogEntry, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.ListScamLogs")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	limit, offset = utils.ClampPage(limit, offset, defaultPageSize, maxPageSize)
	entries, total, err := s.repositories.ScamLogRepository.List(ctx, limit, offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, errors.Wrap(err, "failed to list scam log entries")
	}
	return entries, total, nil
}

func (s *waitlistService) RemoveEntry(ctx context.Context, entryID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.RemoveEntry")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, entryID)

	err := s.repositories.WaitlistRepository.Delete(ctx, entryID)
	if errors.Is(err, repository.ErrEntryNotFound) || errors.Is(err, repository.ErrInvalidInput) {
		return waitlisterrors.ErrEntryNotFound
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to remove waitlist entry")
	}
	return nil
}

// RetryPendingConfirmations resends to entries created before now-olderThan that have fewer than
// maxAttempts failures. Entries published within QueuedConfirmationGrace are skipped. It returns
// the number of mails sent.
func (s *waitlistService) RetryPendingConfirmations(ctx context.Context, olderThan time.Duration, maxAttempts int) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.RetryPendingConfirmations")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	now := utils.Now()
	entries, err := s.repositories.WaitlistRepository.ListPendingConfirmations(ctx, now.Add(-olderThan), now.Add(-QueuedConfirmationGrace), maxAttempts, retryBatchSize)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(err, "failed to list pending confirmations")
	}
	span.LogFields(tracingLog.Int("pending", len(entries)))

	sent := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.sendConfirmation(ctx, entry); err != nil {
			s.log.Warnf("Retry of confirmation for %s failed (attempt %d): %v", entry.ID, entry.ConfirmationAttempts+1, err)
			continue
		}
		sent++
	}
	span.LogFields(tracingLog.Int("sent", sent))
	return sent, nil
}

func (s *waitlistService) PurgeScamLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WaitlistService.PurgeScamLogs")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if olderThan <= 0 {
		return 0, errors.Wrap(waitlisterrors.ErrInvalidInput, "retention must be positive")
	}

	deleted, err := s.repositories.ScamLogRepository.DeleteOlderThan(ctx, utils.Now().Add(-olderThan))
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(err, "failed to purge scam log entries")
	}
	span.LogFields(tracingLog.Int64("deleted", deleted))
	return deleted, nil
}
