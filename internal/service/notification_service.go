package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/jobs"
)

// jobTypePaperEvent labels fan-out jobs on the notification queue.
const jobTypePaperEvent = "notify.paper_event"

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	ListRecipients(ctx context.Context, tenantID, grade, subject string) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// paperEventPayload travels through the in-memory queue. It carries only what
// the fan-out needs so the handler never re-reads the paper row.
type paperEventPayload struct {
	TenantID string
	PaperID  string
	Title    string
	Grade    string
	Subject  string
	Event    models.NotificationType
}

// NotificationService fans paper events out into per-user inbox rows. The
// fan-out runs on a worker queue so paper transitions never wait on it.
type NotificationService struct {
	notifications notificationStore
	queue         jobEnqueuer
	logger        *zap.Logger
}

// NewNotificationService constructs the service. Attach the queue after
// building it with HandlePaperEvent as its handler.
func NewNotificationService(notifications notificationStore, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, logger: logger}
}

// AttachQueue wires the worker queue used for asynchronous fan-out. Without
// one, events are handled inline on the caller's goroutine.
func (s *NotificationService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// PublishPaperEvent enqueues the fan-out for a paper going active or its
// results being revealed. Failures are logged, never surfaced: a missed
// notification must not fail the workflow transition that caused it.
func (s *NotificationService) PublishPaperEvent(ctx context.Context, paper *models.TestPaper, event models.NotificationType) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypePaperEvent,
		Payload: paperEventPayload{
			TenantID: paper.TenantID,
			PaperID:  paper.ID,
			Title:    paper.Title,
			Grade:    paper.Grade,
			Subject:  paper.Subject,
			Event:    event,
		},
	}
	if s.queue == nil {
		if err := s.HandlePaperEvent(ctx, job); err != nil {
			s.logger.Warn("paper event fan-out failed", zap.String("paperId", paper.ID), zap.Error(err))
		}
		return
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue paper event", zap.String("paperId", paper.ID), zap.Error(err))
	}
}

// HandlePaperEvent is the queue handler. It resolves the audience and writes
// one inbox row per recipient. Recipient resolution errors are returned so
// the queue retries; per-row insert failures are only logged since a retry
// would duplicate rows already written.
func (s *NotificationService) HandlePaperEvent(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(paperEventPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s", job.Payload, job.Type)
	}

	recipients, err := s.notifications.ListRecipients(ctx, payload.TenantID, payload.Grade, payload.Subject)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}

	title, body := renderPaperEvent(payload)
	failed := 0
	for _, userID := range recipients {
		notification := &models.Notification{
			TenantID: payload.TenantID,
			UserID:   userID,
			Type:     payload.Event,
			Title:    title,
			Body:     body,
			EntityID: &payload.PaperID,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			failed++
			s.logger.Warn("failed to write notification", zap.String("userId", userID), zap.Error(err))
		}
	}
	s.logger.Info("paper event fanned out",
		zap.String("paperId", payload.PaperID),
		zap.String("event", string(payload.Event)),
		zap.Int("recipients", len(recipients)),
		zap.Int("failed", failed))
	return nil
}

// List returns the caller's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, tenantID string, query dto.NotificationQuery, actor *models.JWTClaims) ([]models.Notification, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.NotificationFilter{
		TenantID:   tenantID,
		UserID:     actor.UserID,
		UnreadOnly: query.UnreadOnly,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	notifications, total, err := s.notifications.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, total, nil
}

// MarkRead flags one of the caller's notifications as read. Marking an
// already-read or unknown id is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.notifications.MarkRead(ctx, id, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

func renderPaperEvent(payload paperEventPayload) (title, body string) {
	switch payload.Event {
	case models.NotificationResultPublished:
		return "Results published", fmt.Sprintf("Results for %s are now available", payload.Title)
	default:
		return "New test available", fmt.Sprintf("%s (%s, grade %s) is open for attempts", payload.Title, payload.Subject, payload.Grade)
	}
}
