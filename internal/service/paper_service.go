package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/repository"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type paperStore interface {
	Create(ctx context.Context, paper *models.TestPaper) error
	FindByID(ctx context.Context, id string) (*models.TestPaper, error)
	List(ctx context.Context, filter models.TestPaperFilter) ([]models.TestPaper, int, error)
	UpdateDraft(ctx context.Context, paper *models.TestPaper) error
	ApplyTransition(ctx context.Context, params repository.TransitionParams) (*models.ExamAuditLog, error)
	SetResultsRevealed(ctx context.Context, id string) error
}

type paperBlueprintStore interface {
	FindByID(ctx context.Context, id string) (*models.Blueprint, error)
}

type paperLedger interface {
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error)
}

type blueprintGate interface {
	IsBlueprintRequired(ctx context.Context, tenantID, academicYearID string) (bool, error)
}

type paperEventPublisher interface {
	PublishPaperEvent(ctx context.Context, paper *models.TestPaper, event models.NotificationType)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type transitionObserver interface {
	ObserveWorkflowTransition(action string, toState workflow.State)
	ObserveDBQuery(label string, duration time.Duration)
}

// PaperService drives papers through the review pipeline. Edge legality
// lives in the workflow package; this service resolves guards, applies the
// transition atomically, and runs the side effects.
type PaperService struct {
	papers     paperStore
	blueprints paperBlueprintStore
	ledger     paperLedger
	policies   blueprintGate
	notifier   paperEventPublisher
	caches     cacheInvalidator
	metrics    transitionObserver
	logger     *zap.Logger
}

// PaperServiceOption configures the service.
type PaperServiceOption func(*PaperService)

// WithPaperNotifier wires the notification fan-out.
func WithPaperNotifier(notifier paperEventPublisher) PaperServiceOption {
	return func(s *PaperService) { s.notifier = notifier }
}

// WithPaperCacheInvalidator wires dashboard cache invalidation.
func WithPaperCacheInvalidator(caches cacheInvalidator) PaperServiceOption {
	return func(s *PaperService) { s.caches = caches }
}

// WithPaperMetrics wires the transition counter and query timing.
func WithPaperMetrics(metrics transitionObserver) PaperServiceOption {
	return func(s *PaperService) { s.metrics = metrics }
}

// NewPaperService constructs the service.
func NewPaperService(papers paperStore, blueprints paperBlueprintStore, ledger paperLedger, policies blueprintGate, logger *zap.Logger, opts ...PaperServiceOption) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PaperService{
		papers:     papers,
		blueprints: blueprints,
		ledger:     ledger,
		policies:   policies,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create drafts a new paper.
func (s *PaperService) Create(ctx context.Context, tenantID string, req dto.CreateTestPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if req.TotalMarks <= 0 || req.DurationMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "totalMarks and durationMinutes must be positive")
	}

	paper := &models.TestPaper{
		TenantID:        tenantID,
		Title:           strings.TrimSpace(req.Title),
		Grade:           strings.TrimSpace(req.Grade),
		Subject:         strings.ToLower(strings.TrimSpace(req.Subject)),
		TotalMarks:      req.TotalMarks,
		DurationMinutes: req.DurationMinutes,
		QuestionIDs:     pq.StringArray(req.QuestionIDs),
		WorkflowState:   workflow.StateDraft,
		IsConfidential:  req.IsConfidential,
		ScheduledDate:   req.ScheduledDate,
		CreatedBy:       actor.UserID,
	}
	paper.AcademicYearID = optionalString(req.AcademicYearID)
	paper.ExamFrameworkID = optionalString(req.ExamFrameworkID)
	paper.BlueprintID = optionalString(req.BlueprintID)

	if paper.BlueprintID != nil {
		blueprint, err := s.loadBlueprint(ctx, tenantID, *paper.BlueprintID)
		if err != nil {
			return nil, err
		}
		if blueprint.Grade != paper.Grade || blueprint.Subject != paper.Subject {
			return nil, appErrors.Clone(appErrors.ErrValidation, "blueprint grade/subject does not match the paper")
		}
	}

	if err := s.papers.Create(ctx, paper); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create paper")
	}
	return paper, nil
}

// Get loads one paper enforcing tenant scope and confidentiality masking.
func (s *PaperService) Get(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.TestPaper, error) {
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.maskConfidential(paper, actor)
	return paper, nil
}

// List returns papers visible to the actor. Teachers only see their own
// papers; review roles see the whole tenant.
func (s *PaperService) List(ctx context.Context, tenantID string, query dto.TestPaperQuery, actor *models.JWTClaims) ([]models.TestPaper, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.TestPaperFilter{
		TenantID:       tenantID,
		AcademicYearID: query.AcademicYearID,
		Grade:          query.Grade,
		Subject:        query.Subject,
		States:         query.States,
		CreatedBy:      query.CreatedBy,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	switch actor.Role {
	case models.RoleTeacher:
		filter.CreatedBy = actor.UserID
	case models.RoleStudent, models.RoleParent:
		return nil, 0, appErrors.ErrForbidden
	}
	papers, total, err := s.papers.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}
	for i := range papers {
		s.maskConfidential(&papers[i], actor)
	}
	return papers, total, nil
}

// Update applies draft-shape edits. A paper can only be reshaped in draft,
// and an attached locked blueprint cannot be swapped out.
func (s *PaperService) Update(ctx context.Context, tenantID, id string, req dto.UpdateTestPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if paper.WorkflowState != workflow.StateDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("paper in %s cannot be edited", paper.WorkflowState))
	}
	if actor.Role == models.RoleTeacher && paper.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	if req.BlueprintID != nil && !sameOptional(paper.BlueprintID, *req.BlueprintID) {
		if paper.BlueprintID != nil {
			current, err := s.loadBlueprint(ctx, tenantID, *paper.BlueprintID)
			if err != nil {
				return nil, err
			}
			if current.IsLocked {
				return nil, appErrors.Clone(appErrors.ErrGuardFailed, "a locked blueprint cannot be swapped out")
			}
		}
		if *req.BlueprintID != "" {
			next, err := s.loadBlueprint(ctx, tenantID, *req.BlueprintID)
			if err != nil {
				return nil, err
			}
			grade := paper.Grade
			if req.Grade != nil {
				grade = *req.Grade
			}
			subject := paper.Subject
			if req.Subject != nil {
				subject = strings.ToLower(*req.Subject)
			}
			if next.Grade != grade || next.Subject != subject {
				return nil, appErrors.Clone(appErrors.ErrValidation, "blueprint grade/subject does not match the paper")
			}
		}
		paper.BlueprintID = optionalString(*req.BlueprintID)
	}

	if req.Title != nil {
		paper.Title = strings.TrimSpace(*req.Title)
	}
	if req.Grade != nil {
		paper.Grade = strings.TrimSpace(*req.Grade)
	}
	if req.Subject != nil {
		paper.Subject = strings.ToLower(strings.TrimSpace(*req.Subject))
	}
	if req.TotalMarks != nil {
		if *req.TotalMarks <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "totalMarks must be positive")
		}
		paper.TotalMarks = *req.TotalMarks
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "durationMinutes must be positive")
		}
		paper.DurationMinutes = *req.DurationMinutes
	}
	if req.ExamFrameworkID != nil {
		paper.ExamFrameworkID = optionalString(*req.ExamFrameworkID)
	}
	if req.QuestionIDs != nil {
		paper.QuestionIDs = pq.StringArray(req.QuestionIDs)
	}
	if req.IsConfidential != nil {
		paper.IsConfidential = *req.IsConfidential
	}
	if req.ScheduledDate != nil {
		paper.ScheduledDate = req.ScheduledDate
	}

	if err := s.papers.UpdateDraft(ctx, paper); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conflictFor(ctx, tenantID, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update paper")
	}
	return paper, nil
}

// Submit moves a draft into the HOD review queue. The draft -> submitted ->
// pending_hod hop is one logical transition and writes one ledger row.
func (s *PaperService) Submit(ctx context.Context, tenantID, id string, req dto.SubmitPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	target, err := workflow.CanSubmit(paper.WorkflowState, string(actor.Role))
	if err != nil {
		return nil, err
	}
	if err := s.checkGuards(ctx, paper, target); err != nil {
		return nil, err
	}
	return s.apply(ctx, paper, target, models.ExamAuditActionSubmit, actor.UserID, string(actor.Role), req.Comments)
}

// Review applies an approve/reject decision at the paper's current review
// gate. An HOD approval auto-advances to the principal queue in the same
// request; when the advance guard is not yet satisfied the paper rests in
// hod_approved and the manual advance covers it later.
func (s *PaperService) Review(ctx context.Context, tenantID, id string, req dto.ReviewPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	approve, err := parseReviewDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	target, err := workflow.ReviewTarget(paper.WorkflowState, approve)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanTransition(paper.WorkflowState, target, string(actor.Role)); err != nil {
		return nil, err
	}
	action := models.ExamAuditActionApprove
	if !approve {
		action = models.ExamAuditActionReject
	}
	paper, err = s.apply(ctx, paper, target, action, actor.UserID, string(actor.Role), req.Comments)
	if err != nil {
		return nil, err
	}

	if target == workflow.StateHODApproved {
		advanced, err := s.autoAdvance(ctx, paper, actor.UserID)
		if err != nil {
			return nil, err
		}
		if advanced != nil {
			paper = advanced
		}
	}
	return paper, nil
}

// Advance is the manual form of the hod_approved -> pending_principal edge.
func (s *PaperService) Advance(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StatePendingPrincipal, models.ExamAuditActionAdvance, req.Comments, actor)
}

// SendToCommittee hands an approved paper to the exam committee.
func (s *PaperService) SendToCommittee(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StateSentToCommittee, models.ExamAuditActionSendToCommittee, req.Comments, actor)
}

// Activate opens the paper for attempts and fires test_unlocked
// notifications.
func (s *PaperService) Activate(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StateActive, models.ExamAuditActionActivate, req.Comments, actor)
}

// Lock closes the exam window.
func (s *PaperService) Lock(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StateLocked, models.ExamAuditActionLock, req.Comments, actor)
}

// Archive retires a locked paper.
func (s *PaperService) Archive(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StateArchived, models.ExamAuditActionArchive, req.Comments, actor)
}

// Resubmit returns a rejected paper to draft. Approver stamps are cleared;
// the ledger keeps the history.
func (s *PaperService) Resubmit(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error) {
	return s.namedTransition(ctx, tenantID, id, workflow.StateDraft, models.ExamAuditActionResubmit, req.Comments, actor)
}

// Audit returns the paper's full transition ledger.
func (s *PaperService) Audit(ctx context.Context, tenantID, id string) ([]models.ExamAuditLog, error) {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByEntity(ctx, models.EntityTypeTestPaper, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper audit trail")
	}
	return entries, nil
}

// RevealResults publishes a locked paper's results and fires
// result_published notifications.
func (s *PaperService) RevealResults(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if paper.ResultsRevealed {
		return paper, nil
	}
	if err := s.papers.SetResultsRevealed(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrGuardFailed, fmt.Sprintf("results can only be revealed on a locked paper, not %s", paper.WorkflowState))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reveal results")
	}
	paper, err = s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.PublishPaperEvent(ctx, paper, models.NotificationResultPublished)
	}
	return paper, nil
}

// namedTransition resolves role legality against the edge table and applies
// the transition.
func (s *PaperService) namedTransition(ctx context.Context, tenantID, id string, target workflow.State, action, comment string, actor *models.JWTClaims) (*models.TestPaper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	paper, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.CanTransition(paper.WorkflowState, target, string(actor.Role)); err != nil {
		return nil, err
	}
	if err := s.checkGuards(ctx, paper, target); err != nil {
		return nil, err
	}
	return s.apply(ctx, paper, target, action, actor.UserID, string(actor.Role), comment)
}

// autoAdvance attempts the system hop hod_approved -> pending_principal. A
// guard failure leaves the paper resting in hod_approved without error.
func (s *PaperService) autoAdvance(ctx context.Context, paper *models.TestPaper, actorID string) (*models.TestPaper, error) {
	if err := s.checkGuards(ctx, paper, workflow.StatePendingPrincipal); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrGuardFailed.Code {
			s.logger.Info("auto-advance held back by guard",
				zap.String("paper_id", paper.ID),
				zap.String("reason", appErr.Message))
			return nil, nil
		}
		return nil, err
	}
	advanced, err := s.apply(ctx, paper, workflow.StatePendingPrincipal, models.ExamAuditActionAdvance, actorID, workflow.RoleSystem, "")
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

// apply commits one edge via the CAS transition and runs side effects.
func (s *PaperService) apply(ctx context.Context, paper *models.TestPaper, target workflow.State, action, actorID, actorRole, comment string) (*models.TestPaper, error) {
	params := repository.TransitionParams{
		PaperID:   paper.ID,
		TenantID:  paper.TenantID,
		FromState: paper.WorkflowState,
		ToState:   target,
		Action:    action,
		ActorID:   actorID,
		ActorRole: actorRole,
		Comment:   optionalString(comment),
	}
	start := time.Now()
	_, err := s.papers.ApplyTransition(ctx, params)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("apply_transition", time.Since(start))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conflictFor(ctx, paper.TenantID, paper.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	updated, err := s.papers.FindByID(ctx, paper.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload paper")
	}

	if s.metrics != nil {
		s.metrics.ObserveWorkflowTransition(action, target)
	}
	if s.caches != nil {
		if err := s.caches.DeleteByPattern(ctx, fmt.Sprintf("dashboard:%s:*", paper.TenantID)); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
	}
	if target == workflow.StateActive && s.notifier != nil {
		s.notifier.PublishPaperEvent(ctx, updated, models.NotificationTestUnlocked)
	}
	return updated, nil
}

// checkGuards resolves the blueprint guards for one prospective edge.
func (s *PaperService) checkGuards(ctx context.Context, paper *models.TestPaper, target workflow.State) error {
	guards := workflow.Guards{
		BlueprintAttached: paper.BlueprintID != nil && *paper.BlueprintID != "",
	}
	if paper.WorkflowState == workflow.StateDraft && s.policies != nil {
		yearID := ""
		if paper.AcademicYearID != nil {
			yearID = *paper.AcademicYearID
		}
		mandatory, err := s.policies.IsBlueprintRequired(ctx, paper.TenantID, yearID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve blueprint policy")
		}
		guards.BlueprintMandatory = mandatory
	}
	if target == workflow.StatePendingPrincipal && guards.BlueprintAttached {
		blueprint, err := s.loadBlueprint(ctx, paper.TenantID, *paper.BlueprintID)
		if err != nil {
			return err
		}
		guards.BlueprintApproved = blueprint.IsApproved
	}
	return workflow.CheckGuards(paper.WorkflowState, target, guards)
}

// conflictFor distinguishes a vanished paper from a lost CAS race.
func (s *PaperService) conflictFor(ctx context.Context, tenantID, id string) error {
	current, err := s.load(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("paper state changed concurrently, now %s", current.WorkflowState))
}

func (s *PaperService) load(ctx context.Context, tenantID, id string) (*models.TestPaper, error) {
	paper, err := s.papers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	if paper.TenantID != tenantID {
		return nil, appErrors.ErrNotFound
	}
	return paper, nil
}

func (s *PaperService) loadBlueprint(ctx context.Context, tenantID, id string) (*models.Blueprint, error) {
	blueprint, err := s.blueprints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blueprint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blueprint")
	}
	if blueprint.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "blueprint not found")
	}
	return blueprint, nil
}

// maskConfidential withholds the question list from actors outside the
// review chain until the paper goes active.
func (s *PaperService) maskConfidential(paper *models.TestPaper, actor *models.JWTClaims) {
	if paper == nil || !paper.IsConfidential || actor == nil {
		return
	}
	switch paper.WorkflowState {
	case workflow.StateActive, workflow.StateLocked, workflow.StateArchived:
		return
	}
	switch actor.Role {
	case models.RoleHOD, models.RolePrincipal, models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin:
		return
	}
	if paper.CreatedBy == actor.UserID {
		return
	}
	paper.QuestionIDs = nil
}

func parseReviewDecision(decision string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case dto.ReviewDecisionApprove:
		return true, nil
	case dto.ReviewDecisionReject:
		return false, nil
	default:
		return false, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
	}
}

func sameOptional(current *string, next string) bool {
	if current == nil {
		return next == ""
	}
	return *current == next
}

// optionalString trims a value and returns nil when nothing is left.
func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
