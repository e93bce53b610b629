package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type blueprintStore interface {
	FindByID(ctx context.Context, id string) (*models.Blueprint, error)
	List(ctx context.Context, filter models.BlueprintFilter) ([]models.Blueprint, int, error)
	Create(ctx context.Context, blueprint *models.Blueprint) error
	Update(ctx context.Context, blueprint *models.Blueprint) error
	SetApproved(ctx context.Context, id, approverID string) error
	SetLocked(ctx context.Context, id string, locked bool, actorID string) error
	CountPapersUsing(ctx context.Context, id string) (int, error)
}

type blueprintYearStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type lockedEditGate interface {
	CanEditLockedBlueprint(ctx context.Context, tenantID, academicYearID string) (bool, error)
}

type governanceLedger interface {
	Create(ctx context.Context, entry *models.ExamAuditLog) error
}

// BlueprintService manages blueprint structure, approval, and the lock flip.
// isApproved and isLocked are independent flags; approving never locks and
// locking never approves. Each completed flip appends one ledger row.
type BlueprintService struct {
	blueprints blueprintStore
	years      blueprintYearStore
	policies   lockedEditGate
	ledger     governanceLedger
	logger     *zap.Logger
}

// NewBlueprintService constructs the service.
func NewBlueprintService(blueprints blueprintStore, years blueprintYearStore, policies lockedEditGate, ledger governanceLedger, logger *zap.Logger) *BlueprintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlueprintService{blueprints: blueprints, years: years, policies: policies, ledger: ledger, logger: logger}
}

// Create drafts a new blueprint. A locked academic year rejects the mutation.
func (s *BlueprintService) Create(ctx context.Context, tenantID string, req dto.CreateBlueprintRequest, actor *models.JWTClaims) (*models.Blueprint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher, models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return nil, appErrors.ErrForbidden
	}

	sections, err := parseBlueprintSections(req.Sections)
	if err != nil {
		return nil, err
	}
	if err := s.checkYearUnlocked(ctx, tenantID, req.AcademicYearID); err != nil {
		return nil, err
	}

	blueprint := &models.Blueprint{
		TenantID:   tenantID,
		Name:       strings.TrimSpace(req.Name),
		Grade:      strings.TrimSpace(req.Grade),
		Subject:    strings.ToLower(strings.TrimSpace(req.Subject)),
		TotalMarks: req.TotalMarks,
		Sections:   sections,
		CreatedBy:  actor.UserID,
	}
	blueprint.AcademicYearID = optionalString(req.AcademicYearID)

	if err := s.blueprints.Create(ctx, blueprint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blueprint")
	}
	return blueprint, nil
}

// Get loads a blueprint enforcing tenant scope.
func (s *BlueprintService) Get(ctx context.Context, tenantID, id string) (*models.Blueprint, error) {
	return s.load(ctx, tenantID, id)
}

// List returns blueprints matching the query.
func (s *BlueprintService) List(ctx context.Context, tenantID string, query dto.BlueprintQuery) ([]models.Blueprint, int, error) {
	filter := models.BlueprintFilter{
		TenantID:       tenantID,
		AcademicYearID: query.AcademicYearID,
		Grade:          query.Grade,
		Subject:        query.Subject,
		Approved:       query.Approved,
		Locked:         query.Locked,
		Search:         query.Search,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	blueprints, total, err := s.blueprints.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blueprints")
	}
	return blueprints, total, nil
}

// Update edits blueprint structure. A locked blueprint only accepts edits
// when the tenant's policy allows edit-after-lock; a locked academic year
// rejects the mutation outright. Grade and subject are frozen once papers
// reference the blueprint.
func (s *BlueprintService) Update(ctx context.Context, tenantID, id string, req dto.UpdateBlueprintRequest, actor *models.JWTClaims) (*models.Blueprint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	blueprint, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	yearID := ""
	if blueprint.AcademicYearID != nil {
		yearID = *blueprint.AcademicYearID
	}
	if err := s.checkYearUnlocked(ctx, tenantID, yearID); err != nil {
		return nil, err
	}

	if blueprint.IsLocked {
		allowed, err := s.policies.CanEditLockedBlueprint(ctx, tenantID, yearID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, appErrors.Clone(appErrors.ErrGuardFailed, "blueprint is locked and the policy forbids edits after lock")
		}
	}

	gradeChanging := req.Grade != nil && strings.TrimSpace(*req.Grade) != blueprint.Grade
	subjectChanging := req.Subject != nil && strings.ToLower(strings.TrimSpace(*req.Subject)) != blueprint.Subject
	if gradeChanging || subjectChanging {
		used, err := s.blueprints.CountPapersUsing(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count referencing papers")
		}
		if used > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("grade/subject cannot change while %d papers reference this blueprint", used))
		}
	}

	if req.Name != nil {
		blueprint.Name = strings.TrimSpace(*req.Name)
	}
	if req.Grade != nil {
		blueprint.Grade = strings.TrimSpace(*req.Grade)
	}
	if req.Subject != nil {
		blueprint.Subject = strings.ToLower(strings.TrimSpace(*req.Subject))
	}
	if req.TotalMarks != nil {
		if *req.TotalMarks <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "totalMarks must be positive")
		}
		blueprint.TotalMarks = *req.TotalMarks
	}
	if len(req.Sections) > 0 {
		sections, err := parseBlueprintSections(req.Sections)
		if err != nil {
			return nil, err
		}
		blueprint.Sections = sections
	}

	if err := s.blueprints.Update(ctx, blueprint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blueprint")
	}
	return blueprint, nil
}

// Approve stamps the approval flag. Approving an approved blueprint succeeds
// without change.
func (s *BlueprintService) Approve(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.Blueprint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleHOD && actor.Role != models.RolePrincipal {
		return nil, appErrors.ErrForbidden
	}
	blueprint, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if blueprint.IsApproved {
		return blueprint, nil
	}
	if err := s.blueprints.SetApproved(ctx, id, actor.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve blueprint")
	}
	s.appendLedger(ctx, blueprint, models.ExamAuditActionApprove, models.BlueprintStateDraft, models.BlueprintStateApproved, actor)
	return s.load(ctx, tenantID, id)
}

// SetLock flips the structural lock. Only super admins may lock or unlock;
// the flip is idempotent and never touches section data.
func (s *BlueprintService) SetLock(ctx context.Context, tenantID, id string, locked bool, actor *models.JWTClaims) (*models.Blueprint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	blueprint, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if blueprint.IsLocked == locked {
		return blueprint, nil
	}
	if err := s.blueprints.SetLocked(ctx, id, locked, actor.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blueprint lock")
	}
	action := models.ExamAuditActionLock
	from, to := models.BlueprintStateUnlocked, models.BlueprintStateLocked
	if !locked {
		action = models.ExamAuditActionUnlock
		from, to = to, from
	}
	s.appendLedger(ctx, blueprint, action, from, to, actor)
	return s.load(ctx, tenantID, id)
}

// appendLedger records one governance flip. The flip has already committed;
// an append failure is logged and surfaced through monitoring, not returned.
func (s *BlueprintService) appendLedger(ctx context.Context, blueprint *models.Blueprint, action string, from, to workflow.State, actor *models.JWTClaims) {
	if s.ledger == nil {
		return
	}
	entry := &models.ExamAuditLog{
		TenantID:   blueprint.TenantID,
		EntityType: models.EntityTypeBlueprint,
		EntityID:   blueprint.ID,
		Action:     action,
		FromState:  from,
		ToState:    to,
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append blueprint ledger entry",
			zap.String("blueprintId", blueprint.ID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *BlueprintService) load(ctx context.Context, tenantID, id string) (*models.Blueprint, error) {
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

// checkYearUnlocked rejects mutations scoped to a locked academic year.
func (s *BlueprintService) checkYearUnlocked(ctx context.Context, tenantID, yearID string) error {
	if yearID == "" || s.years == nil {
		return nil
	}
	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.TenantID != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	if year.IsLocked {
		return appErrors.Clone(appErrors.ErrGuardFailed, "academic year is locked")
	}
	return nil
}

func parseBlueprintSections(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sections are required")
	}
	var sections []models.BlueprintSection
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "sections must be a JSON array of blueprint sections")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one section is required")
	}
	for i, section := range sections {
		if strings.TrimSpace(section.Name) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %d needs a name", i+1))
		}
		if section.Marks <= 0 || section.QuestionCount <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %q needs positive marks and question count", section.Name))
		}
	}
	return []byte(raw), nil
}
