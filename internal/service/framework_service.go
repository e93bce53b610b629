package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type frameworkStore interface {
	FindByID(ctx context.Context, id string) (*models.ExamFramework, error)
	List(ctx context.Context, filter models.ExamFrameworkFilter) ([]models.ExamFramework, int, error)
	Create(ctx context.Context, framework *models.ExamFramework) error
	Update(ctx context.Context, framework *models.ExamFramework) error
}

type frameworkYearStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type frameworkWingStore interface {
	FindWingByID(ctx context.Context, id string) (*models.Wing, error)
}

var pageSizes = map[string]string{
	"A4":     "A4",
	"A3":     "A3",
	"LETTER": "Letter",
	"LEGAL":  "Legal",
}

// FrameworkService manages exam templates: the marks, duration, subject list
// and print layout shared by all papers of an exam cycle.
type FrameworkService struct {
	frameworks frameworkStore
	years      frameworkYearStore
	wings      frameworkWingStore
	logger     *zap.Logger
}

// NewFrameworkService constructs the service.
func NewFrameworkService(frameworks frameworkStore, years frameworkYearStore, wings frameworkWingStore, logger *zap.Logger) *FrameworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameworkService{frameworks: frameworks, years: years, wings: wings, logger: logger}
}

// Create defines a new exam template. Templates scoped to a locked academic
// year are rejected.
func (s *FrameworkService) Create(ctx context.Context, tenantID string, req dto.CreateExamFrameworkRequest, actor *models.JWTClaims) (*models.ExamFramework, error) {
	if err := requireFrameworkManager(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must be at least 3 characters")
	}
	if req.TotalMarks <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "totalMarks must be positive")
	}
	if req.DurationMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "durationMinutes must be positive")
	}
	subjects, err := normalizeSubjects(req.Subjects)
	if err != nil {
		return nil, err
	}
	sets := req.QuestionPaperSets
	if sets == 0 {
		sets = 1
	}
	if sets < 1 || sets > 4 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "questionPaperSets must be between 1 and 4")
	}
	pageSize, err := normalizePageSize(req.PageSize)
	if err != nil {
		return nil, err
	}
	if err := s.checkYearUnlocked(ctx, tenantID, req.AcademicYearID); err != nil {
		return nil, err
	}
	if err := s.checkWing(ctx, tenantID, req.WingID); err != nil {
		return nil, err
	}

	framework := &models.ExamFramework{
		TenantID:          tenantID,
		Name:              name,
		WingID:            optionalString(req.WingID),
		AcademicYearID:    optionalString(req.AcademicYearID),
		TotalMarks:        req.TotalMarks,
		DurationMinutes:   req.DurationMinutes,
		Subjects:          pq.StringArray(subjects),
		QuestionPaperSets: sets,
		PageSize:          pageSize,
		Active:            true,
		CreatedBy:         actor.UserID,
	}
	if err := s.frameworks.Create(ctx, framework); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam framework")
	}
	return framework, nil
}

// Get loads one template enforcing tenant scope.
func (s *FrameworkService) Get(ctx context.Context, tenantID, id string) (*models.ExamFramework, error) {
	return s.loadFramework(ctx, tenantID, id)
}

// List returns templates matching the query.
func (s *FrameworkService) List(ctx context.Context, tenantID string, query dto.ExamFrameworkQuery) ([]models.ExamFramework, int, error) {
	filter := models.ExamFrameworkFilter{
		TenantID:       tenantID,
		WingID:         query.WingID,
		AcademicYearID: query.AcademicYearID,
		Active:         query.Active,
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	frameworks, total, err := s.frameworks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam frameworks")
	}
	return frameworks, total, nil
}

// Update edits a template. Wing and academic year bindings are fixed at
// creation; a locked year rejects the edit.
func (s *FrameworkService) Update(ctx context.Context, tenantID, id string, req dto.UpdateExamFrameworkRequest, actor *models.JWTClaims) (*models.ExamFramework, error) {
	if err := requireFrameworkManager(actor); err != nil {
		return nil, err
	}
	framework, err := s.loadFramework(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	yearID := ""
	if framework.AcademicYearID != nil {
		yearID = *framework.AcademicYearID
	}
	if err := s.checkYearUnlocked(ctx, tenantID, yearID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 3 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must be at least 3 characters")
		}
		framework.Name = name
	}
	if req.TotalMarks != nil {
		if *req.TotalMarks <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "totalMarks must be positive")
		}
		framework.TotalMarks = *req.TotalMarks
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "durationMinutes must be positive")
		}
		framework.DurationMinutes = *req.DurationMinutes
	}
	if req.Subjects != nil {
		subjects, err := normalizeSubjects(req.Subjects)
		if err != nil {
			return nil, err
		}
		framework.Subjects = pq.StringArray(subjects)
	}
	if req.QuestionPaperSets != nil {
		if *req.QuestionPaperSets < 1 || *req.QuestionPaperSets > 4 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "questionPaperSets must be between 1 and 4")
		}
		framework.QuestionPaperSets = *req.QuestionPaperSets
	}
	if req.PageSize != nil {
		pageSize, err := normalizePageSize(*req.PageSize)
		if err != nil {
			return nil, err
		}
		framework.PageSize = pageSize
	}
	if req.Active != nil {
		framework.Active = *req.Active
	}

	if err := s.frameworks.Update(ctx, framework); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam framework")
	}
	return framework, nil
}

func (s *FrameworkService) loadFramework(ctx context.Context, tenantID, id string) (*models.ExamFramework, error) {
	framework, err := s.frameworks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam framework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam framework")
	}
	if framework.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam framework not found")
	}
	return framework, nil
}

func (s *FrameworkService) checkYearUnlocked(ctx context.Context, tenantID, yearID string) error {
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

func (s *FrameworkService) checkWing(ctx context.Context, tenantID, wingID string) error {
	if wingID == "" || s.wings == nil {
		return nil
	}
	wing, err := s.wings.FindWingByID(ctx, wingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "wing not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wing")
	}
	if wing.TenantID != tenantID {
		return appErrors.Clone(appErrors.ErrNotFound, "wing not found")
	}
	return nil
}

func requireFrameworkManager(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin, models.RolePrincipal, models.RoleExamCommittee, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "exam framework management needs an admin, principal or exam committee role")
	}
}

func normalizeSubjects(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one subject is required")
	}
	seen := make(map[string]bool, len(raw))
	subjects := make([]string, 0, len(raw))
	for _, subject := range raw {
		normalized := strings.ToLower(strings.TrimSpace(subject))
		if normalized == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subjects cannot be blank")
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		subjects = append(subjects, normalized)
	}
	return subjects, nil
}

func normalizePageSize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "A4", nil
	}
	if canonical, ok := pageSizes[strings.ToUpper(trimmed)]; ok {
		return canonical, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "pageSize must be A4, A3, Letter or Legal")
}
