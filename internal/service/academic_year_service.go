package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type academicYearStore interface {
	List(ctx context.Context, tenantID string, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindActive(ctx context.Context, tenantID string) (*models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetActive(ctx context.Context, tenantID, id string) error
	SetLocked(ctx context.Context, id string, locked bool, actorID string) error
}

// AcademicYearService manages a tenant's academic years: at most one active
// at a time, and locking freezes dependent blueprints and frameworks.
type AcademicYearService struct {
	years  academicYearStore
	logger *zap.Logger
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(years academicYearStore, logger *zap.Logger) *AcademicYearService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{years: years, logger: logger}
}

// Create registers a new year. New years start inactive and unlocked.
func (s *AcademicYearService) Create(ctx context.Context, tenantID string, req dto.CreateAcademicYearRequest, actor *models.JWTClaims) (*models.AcademicYear, error) {
	if err := requireYearAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if err := validateYearDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	year := &models.AcademicYear{
		TenantID:  tenantID,
		Name:      name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	return year, nil
}

// Get loads one year.
func (s *AcademicYearService) Get(ctx context.Context, tenantID, id string) (*models.AcademicYear, error) {
	return s.loadYear(ctx, tenantID, id)
}

// GetActive returns the tenant's currently active year.
func (s *AcademicYearService) GetActive(ctx context.Context, tenantID string) (*models.AcademicYear, error) {
	year, err := s.years.FindActive(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active academic year")
	}
	return year, nil
}

// List returns the tenant's years.
func (s *AcademicYearService) List(ctx context.Context, tenantID string, query dto.AcademicYearQuery) ([]models.AcademicYear, int, error) {
	filter := models.AcademicYearFilter{
		TenantID: tenantID,
		Active:   query.Active,
		Locked:   query.Locked,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	years, total, err := s.years.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, total, nil
}

// Update edits an unlocked year's name and date range.
func (s *AcademicYearService) Update(ctx context.Context, tenantID, id string, req dto.UpdateAcademicYearRequest, actor *models.JWTClaims) (*models.AcademicYear, error) {
	if err := requireYearAdmin(actor); err != nil {
		return nil, err
	}
	year, err := s.loadYear(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrGuardFailed, "academic year is locked")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
		}
		year.Name = name
	}
	if req.StartDate != nil {
		year.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		year.EndDate = *req.EndDate
	}
	if err := validateYearDates(year.StartDate, year.EndDate); err != nil {
		return nil, err
	}
	if err := s.years.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}
	return year, nil
}

// Activate makes this year the tenant's single active one, deactivating the
// rest in the same transaction. Activating the already-active year is a
// no-op success.
func (s *AcademicYearService) Activate(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.AcademicYear, error) {
	if err := requireYearAdmin(actor); err != nil {
		return nil, err
	}
	year, err := s.loadYear(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if year.IsLocked {
		return nil, appErrors.Clone(appErrors.ErrGuardFailed, "a locked academic year cannot be activated")
	}
	if year.IsActive {
		return year, nil
	}
	if err := s.years.SetActive(ctx, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
	}
	return s.loadYear(ctx, tenantID, id)
}

// SetLock freezes or unfreezes a year. Repeating the current lock state is a
// no-op success.
func (s *AcademicYearService) SetLock(ctx context.Context, tenantID, id string, locked bool, actor *models.JWTClaims) (*models.AcademicYear, error) {
	if err := requireYearAdmin(actor); err != nil {
		return nil, err
	}
	year, err := s.loadYear(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if year.IsLocked == locked {
		return year, nil
	}
	if err := s.years.SetLocked(ctx, id, locked, actor.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change academic year lock")
	}
	return s.loadYear(ctx, tenantID, id)
}

func (s *AcademicYearService) loadYear(ctx context.Context, tenantID, id string) (*models.AcademicYear, error) {
	year, err := s.years.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
	}
	return year, nil
}

func requireYearAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "academic year management needs an admin role")
	}
}

func validateYearDates(start, end time.Time) error {
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "endDate must be after startDate")
	}
	return nil
}
