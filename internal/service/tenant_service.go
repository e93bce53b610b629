package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type tenantStore interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	ListWings(ctx context.Context, tenantID string) ([]models.Wing, error)
	FindWingByID(ctx context.Context, id string) (*models.Wing, error)
	CreateWing(ctx context.Context, wing *models.Wing) error
	UpdateWing(ctx context.Context, wing *models.Wing) error
	GetStorageConfig(ctx context.Context, tenantID string) (*models.StorageConfig, error)
	UpsertStorageConfig(ctx context.Context, cfg *models.StorageConfig) error
}

// TenantService administers schools, their wings and storage quotas. School
// onboarding and quota changes are super-admin operations; wing management
// also falls to the school's own admin.
type TenantService struct {
	tenants tenantStore
	logger  *zap.Logger
}

// NewTenantService constructs the service.
func NewTenantService(tenants tenantStore, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{tenants: tenants, logger: logger}
}

// Create onboards a school. Codes are stored uppercase and must be unique
// case-insensitively since login matches them that way.
func (s *TenantService) Create(ctx context.Context, req dto.CreateTenantRequest, actor *models.JWTClaims) (*models.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if len(name) < 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must be at least 3 characters")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validateSchoolCode(code); err != nil {
		return nil, err
	}
	exists, err := s.tenants.ExistsByCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "school code already in use")
	}

	tenant := &models.Tenant{
		Name:           name,
		Code:           code,
		Address:        strings.TrimSpace(req.Address),
		Phone:          strings.TrimSpace(req.Phone),
		PrincipalName:  strings.TrimSpace(req.PrincipalName),
		PrincipalEmail: strings.ToLower(strings.TrimSpace(req.PrincipalEmail)),
		PrincipalPhone: strings.TrimSpace(req.PrincipalPhone),
		Active:         true,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return tenant, nil
}

// Get loads one school. Non-super-admins only see their own.
func (s *TenantService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Tenant, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin && actor.TenantID != id {
		return nil, appErrors.ErrForbidden
	}
	return s.loadTenant(ctx, id)
}

// List returns schools matching the query.
func (s *TenantService) List(ctx context.Context, query dto.TenantQuery, actor *models.JWTClaims) ([]models.Tenant, int, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, 0, err
	}
	filter := models.TenantFilter{
		Active:   query.Active,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	tenants, total, err := s.tenants.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return tenants, total, nil
}

// Update edits school details. The code is immutable; deactivating a school
// blocks its logins but keeps all data.
func (s *TenantService) Update(ctx context.Context, id string, req dto.UpdateTenantRequest, actor *models.JWTClaims) (*models.Tenant, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	tenant, err := s.loadTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 3 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name must be at least 3 characters")
		}
		tenant.Name = name
	}
	if req.Address != nil {
		tenant.Address = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		tenant.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.PrincipalName != nil {
		tenant.PrincipalName = strings.TrimSpace(*req.PrincipalName)
	}
	if req.PrincipalEmail != nil {
		tenant.PrincipalEmail = strings.ToLower(strings.TrimSpace(*req.PrincipalEmail))
	}
	if req.PrincipalPhone != nil {
		tenant.PrincipalPhone = strings.TrimSpace(*req.PrincipalPhone)
	}
	if req.Active != nil {
		tenant.Active = *req.Active
	}
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return tenant, nil
}

// ListWings returns a school's wings.
func (s *TenantService) ListWings(ctx context.Context, tenantID string) ([]models.Wing, error) {
	wings, err := s.tenants.ListWings(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list wings")
	}
	return wings, nil
}

// CreateWing adds a grade grouping to a school.
func (s *TenantService) CreateWing(ctx context.Context, tenantID string, req dto.CreateWingRequest, actor *models.JWTClaims) (*models.Wing, error) {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "wing name is required")
	}
	if len(req.Grades) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a wing needs at least one grade")
	}
	wing := &models.Wing{
		TenantID:  tenantID,
		Name:      name,
		Grades:    pq.StringArray(req.Grades),
		SortOrder: req.SortOrder,
		Active:    true,
	}
	if err := s.tenants.CreateWing(ctx, wing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create wing")
	}
	return wing, nil
}

// UpdateWing edits a wing.
func (s *TenantService) UpdateWing(ctx context.Context, tenantID, wingID string, req dto.UpdateWingRequest, actor *models.JWTClaims) (*models.Wing, error) {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return nil, err
	}
	wing, err := s.tenants.FindWingByID(ctx, wingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "wing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load wing")
	}
	if wing.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "wing not found")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "wing name is required")
		}
		wing.Name = name
	}
	if req.Grades != nil {
		if len(req.Grades) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a wing needs at least one grade")
		}
		wing.Grades = pq.StringArray(req.Grades)
	}
	if req.SortOrder != nil {
		wing.SortOrder = *req.SortOrder
	}
	if req.Active != nil {
		wing.Active = *req.Active
	}
	if err := s.tenants.UpdateWing(ctx, wing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update wing")
	}
	return wing, nil
}

// GetStorageConfig returns the tenant's storage settings.
func (s *TenantService) GetStorageConfig(ctx context.Context, tenantID string) (*models.StorageConfig, error) {
	cfg, err := s.tenants.GetStorageConfig(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "storage config not set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage config")
	}
	return cfg, nil
}

// UpsertStorageConfig points a school at its file bucket and byte quota.
func (s *TenantService) UpsertStorageConfig(ctx context.Context, tenantID string, req dto.UpdateStorageConfigRequest, actor *models.JWTClaims) (*models.StorageConfig, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BucketName) == "" || strings.TrimSpace(req.FolderPath) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bucketName and folderPath are required")
	}
	if req.MaxStorageBytes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "maxStorageBytes must be positive")
	}
	cfg := &models.StorageConfig{
		TenantID:        tenantID,
		BucketName:      strings.TrimSpace(req.BucketName),
		FolderPath:      strings.TrimSpace(req.FolderPath),
		MaxStorageBytes: req.MaxStorageBytes,
		UpdatedBy:       actor.UserID,
	}
	if err := s.tenants.UpsertStorageConfig(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save storage config")
	}
	return cfg, nil
}

func (s *TenantService) loadTenant(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return tenant, nil
}

func requireSuperAdmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "super admin role required")
	}
	return nil
}

func requireTenantAdmin(actor *models.JWTClaims, tenantID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleAdmin:
		if actor.TenantID == tenantID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "school admin role required")
}

func validateSchoolCode(code string) error {
	if len(code) < 3 || len(code) > 12 {
		return appErrors.Clone(appErrors.ErrValidation, "school code must be 3-12 characters")
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return appErrors.Clone(appErrors.ErrValidation, "school code must be alphanumeric")
		}
	}
	return nil
}
