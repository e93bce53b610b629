package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type policyStore interface {
	GetPolicy(ctx context.Context, tenantID, academicYearID string) (*models.BlueprintPolicy, error)
	UpsertPolicy(ctx context.Context, policy *models.BlueprintPolicy) error
}

// PolicyService resolves blueprint policies per (tenant, academic year). A
// missing row resolves to the strict defaults, so a freshly provisioned
// school starts with blueprints mandatory and locked blueprints frozen.
type PolicyService struct {
	policies policyStore
	logger   *zap.Logger
}

// NewPolicyService constructs the service.
func NewPolicyService(policies policyStore, logger *zap.Logger) *PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{policies: policies, logger: logger}
}

// Get returns the effective policy for the pair, falling back to defaults.
func (s *PolicyService) Get(ctx context.Context, tenantID, academicYearID string) (*models.BlueprintPolicy, error) {
	policy, err := s.policies.GetPolicy(ctx, tenantID, academicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			fallback := models.DefaultBlueprintPolicy(tenantID, academicYearID)
			return &fallback, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blueprint policy")
	}
	return policy, nil
}

// Upsert writes the policy for the pair. Only school admins and super admins
// may change policy.
func (s *PolicyService) Upsert(ctx context.Context, tenantID string, req dto.UpsertBlueprintPolicyRequest, actor *models.JWTClaims) (*models.BlueprintPolicy, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	policy := &models.BlueprintPolicy{
		TenantID:           tenantID,
		AcademicYearID:     req.AcademicYearID,
		BlueprintMandatory: req.BlueprintMandatory,
		AllowEditAfterLock: req.AllowEditAfterLock,
		UpdatedBy:          actor.UserID,
	}
	if err := s.policies.UpsertPolicy(ctx, policy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save blueprint policy")
	}
	return policy, nil
}

// IsBlueprintRequired answers the submit guard: must a paper carry a
// blueprint before it leaves draft.
func (s *PolicyService) IsBlueprintRequired(ctx context.Context, tenantID, academicYearID string) (bool, error) {
	policy, err := s.Get(ctx, tenantID, academicYearID)
	if err != nil {
		return false, err
	}
	return policy.BlueprintMandatory, nil
}

// CanEditLockedBlueprint answers the blueprint edit guard for locked rows.
func (s *PolicyService) CanEditLockedBlueprint(ctx context.Context, tenantID, academicYearID string) (bool, error) {
	policy, err := s.Get(ctx, tenantID, academicYearID)
	if err != nil {
		return false, err
	}
	return policy.AllowEditAfterLock, nil
}
