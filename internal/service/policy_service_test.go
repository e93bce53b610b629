package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type policyStoreStub struct {
	policies map[string]*models.BlueprintPolicy
}

func policyKey(tenantID, yearID string) string {
	return tenantID + "/" + yearID
}

func newPolicyStoreStub() *policyStoreStub {
	return &policyStoreStub{policies: make(map[string]*models.BlueprintPolicy)}
}

func (p *policyStoreStub) GetPolicy(ctx context.Context, tenantID, academicYearID string) (*models.BlueprintPolicy, error) {
	if policy, ok := p.policies[policyKey(tenantID, academicYearID)]; ok {
		return policy, nil
	}
	return nil, sql.ErrNoRows
}

func (p *policyStoreStub) UpsertPolicy(ctx context.Context, policy *models.BlueprintPolicy) error {
	p.policies[policyKey(policy.TenantID, policy.AcademicYearID)] = policy
	return nil
}

func TestPolicyServiceDefaultsStrict(t *testing.T) {
	svc := NewPolicyService(newPolicyStoreStub(), nil)

	ctx := context.Background()
	mandatory, err := svc.IsBlueprintRequired(ctx, "tenant-1", "year-1")
	require.NoError(t, err)
	require.True(t, mandatory)

	allowEdit, err := svc.CanEditLockedBlueprint(ctx, "tenant-1", "year-1")
	require.NoError(t, err)
	require.False(t, allowEdit)
}

func TestPolicyServiceUpsertAndRead(t *testing.T) {
	store := newPolicyStoreStub()
	svc := NewPolicyService(store, nil)

	ctx := context.Background()
	policy, err := svc.Upsert(ctx, "tenant-1", dto.UpsertBlueprintPolicyRequest{
		AcademicYearID:     "year-1",
		BlueprintMandatory: false,
		AllowEditAfterLock: true,
	}, claimsFor("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	require.Equal(t, "admin-1", policy.UpdatedBy)

	mandatory, err := svc.IsBlueprintRequired(ctx, "tenant-1", "year-1")
	require.NoError(t, err)
	require.False(t, mandatory)

	allowEdit, err := svc.CanEditLockedBlueprint(ctx, "tenant-1", "year-1")
	require.NoError(t, err)
	require.True(t, allowEdit)
}

func TestPolicyServiceUpsertRoleRestricted(t *testing.T) {
	svc := NewPolicyService(newPolicyStoreStub(), nil)

	_, err := svc.Upsert(context.Background(), "tenant-1", dto.UpsertBlueprintPolicyRequest{
		AcademicYearID: "year-1",
	}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
