package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type blueprintRepoStub struct {
	blueprints    map[string]*models.Blueprint
	papersUsing   map[string]int
	approvedCalls int
	lockCalls     int
}

func newBlueprintRepoStub() *blueprintRepoStub {
	return &blueprintRepoStub{
		blueprints:  make(map[string]*models.Blueprint),
		papersUsing: make(map[string]int),
	}
}

func (b *blueprintRepoStub) FindByID(ctx context.Context, id string) (*models.Blueprint, error) {
	blueprint, ok := b.blueprints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *blueprint
	return &clone, nil
}

func (b *blueprintRepoStub) List(ctx context.Context, filter models.BlueprintFilter) ([]models.Blueprint, int, error) {
	result := make([]models.Blueprint, 0, len(b.blueprints))
	for _, blueprint := range b.blueprints {
		result = append(result, *blueprint)
	}
	return result, len(result), nil
}

func (b *blueprintRepoStub) Create(ctx context.Context, blueprint *models.Blueprint) error {
	if blueprint.ID == "" {
		blueprint.ID = "bp-new"
	}
	clone := *blueprint
	b.blueprints[blueprint.ID] = &clone
	return nil
}

func (b *blueprintRepoStub) Update(ctx context.Context, blueprint *models.Blueprint) error {
	clone := *blueprint
	b.blueprints[blueprint.ID] = &clone
	return nil
}

func (b *blueprintRepoStub) SetApproved(ctx context.Context, id, approverID string) error {
	b.approvedCalls++
	if blueprint, ok := b.blueprints[id]; ok {
		blueprint.IsApproved = true
		blueprint.ApprovedBy = &approverID
	}
	return nil
}

func (b *blueprintRepoStub) SetLocked(ctx context.Context, id string, locked bool, actorID string) error {
	b.lockCalls++
	if blueprint, ok := b.blueprints[id]; ok {
		blueprint.IsLocked = locked
		if locked {
			blueprint.LockedBy = &actorID
		} else {
			blueprint.LockedBy = nil
		}
	}
	return nil
}

func (b *blueprintRepoStub) CountPapersUsing(ctx context.Context, id string) (int, error) {
	return b.papersUsing[id], nil
}

type yearStoreStub struct {
	years map[string]*models.AcademicYear
}

func (y *yearStoreStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, ok := y.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return year, nil
}

type lockedEditGateStub struct {
	allow bool
}

func (g *lockedEditGateStub) CanEditLockedBlueprint(ctx context.Context, tenantID, academicYearID string) (bool, error) {
	return g.allow, nil
}

type governanceLedgerStub struct {
	entries []models.ExamAuditLog
}

func (l *governanceLedgerStub) Create(ctx context.Context, entry *models.ExamAuditLog) error {
	l.entries = append(l.entries, *entry)
	return nil
}

func validSections() json.RawMessage {
	return json.RawMessage(`[{"name":"Section A","marks":40,"questionCount":10,"questionType":"mcq","difficulty":"easy","chapters":["algebra"]}]`)
}

func TestBlueprintServiceCreate(t *testing.T) {
	repo := newBlueprintRepoStub()
	years := &yearStoreStub{years: map[string]*models.AcademicYear{
		"year-1": {ID: "year-1", TenantID: "tenant-1", IsLocked: false},
	}}
	svc := NewBlueprintService(repo, years, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	blueprint, err := svc.Create(context.Background(), "tenant-1", dto.CreateBlueprintRequest{
		Name:           "Standard Midterm",
		Grade:          "10",
		Subject:        "Mathematics",
		AcademicYearID: "year-1",
		TotalMarks:     80,
		Sections:       validSections(),
	}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, "mathematics", blueprint.Subject)
	require.False(t, blueprint.IsApproved)
	require.False(t, blueprint.IsLocked)
}

func TestBlueprintServiceCreateRejectsLockedYear(t *testing.T) {
	repo := newBlueprintRepoStub()
	years := &yearStoreStub{years: map[string]*models.AcademicYear{
		"year-1": {ID: "year-1", TenantID: "tenant-1", IsLocked: true},
	}}
	svc := NewBlueprintService(repo, years, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	_, err := svc.Create(context.Background(), "tenant-1", dto.CreateBlueprintRequest{
		Name:           "Standard Midterm",
		Grade:          "10",
		Subject:        "mathematics",
		AcademicYearID: "year-1",
		TotalMarks:     80,
		Sections:       validSections(),
	}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)
}

func TestBlueprintServiceCreateValidatesSections(t *testing.T) {
	svc := NewBlueprintService(newBlueprintRepoStub(), &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	_, err := svc.Create(context.Background(), "tenant-1", dto.CreateBlueprintRequest{
		Name:       "Broken",
		Grade:      "10",
		Subject:    "mathematics",
		TotalMarks: 80,
		Sections:   json.RawMessage(`[{"name":"","marks":0}]`),
	}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBlueprintServiceUpdateLockedNeedsPolicy(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1", Name: "Std", Grade: "10", Subject: "mathematics", TotalMarks: 80, IsLocked: true}
	gate := &lockedEditGateStub{allow: false}
	svc := NewBlueprintService(repo, &yearStoreStub{}, gate, &governanceLedgerStub{}, nil)

	name := "Renamed"
	_, err := svc.Update(context.Background(), "tenant-1", "bp-1", dto.UpdateBlueprintRequest{Name: &name}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)

	gate.allow = true
	updated, err := svc.Update(context.Background(), "tenant-1", "bp-1", dto.UpdateBlueprintRequest{Name: &name}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
}

func TestBlueprintServiceUpdateFreezesGradeWhilePapersReference(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1", Name: "Std", Grade: "10", Subject: "mathematics", TotalMarks: 80}
	repo.papersUsing["bp-1"] = 3
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	grade := "11"
	_, err := svc.Update(context.Background(), "tenant-1", "bp-1", dto.UpdateBlueprintRequest{Grade: &grade}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestBlueprintServiceApproveIdempotent(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1", Name: "Std", Grade: "10", Subject: "mathematics", TotalMarks: 80}
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	ctx := context.Background()
	blueprint, err := svc.Approve(ctx, "tenant-1", "bp-1", claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.True(t, blueprint.IsApproved)
	require.False(t, blueprint.IsLocked)

	blueprint, err = svc.Approve(ctx, "tenant-1", "bp-1", claimsFor("principal-1", models.RolePrincipal))
	require.NoError(t, err)
	require.True(t, blueprint.IsApproved)
	require.Equal(t, 1, repo.approvedCalls)
}

func TestBlueprintServiceApproveRoleRestricted(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1"}
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	_, err := svc.Approve(context.Background(), "tenant-1", "bp-1", claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBlueprintServiceLockIdempotentAndIndependent(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1", IsApproved: false}
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	ctx := context.Background()
	blueprint, err := svc.SetLock(ctx, "tenant-1", "bp-1", true, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.True(t, blueprint.IsLocked)
	require.False(t, blueprint.IsApproved)

	blueprint, err = svc.SetLock(ctx, "tenant-1", "bp-1", true, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.True(t, blueprint.IsLocked)
	require.Equal(t, 1, repo.lockCalls)

	blueprint, err = svc.SetLock(ctx, "tenant-1", "bp-1", false, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.False(t, blueprint.IsLocked)
}

func TestBlueprintServiceGovernanceFlipsWriteLedgerRows(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1", Name: "Std", Grade: "10", Subject: "mathematics", TotalMarks: 80}
	ledger := &governanceLedgerStub{}
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, ledger, nil)
	ctx := context.Background()

	_, err := svc.SetLock(ctx, "tenant-1", "bp-1", true, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
	require.Equal(t, models.EntityTypeBlueprint, ledger.entries[0].EntityType)
	require.Equal(t, "bp-1", ledger.entries[0].EntityID)
	require.Equal(t, models.ExamAuditActionLock, ledger.entries[0].Action)
	require.Equal(t, models.BlueprintStateUnlocked, ledger.entries[0].FromState)
	require.Equal(t, models.BlueprintStateLocked, ledger.entries[0].ToState)
	require.Equal(t, "root-1", ledger.entries[0].ActorID)
	require.Equal(t, string(models.RoleSuperAdmin), ledger.entries[0].ActorRole)

	// Idempotent re-lock is a no-op and must not duplicate the row.
	_, err = svc.SetLock(ctx, "tenant-1", "bp-1", true, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)

	_, err = svc.SetLock(ctx, "tenant-1", "bp-1", false, claimsFor("root-1", models.RoleSuperAdmin))
	require.NoError(t, err)
	require.Len(t, ledger.entries, 2)
	require.Equal(t, models.ExamAuditActionUnlock, ledger.entries[1].Action)
	require.Equal(t, models.BlueprintStateLocked, ledger.entries[1].FromState)
	require.Equal(t, models.BlueprintStateUnlocked, ledger.entries[1].ToState)

	_, err = svc.Approve(ctx, "tenant-1", "bp-1", claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Len(t, ledger.entries, 3)
	require.Equal(t, models.ExamAuditActionApprove, ledger.entries[2].Action)
	require.Equal(t, models.BlueprintStateDraft, ledger.entries[2].FromState)
	require.Equal(t, models.BlueprintStateApproved, ledger.entries[2].ToState)

	// Approving an approved blueprint is a no-op too.
	_, err = svc.Approve(ctx, "tenant-1", "bp-1", claimsFor("principal-1", models.RolePrincipal))
	require.NoError(t, err)
	require.Len(t, ledger.entries, 3)
}

func TestBlueprintServiceLockRequiresSuperAdmin(t *testing.T) {
	repo := newBlueprintRepoStub()
	repo.blueprints["bp-1"] = &models.Blueprint{ID: "bp-1", TenantID: "tenant-1"}
	svc := NewBlueprintService(repo, &yearStoreStub{}, &lockedEditGateStub{}, &governanceLedgerStub{}, nil)

	_, err := svc.SetLock(context.Background(), "tenant-1", "bp-1", true, claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
