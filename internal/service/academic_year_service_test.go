package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type academicYearRepoStub struct {
	years          map[string]*models.AcademicYear
	setActiveCalls int
	lockCalls      int
}

func newAcademicYearRepoStub() *academicYearRepoStub {
	return &academicYearRepoStub{years: make(map[string]*models.AcademicYear)}
}

func (a *academicYearRepoStub) List(ctx context.Context, tenantID string, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	var result []models.AcademicYear
	for _, year := range a.years {
		if year.TenantID != tenantID {
			continue
		}
		result = append(result, *year)
	}
	return result, len(result), nil
}

func (a *academicYearRepoStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, ok := a.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *year
	return &clone, nil
}

func (a *academicYearRepoStub) FindActive(ctx context.Context, tenantID string) (*models.AcademicYear, error) {
	for _, year := range a.years {
		if year.TenantID == tenantID && year.IsActive {
			clone := *year
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a *academicYearRepoStub) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = fmt.Sprintf("year-%d", len(a.years)+1)
	}
	clone := *year
	a.years[year.ID] = &clone
	return nil
}

func (a *academicYearRepoStub) Update(ctx context.Context, year *models.AcademicYear) error {
	if _, ok := a.years[year.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *year
	a.years[year.ID] = &clone
	return nil
}

func (a *academicYearRepoStub) SetActive(ctx context.Context, tenantID, id string) error {
	a.setActiveCalls++
	target, ok := a.years[id]
	if !ok || target.TenantID != tenantID {
		return sql.ErrNoRows
	}
	for _, year := range a.years {
		if year.TenantID == tenantID {
			year.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (a *academicYearRepoStub) SetLocked(ctx context.Context, id string, locked bool, actorID string) error {
	a.lockCalls++
	year, ok := a.years[id]
	if !ok {
		return sql.ErrNoRows
	}
	year.IsLocked = locked
	if locked {
		year.LockedBy = &actorID
		now := time.Now().UTC()
		year.LockedAt = &now
	} else {
		year.LockedBy = nil
		year.LockedAt = nil
	}
	return nil
}

func seedYear(store *academicYearRepoStub, id string, active, locked bool) *models.AcademicYear {
	year := &models.AcademicYear{
		ID:        id,
		TenantID:  "tenant-1",
		Name:      "AY 2025-26",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  active,
		IsLocked:  locked,
	}
	store.years[id] = year
	return year
}

func TestAcademicYearServiceCreateValidatesDates(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)

	_, err := svc.Create(context.Background(), "tenant-1", dto.CreateAcademicYearRequest{
		Name:      "AY 2025-26",
		StartDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}, claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	year, err := svc.Create(context.Background(), "tenant-1", dto.CreateAcademicYearRequest{
		Name:      "AY 2025-26",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}, claimsFor("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.False(t, year.IsActive)
	assert.False(t, year.IsLocked)
}

func TestAcademicYearServiceRoleRestricted(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)

	_, err := svc.Create(context.Background(), "tenant-1", dto.CreateAcademicYearRequest{
		Name:      "AY 2025-26",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}, claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearServiceActivateSwitchesSingleActive(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)
	seedYear(store, "year-1", true, false)
	seedYear(store, "year-2", false, false)
	admin := claimsFor("admin-1", models.RoleAdmin)

	year, err := svc.Activate(context.Background(), "tenant-1", "year-2", admin)
	require.NoError(t, err)
	assert.True(t, year.IsActive)
	assert.False(t, store.years["year-1"].IsActive)
	assert.Equal(t, 1, store.setActiveCalls)

	// Re-activating the active year is a no-op success.
	_, err = svc.Activate(context.Background(), "tenant-1", "year-2", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, store.setActiveCalls)
}

func TestAcademicYearServiceActivateLockedBlocked(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)
	seedYear(store, "year-1", false, true)

	_, err := svc.Activate(context.Background(), "tenant-1", "year-1", claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGuardFailed.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearServiceUpdateLockedBlocked(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)
	seedYear(store, "year-1", false, true)
	name := "AY 2026-27"

	_, err := svc.Update(context.Background(), "tenant-1", "year-1", dto.UpdateAcademicYearRequest{Name: &name}, claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGuardFailed.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearServiceLockIdempotent(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)
	seedYear(store, "year-1", false, false)
	admin := claimsFor("admin-1", models.RoleAdmin)
	ctx := context.Background()

	year, err := svc.SetLock(ctx, "tenant-1", "year-1", true, admin)
	require.NoError(t, err)
	assert.True(t, year.IsLocked)
	require.NotNil(t, year.LockedBy)
	assert.Equal(t, "admin-1", *year.LockedBy)

	_, err = svc.SetLock(ctx, "tenant-1", "year-1", true, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lockCalls)

	year, err = svc.SetLock(ctx, "tenant-1", "year-1", false, admin)
	require.NoError(t, err)
	assert.False(t, year.IsLocked)
	assert.Nil(t, year.LockedBy)
}

func TestAcademicYearServiceGetActive(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)

	_, err := svc.GetActive(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	seedYear(store, "year-1", true, false)
	year, err := svc.GetActive(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "year-1", year.ID)
}

func TestAcademicYearServiceTenantScope(t *testing.T) {
	store := newAcademicYearRepoStub()
	svc := NewAcademicYearService(store, nil)
	seedYear(store, "year-1", false, false)

	_, err := svc.Get(context.Background(), "tenant-2", "year-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
