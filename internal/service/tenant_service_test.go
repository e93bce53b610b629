package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type tenantRepoStub struct {
	tenants map[string]*models.Tenant
	wings   map[string]*models.Wing
	storage map[string]*models.StorageConfig
	nextID  int
}

func newTenantRepoStub() *tenantRepoStub {
	return &tenantRepoStub{
		tenants: make(map[string]*models.Tenant),
		wings:   make(map[string]*models.Wing),
		storage: make(map[string]*models.StorageConfig),
	}
}

func (s *tenantRepoStub) FindByID(_ context.Context, id string) (*models.Tenant, error) {
	tenant, ok := s.tenants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *tenant
	return &clone, nil
}

func (s *tenantRepoStub) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, tenant := range s.tenants {
		if tenant.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *tenantRepoStub) List(_ context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	var out []models.Tenant
	for _, tenant := range s.tenants {
		if filter.Active != nil && tenant.Active != *filter.Active {
			continue
		}
		out = append(out, *tenant)
	}
	return out, len(out), nil
}

func (s *tenantRepoStub) Create(_ context.Context, tenant *models.Tenant) error {
	s.nextID++
	tenant.ID = fmt.Sprintf("tenant-%d", s.nextID)
	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

func (s *tenantRepoStub) Update(_ context.Context, tenant *models.Tenant) error {
	if _, ok := s.tenants[tenant.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

func (s *tenantRepoStub) ListWings(_ context.Context, tenantID string) ([]models.Wing, error) {
	var out []models.Wing
	for _, wing := range s.wings {
		if wing.TenantID == tenantID {
			out = append(out, *wing)
		}
	}
	return out, nil
}

func (s *tenantRepoStub) FindWingByID(_ context.Context, id string) (*models.Wing, error) {
	wing, ok := s.wings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *wing
	return &clone, nil
}

func (s *tenantRepoStub) CreateWing(_ context.Context, wing *models.Wing) error {
	s.nextID++
	wing.ID = fmt.Sprintf("wing-%d", s.nextID)
	clone := *wing
	s.wings[wing.ID] = &clone
	return nil
}

func (s *tenantRepoStub) UpdateWing(_ context.Context, wing *models.Wing) error {
	if _, ok := s.wings[wing.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *wing
	s.wings[wing.ID] = &clone
	return nil
}

func (s *tenantRepoStub) GetStorageConfig(_ context.Context, tenantID string) (*models.StorageConfig, error) {
	cfg, ok := s.storage[tenantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *cfg
	return &clone, nil
}

func (s *tenantRepoStub) UpsertStorageConfig(_ context.Context, cfg *models.StorageConfig) error {
	clone := *cfg
	s.storage[cfg.TenantID] = &clone
	return nil
}

func seedTenant(store *tenantRepoStub, id, code string, active bool) *models.Tenant {
	tenant := &models.Tenant{
		ID:     id,
		Name:   "Green Valley School",
		Code:   code,
		Active: active,
	}
	store.tenants[id] = tenant
	return tenant
}

func superAdminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "root-1", Role: models.RoleSuperAdmin}
}

func TestTenantServiceCreateNormalizesCode(t *testing.T) {
	store := newTenantRepoStub()
	svc := NewTenantService(store, nil)

	tenant, err := svc.Create(context.Background(), dto.CreateTenantRequest{
		Name:           "  Green Valley School  ",
		Code:           "gvs01",
		PrincipalEmail: "Principal@GVS.example",
	}, superAdminClaims())
	require.NoError(t, err)

	assert.Equal(t, "GVS01", tenant.Code)
	assert.Equal(t, "Green Valley School", tenant.Name)
	assert.Equal(t, "principal@gvs.example", tenant.PrincipalEmail)
	assert.True(t, tenant.Active)
}

func TestTenantServiceCreateRejectsDuplicateCode(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)

	_, err := svc.Create(context.Background(), dto.CreateTenantRequest{
		Name: "Another School",
		Code: "gvs01",
	}, superAdminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceCreateValidation(t *testing.T) {
	store := newTenantRepoStub()
	svc := NewTenantService(store, nil)

	cases := []struct {
		name string
		req  dto.CreateTenantRequest
	}{
		{"short name", dto.CreateTenantRequest{Name: "GV", Code: "GVS01"}},
		{"short code", dto.CreateTenantRequest{Name: "Green Valley", Code: "GV"}},
		{"long code", dto.CreateTenantRequest{Name: "Green Valley", Code: "GREENVALLEY01"}},
		{"symbols in code", dto.CreateTenantRequest{Name: "Green Valley", Code: "GVS-01"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req, superAdminClaims())
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, store.tenants)
}

func TestTenantServiceCreateSuperAdminOnly(t *testing.T) {
	store := newTenantRepoStub()
	svc := NewTenantService(store, nil)

	for _, role := range []models.UserRole{models.RoleAdmin, models.RolePrincipal, models.RoleTeacher} {
		_, err := svc.Create(context.Background(), dto.CreateTenantRequest{Name: "Green Valley", Code: "GVS01"}, claimsFor("user-1", role))
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestTenantServiceGetScopesToOwnSchool(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	seedTenant(store, "tenant-2", "NHS02", true)
	svc := NewTenantService(store, nil)

	own, err := svc.Get(context.Background(), "tenant-1", claimsFor("admin-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "GVS01", own.Code)

	_, err = svc.Get(context.Background(), "tenant-2", claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	other, err := svc.Get(context.Background(), "tenant-2", superAdminClaims())
	require.NoError(t, err)
	assert.Equal(t, "NHS02", other.Code)
}

func TestTenantServiceUpdateTogglesActive(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)

	inactive := false
	name := "Green Valley Senior School"
	tenant, err := svc.Update(context.Background(), "tenant-1", dto.UpdateTenantRequest{
		Name:   &name,
		Active: &inactive,
	}, superAdminClaims())
	require.NoError(t, err)

	assert.Equal(t, "Green Valley Senior School", tenant.Name)
	assert.False(t, tenant.Active)
	assert.Equal(t, "GVS01", tenant.Code)
}

func TestTenantServiceWingLifecycle(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	wing, err := svc.CreateWing(context.Background(), "tenant-1", dto.CreateWingRequest{
		Name:      "Senior Wing",
		Grades:    []string{"11", "12"},
		SortOrder: 2,
	}, admin)
	require.NoError(t, err)
	assert.True(t, wing.Active)
	assert.Equal(t, []string{"11", "12"}, []string(wing.Grades))

	grades := []string{"9", "10", "11", "12"}
	updated, err := svc.UpdateWing(context.Background(), "tenant-1", wing.ID, dto.UpdateWingRequest{Grades: grades}, admin)
	require.NoError(t, err)
	assert.Len(t, updated.Grades, 4)

	wings, err := svc.ListWings(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, wings, 1)
}

func TestTenantServiceWingValidation(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	_, err := svc.CreateWing(context.Background(), "tenant-1", dto.CreateWingRequest{Name: "Senior Wing"}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateWing(context.Background(), "tenant-1", dto.CreateWingRequest{Grades: []string{"11"}}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceWingForeignAdminForbidden(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	seedTenant(store, "tenant-2", "NHS02", true)
	svc := NewTenantService(store, nil)

	foreign := &models.JWTClaims{UserID: "admin-2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.CreateWing(context.Background(), "tenant-1", dto.CreateWingRequest{
		Name:   "Senior Wing",
		Grades: []string{"11"},
	}, foreign)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceWingTenantScope(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	store.wings["wing-9"] = &models.Wing{ID: "wing-9", TenantID: "tenant-2", Name: "Junior Wing"}
	svc := NewTenantService(store, nil)

	name := "Middle Wing"
	_, err := svc.UpdateWing(context.Background(), "tenant-1", "wing-9", dto.UpdateWingRequest{Name: &name}, superAdminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTenantServiceStorageConfigUpsert(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)

	_, err := svc.GetStorageConfig(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	cfg, err := svc.UpsertStorageConfig(context.Background(), "tenant-1", dto.UpdateStorageConfigRequest{
		BucketName:      "exam-files",
		FolderPath:      "gvs01/",
		MaxStorageBytes: 5 << 30,
	}, superAdminClaims())
	require.NoError(t, err)
	assert.Equal(t, "root-1", cfg.UpdatedBy)

	loaded, err := svc.GetStorageConfig(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5<<30), loaded.MaxStorageBytes)
}

func TestTenantServiceStorageConfigValidation(t *testing.T) {
	store := newTenantRepoStub()
	seedTenant(store, "tenant-1", "GVS01", true)
	svc := NewTenantService(store, nil)

	_, err := svc.UpsertStorageConfig(context.Background(), "tenant-1", dto.UpdateStorageConfigRequest{
		BucketName:      "exam-files",
		FolderPath:      "gvs01/",
		MaxStorageBytes: 0,
	}, superAdminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.UpsertStorageConfig(context.Background(), "tenant-1", dto.UpdateStorageConfigRequest{
		BucketName:      "exam-files",
		FolderPath:      "gvs01/",
		MaxStorageBytes: 1024,
	}, claimsFor("admin-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.UpsertStorageConfig(context.Background(), "tenant-9", dto.UpdateStorageConfigRequest{
		BucketName:      "exam-files",
		FolderPath:      "gvs01/",
		MaxStorageBytes: 1024,
	}, superAdminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
