package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type userRepoStub struct {
	users     map[string]*models.User
	filter    models.UserFilter
	revoked   []string
	auditLogs []models.AuditLog
	nextID    int
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*models.User)}
}

func (s *userRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s *userRepoStub) FindByEmailAndTenant(_ context.Context, email, tenantID string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email && user.TenantID != nil && *user.TenantID == tenantID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) ExistsByUserCode(_ context.Context, tenantID, userCode string) (bool, error) {
	for _, user := range s.users {
		if user.UserCode == userCode && user.TenantID != nil && *user.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

func (s *userRepoStub) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	s.filter = filter
	var out []models.User
	for _, user := range s.users {
		if user.TenantID == nil || *user.TenantID != filter.TenantID {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	s.nextID++
	user.ID = fmt.Sprintf("user-%d", s.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *userRepoStub) Update(_ context.Context, user *models.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *userRepoStub) Delete(_ context.Context, id string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Active = false
	return nil
}

func (s *userRepoStub) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *userRepoStub) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func (s *userRepoStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, *log)
	return nil
}

func seedUser(store *userRepoStub, id, code string, role models.UserRole) *models.User {
	tenantID := "tenant-1"
	user := &models.User{
		ID:           id,
		TenantID:     &tenantID,
		UserCode:     code,
		Email:        code + "@gvs.example",
		PasswordHash: "$2a$10$seeded",
		FullName:     "Seeded User",
		Role:         role,
		Active:       true,
	}
	store.users[id] = user
	return user
}

func teacherRequest() dto.CreateUserRequest {
	return dto.CreateUserRequest{
		UserCode: "tch042",
		Email:    "Asha.Verma@GVS.example",
		Password: "s3cret-pass",
		FullName: "Asha Verma",
		Role:     models.RoleTeacher,
		Grade:    "10",
		Subject:  "Mathematics",
	}
}

func TestUserServiceCreateNormalizesAndHashes(t *testing.T) {
	store := newUserRepoStub()
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	user, err := svc.Create(context.Background(), "tenant-1", teacherRequest(), admin)
	require.NoError(t, err)

	assert.Equal(t, "TCH042", user.UserCode)
	assert.Equal(t, "asha.verma@gvs.example", user.Email)
	require.NotNil(t, user.Subject)
	assert.Equal(t, "mathematics", *user.Subject)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, store.auditLogs[0].Action)
	assert.Equal(t, "users", store.auditLogs[0].Resource)
}

func TestUserServiceCreateRejectsDuplicates(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-9", "TCH042", models.RoleTeacher)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), "tenant-1", teacherRequest(), admin)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "user code")

	req := teacherRequest()
	req.UserCode = "TCH043"
	req.Email = "tch042@gvs.example"
	_, err = svc.Create(context.Background(), "tenant-1", req, admin)
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "email")
}

func TestUserServiceCreateValidation(t *testing.T) {
	store := newUserRepoStub()
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	cases := []struct {
		name   string
		mutate func(*dto.CreateUserRequest)
	}{
		{"short user code", func(r *dto.CreateUserRequest) { r.UserCode = "t1" }},
		{"missing email", func(r *dto.CreateUserRequest) { r.Email = "  " }},
		{"short password", func(r *dto.CreateUserRequest) { r.Password = "short" }},
		{"missing name", func(r *dto.CreateUserRequest) { r.FullName = " " }},
		{"unknown role", func(r *dto.CreateUserRequest) { r.Role = "janitor" }},
		{"super admin role", func(r *dto.CreateUserRequest) { r.Role = models.RoleSuperAdmin }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := teacherRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), "tenant-1", req, admin)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, store.users)
}

func TestUserServiceCreateNeedsAdmin(t *testing.T) {
	store := newUserRepoStub()
	svc := NewUserService(store, nil)

	for _, role := range []models.UserRole{models.RoleTeacher, models.RoleHOD, models.RolePrincipal} {
		_, err := svc.Create(context.Background(), "tenant-1", teacherRequest(), claimsFor("user-1", role))
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}

	foreign := &models.JWTClaims{UserID: "admin-2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.Create(context.Background(), "tenant-1", teacherRequest(), foreign)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateKeepsUserCode(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "TCH042", models.RoleTeacher)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	role := models.RoleHOD
	name := "Asha Verma"
	updated, err := svc.Update(context.Background(), "tenant-1", "user-1", dto.UpdateUserRequest{
		FullName: &name,
		Role:     &role,
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, "TCH042", updated.UserCode)
	assert.Equal(t, models.RoleHOD, updated.Role)
	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, store.auditLogs[0].Action)
}

func TestUserServiceUpdateRoleValidation(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "TCH042", models.RoleTeacher)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	bad := models.UserRole("janitor")
	_, err := svc.Update(context.Background(), "tenant-1", "user-1", dto.UpdateUserRequest{Role: &bad}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	super := models.RoleSuperAdmin
	_, err = svc.Update(context.Background(), "tenant-1", "user-1", dto.UpdateUserRequest{Role: &super}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeactivateRevokesSessions(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "TCH042", models.RoleTeacher)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	inactive := false
	updated, err := svc.Update(context.Background(), "tenant-1", "user-1", dto.UpdateUserRequest{Active: &inactive}, admin)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, []string{"user-1"}, store.revoked)
}

func TestUserServiceSelfLockoutBlocked(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "admin-1", "ADM001", models.RoleAdmin)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	inactive := false
	_, err := svc.Update(context.Background(), "tenant-1", "admin-1", dto.UpdateUserRequest{Active: &inactive}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "tenant-1", "admin-1", admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteIsSoft(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "STU101", models.RoleStudent)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	require.NoError(t, svc.Delete(context.Background(), "tenant-1", "user-1", admin))

	stored := store.users["user-1"]
	require.NotNil(t, stored)
	assert.False(t, stored.Active)
	assert.Contains(t, store.revoked, "user-1")
	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, store.auditLogs[0].Action)
}

func TestUserServiceResetPassword(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "STU101", models.RoleStudent)
	svc := NewUserService(store, nil)
	admin := claimsFor("admin-1", models.RoleAdmin)

	err := svc.ResetPassword(context.Background(), "tenant-1", "user-1", dto.ResetPasswordRequest{NewPassword: "fresh-pass-9"}, admin)
	require.NoError(t, err)

	stored := store.users["user-1"]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("fresh-pass-9")))
	assert.Contains(t, store.revoked, "user-1")

	err = svc.ResetPassword(context.Background(), "tenant-1", "user-1", dto.ResetPasswordRequest{NewPassword: "short"}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceTenantScope(t *testing.T) {
	store := newUserRepoStub()
	foreignTenant := "tenant-2"
	store.users["user-9"] = &models.User{ID: "user-9", TenantID: &foreignTenant, UserCode: "TCH900", Role: models.RoleTeacher, Active: true}
	store.users["root-9"] = &models.User{ID: "root-9", UserCode: "ROOT", Role: models.RoleSuperAdmin, Active: true}
	svc := NewUserService(store, nil)

	_, err := svc.Get(context.Background(), "tenant-1", "user-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), "tenant-1", "root-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceListForwardsFilters(t *testing.T) {
	store := newUserRepoStub()
	seedUser(store, "user-1", "TCH042", models.RoleTeacher)
	seedUser(store, "user-2", "STU101", models.RoleStudent)
	svc := NewUserService(store, nil)

	active := true
	users, total, err := svc.List(context.Background(), "tenant-1", dto.UserQuery{
		Role:    models.RoleTeacher,
		Subject: "Mathematics",
		Active:  &active,
		SortBy:  "user_code",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
	assert.Equal(t, "mathematics", store.filter.Subject)
	assert.Equal(t, "user_code", store.filter.SortBy)
	assert.Equal(t, "tenant-1", store.filter.TenantID)
}
