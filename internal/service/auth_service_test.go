package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type authUsersMock struct {
	users            map[string]*models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	allRevoked       bool
}

func newAuthUsersMock() *authUsersMock {
	return &authUsersMock{
		users:         make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *authUsersMock) FindByEmailAndTenant(ctx context.Context, email, tenantID string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email && user.TenantID != nil && *user.TenantID == tenantID {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *authUsersMock) FindByEmailGlobal(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email && user.TenantID == nil {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *authUsersMock) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authUsersMock) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *authUsersMock) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if user, ok := m.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *authUsersMock) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.allRevoked = true
	return nil
}

func (m *authUsersMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *authUsersMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authUsersMock) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *authUsersMock) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type authTenantsMock struct {
	tenants map[string]*models.Tenant
}

func (m *authTenantsMock) FindByCode(ctx context.Context, code string) (*models.Tenant, error) {
	if tenant, ok := m.tenants[code]; ok {
		return tenant, nil
	}
	return nil, sql.ErrNoRows
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
	}
}

func seedSchoolUser(users *authUsersMock, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	tenantID := "tenant-1"
	user := &models.User{
		ID:           "u1",
		TenantID:     &tenantID,
		UserCode:     "TCH001",
		Email:        "teacher@school.test",
		PasswordHash: string(hash),
		FullName:     "A Teacher",
		Role:         models.RoleTeacher,
		Active:       true,
	}
	users.users[user.ID] = user
	return user
}

func TestAuthServiceLoginResolvesTenantFromSchoolCode(t *testing.T) {
	users := newAuthUsersMock()
	seedSchoolUser(users, "password")
	tenants := &authTenantsMock{tenants: map[string]*models.Tenant{
		"GRNVLY": {ID: "tenant-1", Code: "GRNVLY", Active: true},
	}}
	svc := NewAuthService(users, tenants, validator.New(), zap.NewNop(), authTestConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{
		SchoolCode: "GRNVLY",
		Email:      "teacher@school.test",
		Password:   "password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	require.NotNil(t, res.User.TenantID)
	assert.Equal(t, "tenant-1", *res.User.TenantID)
	assert.True(t, users.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "TCH001", claims.UserCode)
}

func TestAuthServiceLoginUnknownSchoolCode(t *testing.T) {
	users := newAuthUsersMock()
	seedSchoolUser(users, "password")
	tenants := &authTenantsMock{tenants: map[string]*models.Tenant{}}
	svc := NewAuthService(users, tenants, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		SchoolCode: "NOPE",
		Email:      "teacher@school.test",
		Password:   "password",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveSchool(t *testing.T) {
	users := newAuthUsersMock()
	seedSchoolUser(users, "password")
	tenants := &authTenantsMock{tenants: map[string]*models.Tenant{
		"GRNVLY": {ID: "tenant-1", Code: "GRNVLY", Active: false},
	}}
	svc := NewAuthService(users, tenants, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		SchoolCode: "GRNVLY",
		Email:      "teacher@school.test",
		Password:   "password",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceSuperAdminLogsInWithoutSchoolCode(t *testing.T) {
	users := newAuthUsersMock()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users.users["sa"] = &models.User{
		ID:           "sa",
		UserCode:     "SYS001",
		Email:        "root@platform.test",
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
		Active:       true,
	}
	svc := NewAuthService(users, &authTenantsMock{}, validator.New(), zap.NewNop(), authTestConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "root@platform.test",
		Password: "password",
	})
	require.NoError(t, err)
	assert.Nil(t, res.User.TenantID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.TenantID)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := newAuthUsersMock()
	seedSchoolUser(users, "password")
	tenants := &authTenantsMock{tenants: map[string]*models.Tenant{
		"GRNVLY": {ID: "tenant-1", Code: "GRNVLY", Active: true},
	}}
	svc := NewAuthService(users, tenants, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{
		SchoolCode: "GRNVLY",
		Email:      "teacher@school.test",
		Password:   "wrong",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	users := newAuthUsersMock()
	user := seedSchoolUser(users, "password")
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	users.refreshTokens[token.Token] = token
	svc := NewAuthService(users, &authTenantsMock{}, validator.New(), zap.NewNop(), authTestConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, users.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	users := newAuthUsersMock()
	user := seedSchoolUser(users, "password")
	token := &models.RefreshToken{ID: "rt1", UserID: user.ID, Token: "token", ExpiresAt: time.Now().Add(-time.Minute)}
	users.refreshTokens[token.Token] = token
	svc := NewAuthService(users, &authTenantsMock{}, validator.New(), zap.NewNop(), authTestConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	users := newAuthUsersMock()
	user := seedSchoolUser(users, "old-password")
	oldHash := user.PasswordHash
	svc := NewAuthService(users, &authTenantsMock{}, validator.New(), zap.NewNop(), authTestConfig())

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "old-password",
		NewPassword: "new-password",
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, user.PasswordHash)
	assert.True(t, users.allRevoked)
}
