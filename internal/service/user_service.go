package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmailAndTenant(ctx context.Context, email, tenantID string) (*models.User, error)
	ExistsByUserCode(ctx context.Context, tenantID, userCode string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService manages school accounts. A school admin provisions and edits
// users inside their own tenant; super admins can do so for any school.
// Super admin accounts themselves are seeded out of band and never pass
// through here.
type UserService struct {
	users  userStore
	logger *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users userStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// Create provisions an account. The user code is permanent and unique within
// the school; email uniqueness is also per school since logins resolve the
// tenant first.
func (s *UserService) Create(ctx context.Context, tenantID string, req dto.CreateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return nil, err
	}
	userCode := strings.ToUpper(strings.TrimSpace(req.UserCode))
	if len(userCode) < 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "userCode must be at least 3 characters")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	if len(req.Password) < 8 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fullName is required")
	}
	if err := validateAssignableRole(req.Role); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByUserCode(ctx, tenantID, userCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check user code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user code already in use in this school")
	}
	if _, err := s.users.FindByEmailAndTenant(ctx, email, tenantID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered in this school")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		TenantID:     &tenantID,
		UserCode:     userCode,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Grade:        optionalString(strings.TrimSpace(req.Grade)),
		Subject:      optionalString(strings.ToLower(strings.TrimSpace(req.Subject))),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordAudit(ctx, actor, models.AuditActionUserCreate, user.ID, map[string]any{
		"userCode": user.UserCode,
		"role":     user.Role,
	})
	return user, nil
}

// Get loads one account of the school.
func (s *UserService) Get(ctx context.Context, tenantID, id string) (*models.User, error) {
	return s.loadUser(ctx, tenantID, id)
}

// List returns school accounts matching the query.
func (s *UserService) List(ctx context.Context, tenantID string, query dto.UserQuery) ([]models.User, int, error) {
	filter := models.UserFilter{
		TenantID:  tenantID,
		Role:      query.Role,
		Grade:     query.Grade,
		Subject:   strings.ToLower(query.Subject),
		Active:    query.Active,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Update applies partial edits. The user code never changes; a deactivation
// also revokes the user's sessions so access ends immediately.
func (s *UserService) Update(ctx context.Context, tenantID, id string, req dto.UpdateUserRequest, actor *models.JWTClaims) (*models.User, error) {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
		}
		if email != user.Email {
			if _, err := s.users.FindByEmailAndTenant(ctx, email, tenantID); err == nil {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered in this school")
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
			}
			user.Email = email
			changes["email"] = email
		}
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fullName is required")
		}
		user.FullName = name
	}
	if req.Role != nil {
		if err := validateAssignableRole(*req.Role); err != nil {
			return nil, err
		}
		if *req.Role != user.Role {
			changes["role"] = *req.Role
		}
		user.Role = *req.Role
	}
	if req.Grade != nil {
		user.Grade = optionalString(strings.TrimSpace(*req.Grade))
	}
	if req.Subject != nil {
		user.Subject = optionalString(strings.ToLower(strings.TrimSpace(*req.Subject)))
	}
	deactivated := false
	if req.Active != nil {
		if user.Active && !*req.Active {
			if actor.UserID == id {
				return nil, appErrors.Clone(appErrors.ErrValidation, "you cannot deactivate your own account")
			}
			deactivated = true
		}
		if user.Active != *req.Active {
			changes["active"] = *req.Active
		}
		user.Active = *req.Active
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	if deactivated {
		if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions of deactivated user", zap.String("userId", id), zap.Error(err))
		}
	}
	if len(changes) > 0 {
		s.recordAudit(ctx, actor, models.AuditActionUserUpdate, id, changes)
	}
	return user, nil
}

// Delete deactivates an account. Rows are kept so attempt history and the
// workflow ledger stay attributable.
func (s *UserService) Delete(ctx context.Context, tenantID, id string, actor *models.JWTClaims) error {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return err
	}
	if actor.UserID == id {
		return appErrors.Clone(appErrors.ErrValidation, "you cannot delete your own account")
	}
	if _, err := s.loadUser(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions of deleted user", zap.String("userId", id), zap.Error(err))
	}
	s.recordAudit(ctx, actor, models.AuditActionUserDelete, id, map[string]any{"active": false})
	return nil
}

// ResetPassword sets a new password without the old one and ends all of the
// user's sessions.
func (s *UserService) ResetPassword(ctx context.Context, tenantID, id string, req dto.ResetPasswordRequest, actor *models.JWTClaims) error {
	if err := requireTenantAdmin(actor, tenantID); err != nil {
		return err
	}
	if len(req.NewPassword) < 8 {
		return appErrors.Clone(appErrors.ErrValidation, "newPassword must be at least 8 characters")
	}
	if _, err := s.loadUser(ctx, tenantID, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if err := s.users.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions after password reset", zap.String("userId", id), zap.Error(err))
	}
	s.recordAudit(ctx, actor, models.AuditActionPasswordChange, id, map[string]any{"status": "reset"})
	return nil
}

// loadUser fetches an account and hides users of other schools. Super admin
// rows carry no tenant and are never reachable through this path.
func (s *UserService) loadUser(ctx context.Context, tenantID, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.TenantID == nil || *user.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

func (s *UserService) recordAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, values map[string]any) {
	payload, err := json.Marshal(values)
	if err != nil {
		payload = nil
	}
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func validateAssignableRole(role models.UserRole) error {
	if !models.ValidRole(role) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if role == models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrValidation, "super admin accounts cannot be provisioned here")
	}
	return nil
}
