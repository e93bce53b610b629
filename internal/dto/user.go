package dto

import "github.com/VipuDevAI/Prashnakosh-sub002/internal/models"

// CreateUserRequest provisions an account inside the caller's tenant.
type CreateUserRequest struct {
	UserCode string          `json:"userCode" validate:"required,min=3"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"fullName" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required"`
	Grade    string          `json:"grade"`
	Subject  string          `json:"subject"`
}

// UpdateUserRequest carries partial edits. The user code is immutable once
// assigned.
type UpdateUserRequest struct {
	Email    *string          `json:"email" validate:"omitempty,email"`
	FullName *string          `json:"fullName"`
	Role     *models.UserRole `json:"role"`
	Grade    *string          `json:"grade"`
	Subject  *string          `json:"subject"`
	Active   *bool            `json:"active"`
}

// ResetPasswordRequest lets an admin set a new password for a user without
// knowing the old one.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

// UserQuery mirrors supported listing filters.
type UserQuery struct {
	Role      models.UserRole
	Grade     string
	Subject   string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
