package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin    UserRole = "super_admin"
	RoleAdmin         UserRole = "admin"
	RoleHOD           UserRole = "hod"
	RolePrincipal     UserRole = "principal"
	RoleExamCommittee UserRole = "exam_committee"
	RoleTeacher       UserRole = "teacher"
	RoleStudent       UserRole = "student"
	RoleParent        UserRole = "parent"
)

// ValidRole reports whether the role is one of the fixed set.
func ValidRole(role UserRole) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleHOD, RolePrincipal, RoleExamCommittee, RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table. Super admins
// carry a NULL tenant id; everyone else belongs to exactly one school.
type User struct {
	ID           string     `db:"id" json:"id"`
	TenantID     *string    `db:"tenant_id" json:"tenantId,omitempty"`
	UserCode     string     `db:"user_code" json:"userCode"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Grade        *string    `db:"grade" json:"grade,omitempty"`
	Subject      *string    `db:"subject" json:"subject,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	TenantID  string
	Role      UserRole
	Grade     string
	Subject   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
