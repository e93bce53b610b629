package models

import "time"

// AcademicYear scopes blueprints, frameworks, and policies inside a tenant.
// At most one year is active per tenant; locking a year freezes its dependent
// blueprints and exam frameworks.
type AcademicYear struct {
	ID        string     `db:"id" json:"id"`
	TenantID  string     `db:"tenant_id" json:"tenantId"`
	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"startDate"`
	EndDate   time.Time  `db:"end_date" json:"endDate"`
	IsActive  bool       `db:"is_active" json:"isActive"`
	IsLocked  bool       `db:"is_locked" json:"isLocked"`
	LockedBy  *string    `db:"locked_by" json:"lockedBy,omitempty"`
	LockedAt  *time.Time `db:"locked_at" json:"lockedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// AcademicYearFilter constrains year listing.
type AcademicYearFilter struct {
	TenantID string
	Active   *bool
	Locked   *bool
	Page     int
	PageSize int
}
