package models

import "time"

// BlueprintSection describes one section of a blueprint's structure. Sections
// are stored as a JSONB array on the blueprint row.
type BlueprintSection struct {
	Name          string             `json:"name"`
	Marks         int                `json:"marks"`
	QuestionCount int                `json:"questionCount"`
	QuestionType  QuestionType       `json:"questionType"`
	Difficulty    QuestionDifficulty `json:"difficulty"`
	Chapters      []string           `json:"chapters"`
}

// Blueprint defines the section/marks template a test paper must satisfy.
// IsApproved and IsLocked are independent booleans: a blueprint can be
// approved and unlocked, or locked and unapproved.
type Blueprint struct {
	ID              string     `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenantId"`
	AcademicYearID  *string    `db:"academic_year_id" json:"academicYearId,omitempty"`
	ExamFrameworkID *string    `db:"exam_framework_id" json:"examFrameworkId,omitempty"`
	Name            string     `db:"name" json:"name"`
	Grade           string     `db:"grade" json:"grade"`
	Subject         string     `db:"subject" json:"subject"`
	TotalMarks      int        `db:"total_marks" json:"totalMarks"`
	Sections        []byte     `db:"sections" json:"sections"`
	IsApproved      bool       `db:"is_approved" json:"isApproved"`
	ApprovedBy      *string    `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	IsLocked        bool       `db:"is_locked" json:"isLocked"`
	LockedBy        *string    `db:"locked_by" json:"lockedBy,omitempty"`
	LockedAt        *time.Time `db:"locked_at" json:"lockedAt,omitempty"`
	CreatedBy       string     `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// BlueprintFilter constrains blueprint listing.
type BlueprintFilter struct {
	TenantID       string
	AcademicYearID string
	Grade          string
	Subject        string
	Approved       *bool
	Locked         *bool
	Search         string
	Page           int
	PageSize       int
}

// BlueprintPolicy governs blueprint rules for one (tenant, academic year)
// pair. A missing row means the strict defaults: blueprints mandatory,
// no editing after lock.
type BlueprintPolicy struct {
	ID                 string    `db:"id" json:"id"`
	TenantID           string    `db:"tenant_id" json:"tenantId"`
	AcademicYearID     string    `db:"academic_year_id" json:"academicYearId"`
	BlueprintMandatory bool      `db:"blueprint_mandatory" json:"blueprintMandatory"`
	AllowEditAfterLock bool      `db:"allow_edit_after_lock" json:"allowEditAfterLock"`
	UpdatedBy          string    `db:"updated_by" json:"updatedBy"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultBlueprintPolicy returns the fail-safe policy applied when no row
// exists for the (tenant, year) pair.
func DefaultBlueprintPolicy(tenantID, academicYearID string) BlueprintPolicy {
	return BlueprintPolicy{
		TenantID:           tenantID,
		AcademicYearID:     academicYearID,
		BlueprintMandatory: true,
		AllowEditAfterLock: false,
	}
}
