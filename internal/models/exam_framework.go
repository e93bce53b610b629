package models

import (
	"time"

	"github.com/lib/pq"
)

// ExamFramework is a reusable exam template for a wing and academic year.
type ExamFramework struct {
	ID                string         `db:"id" json:"id"`
	TenantID          string         `db:"tenant_id" json:"tenantId"`
	WingID            *string        `db:"wing_id" json:"wingId,omitempty"`
	AcademicYearID    *string        `db:"academic_year_id" json:"academicYearId,omitempty"`
	Name              string         `db:"name" json:"name"`
	TotalMarks        int            `db:"total_marks" json:"totalMarks"`
	DurationMinutes   int            `db:"duration_minutes" json:"durationMinutes"`
	Subjects          pq.StringArray `db:"subjects" json:"subjects"`
	QuestionPaperSets int            `db:"question_paper_sets" json:"questionPaperSets"`
	PageSize          string         `db:"page_size" json:"pageSize"`
	Active            bool           `db:"active" json:"active"`
	CreatedBy         string         `db:"created_by" json:"createdBy"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// ExamFrameworkFilter constrains framework listing.
type ExamFrameworkFilter struct {
	TenantID       string
	WingID         string
	AcademicYearID string
	Active         *bool
	Page           int
	PageSize       int
}
