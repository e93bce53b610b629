package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

// TestPaper is the central workflow entity: an exam paper moving through the
// approval pipeline. The stage stamps are a denormalized view of the audit
// ledger's latest rows; re-submission clears them while the ledger keeps the
// full history.
type TestPaper struct {
	ID              string         `db:"id" json:"id"`
	TenantID        string         `db:"tenant_id" json:"tenantId"`
	AcademicYearID  *string        `db:"academic_year_id" json:"academicYearId,omitempty"`
	ExamFrameworkID *string        `db:"exam_framework_id" json:"examFrameworkId,omitempty"`
	BlueprintID     *string        `db:"blueprint_id" json:"blueprintId,omitempty"`
	Title           string         `db:"title" json:"title"`
	Grade           string         `db:"grade" json:"grade"`
	Subject         string         `db:"subject" json:"subject"`
	TotalMarks      int            `db:"total_marks" json:"totalMarks"`
	DurationMinutes int            `db:"duration_minutes" json:"durationMinutes"`
	QuestionIDs     pq.StringArray `db:"question_ids" json:"questionIds"`
	WorkflowState   workflow.State `db:"workflow_state" json:"workflowState"`
	IsConfidential  bool           `db:"is_confidential" json:"isConfidential"`
	PrintingReady   bool           `db:"printing_ready" json:"printingReady"`
	ResultsRevealed bool           `db:"results_revealed" json:"resultsRevealed"`
	ScheduledDate   *time.Time     `db:"scheduled_date" json:"scheduledDate,omitempty"`

	SubmittedBy         *string    `db:"submitted_by" json:"submittedBy,omitempty"`
	SubmittedAt         *time.Time `db:"submitted_at" json:"submittedAt,omitempty"`
	HODApprovedBy       *string    `db:"hod_approved_by" json:"hodApprovedBy,omitempty"`
	HODApprovedAt       *time.Time `db:"hod_approved_at" json:"hodApprovedAt,omitempty"`
	HODComment          *string    `db:"hod_comment" json:"hodComment,omitempty"`
	PrincipalApprovedBy *string    `db:"principal_approved_by" json:"principalApprovedBy,omitempty"`
	PrincipalApprovedAt *time.Time `db:"principal_approved_at" json:"principalApprovedAt,omitempty"`
	PrincipalComment    *string    `db:"principal_comment" json:"principalComment,omitempty"`
	SentToCommitteeAt   *time.Time `db:"sent_to_committee_at" json:"sentToCommitteeAt,omitempty"`
	ActivatedBy         *string    `db:"activated_by" json:"activatedBy,omitempty"`
	ActivatedAt         *time.Time `db:"activated_at" json:"activatedAt,omitempty"`
	LockedBy            *string    `db:"locked_by" json:"lockedBy,omitempty"`
	LockedAt            *time.Time `db:"locked_at" json:"lockedAt,omitempty"`
	ArchivedBy          *string    `db:"archived_by" json:"archivedBy,omitempty"`
	ArchivedAt          *time.Time `db:"archived_at" json:"archivedAt,omitempty"`
	GeneratedPaperPath  *string    `db:"generated_paper_path" json:"generatedPaperPath,omitempty"`
	ResultsRevealedAt   *time.Time `db:"results_revealed_at" json:"resultsRevealedAt,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TestPaperFilter constrains paper listing queries.
type TestPaperFilter struct {
	TenantID       string
	AcademicYearID string
	Grade          string
	Subject        string
	States         []workflow.State
	CreatedBy      string
	Page           int
	PageSize       int
}
