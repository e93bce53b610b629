package dto

import (
	"time"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

// CreateTestPaperRequest is the payload for drafting a new paper.
type CreateTestPaperRequest struct {
	Title           string     `json:"title" validate:"required,min=3"`
	Grade           string     `json:"grade" validate:"required"`
	Subject         string     `json:"subject" validate:"required"`
	TotalMarks      int        `json:"totalMarks" validate:"required,gt=0"`
	DurationMinutes int        `json:"durationMinutes" validate:"required,gt=0"`
	AcademicYearID  string     `json:"academicYearId"`
	ExamFrameworkID string     `json:"examFrameworkId"`
	BlueprintID     string     `json:"blueprintId"`
	QuestionIDs     []string   `json:"questionIds"`
	IsConfidential  bool       `json:"isConfidential"`
	ScheduledDate   *time.Time `json:"scheduledDate"`
}

// UpdateTestPaperRequest carries partial edits to a draft paper. Nil fields
// are left untouched.
type UpdateTestPaperRequest struct {
	Title           *string    `json:"title"`
	Grade           *string    `json:"grade"`
	Subject         *string    `json:"subject"`
	TotalMarks      *int       `json:"totalMarks"`
	DurationMinutes *int       `json:"durationMinutes"`
	ExamFrameworkID *string    `json:"examFrameworkId"`
	BlueprintID     *string    `json:"blueprintId"`
	QuestionIDs     []string   `json:"questionIds"`
	IsConfidential  *bool      `json:"isConfidential"`
	ScheduledDate   *time.Time `json:"scheduledDate"`
}

// Review decisions accepted on the wire.
const (
	ReviewDecisionApprove = "approve"
	ReviewDecisionReject  = "reject"
)

// SubmitPaperRequest optionally annotates a submission for review.
type SubmitPaperRequest struct {
	Comments string `json:"comments"`
}

// ReviewPaperRequest captures an approve/reject decision at the current
// review gate.
type ReviewPaperRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

// TransitionPaperRequest annotates a single named transition (advance,
// send-to-committee, activate, lock, archive, resubmit).
type TransitionPaperRequest struct {
	Comments string `json:"comments"`
}

// TestPaperQuery mirrors supported listing filters.
type TestPaperQuery struct {
	AcademicYearID string
	Grade          string
	Subject        string
	States         []workflow.State
	CreatedBy      string
	Page           int
	PageSize       int
}
