package models

import "time"

// AttemptStatus captures the lifecycle of a student's run through a paper.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusAbsent     AttemptStatus = "absent"
	AttemptStatusMarked     AttemptStatus = "marked"
)

// Per-question visit states, keyed by question id in the status map.
const (
	QuestionStateNotVisited   = "not_visited"
	QuestionStateAnswered     = "answered"
	QuestionStateMarkedReview = "marked_review"
	QuestionStateUnanswered   = "unanswered"
)

// Attempt is one student's run through a test paper. Answers and
// QuestionStatus are JSONB maps keyed by question id; they plus the current
// index and remaining seconds form the resumable session snapshot.
type Attempt struct {
	ID                   string        `db:"id" json:"id"`
	TenantID             string        `db:"tenant_id" json:"tenantId"`
	TestPaperID          string        `db:"test_paper_id" json:"testPaperId"`
	StudentID            string        `db:"student_id" json:"studentId"`
	Status               AttemptStatus `db:"status" json:"status"`
	Answers              []byte        `db:"answers" json:"answers,omitempty"`
	QuestionStatus       []byte        `db:"question_status" json:"questionStatus,omitempty"`
	CurrentQuestionIndex int           `db:"current_question_index" json:"currentQuestionIndex"`
	TimeRemainingSecs    int           `db:"time_remaining_secs" json:"timeRemainingSecs"`
	Score                *float64      `db:"score" json:"score,omitempty"`
	MaxScore             float64       `db:"max_score" json:"maxScore"`
	StartedAt            time.Time     `db:"started_at" json:"startedAt"`
	SubmittedAt          *time.Time    `db:"submitted_at" json:"submittedAt,omitempty"`
	OverriddenBy         *string       `db:"overridden_by" json:"overriddenBy,omitempty"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updatedAt"`
}

// AttemptFilter constrains attempt listing queries.
type AttemptFilter struct {
	TenantID    string
	TestPaperID string
	StudentID   string
	Status      []AttemptStatus
}

// ScoreRow is one line of a paper's score sheet, joined with the student's
// directory entry so exports carry names instead of ids.
type ScoreRow struct {
	StudentID   string        `db:"student_id" json:"studentId"`
	UserCode    string        `db:"user_code" json:"userCode"`
	FullName    string        `db:"full_name" json:"fullName"`
	Status      AttemptStatus `db:"status" json:"status"`
	Score       *float64      `db:"score" json:"score,omitempty"`
	MaxScore    float64       `db:"max_score" json:"maxScore"`
	SubmittedAt *time.Time    `db:"submitted_at" json:"submittedAt,omitempty"`
}
