package models

import (
	"time"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

// StateCount pairs a workflow state with the number of papers sitting in it.
type StateCount struct {
	State workflow.State `db:"workflow_state" json:"state"`
	Count int            `db:"count" json:"count"`
}

// PrincipalSnapshot aggregates the school for the principal view: cohort
// size, the approval pipeline and outcome signals.
type PrincipalSnapshot struct {
	TenantID          string       `json:"tenantId"`
	AcademicYearID    string       `json:"academicYearId,omitempty"`
	Students          int          `json:"students"`
	ActivePapers      int          `json:"activePapers"`
	TestsThisMonth    int          `json:"testsThisMonth"`
	AverageScore      *float64     `json:"averageScore,omitempty"`
	AtRiskStudents    int          `json:"atRiskStudents"`
	PendingPrincipal  int          `json:"pendingPrincipal"`
	PendingHOD        int          `json:"pendingHod"`
	LockedPapers      int          `json:"lockedPapers"`
	RejectedPapers    int          `json:"rejectedPapers"`
	PapersByState     []StateCount `json:"papersByState"`
	UpcomingExams     []TestPaper  `json:"upcomingExams"`
	RecentTransitions int          `json:"recentTransitions"`
	GeneratedAt       time.Time    `json:"generatedAt"`
}

// HODSnapshot aggregates one department's review load: the papers awaiting
// the HOD plus the question bank's review queue and size.
type HODSnapshot struct {
	TenantID               string       `json:"tenantId"`
	Subject                string       `json:"subject,omitempty"`
	AwaitingMe             []TestPaper  `json:"awaitingMe"`
	PendingPapers          int          `json:"pendingPapers"`
	DraftPapers            int          `json:"draftPapers"`
	RejectedBack           int          `json:"rejectedBack"`
	PendingQuestionReviews int          `json:"pendingQuestionReviews"`
	QuestionBankSize       int          `json:"questionBankSize"`
	PapersByState          []StateCount `json:"papersByState"`
	GeneratedAt            time.Time    `json:"generatedAt"`
}

// GradePerformance summarises scored attempts for one grade. Trend compares
// the recent window against the overall mean.
type GradePerformance struct {
	Grade          string  `db:"grade" json:"grade"`
	AverageScore   float64 `db:"average_score" json:"averageScore"`
	PassPercentage float64 `db:"pass_percentage" json:"passPercentage"`
	TotalAttempts  int     `db:"total_attempts" json:"totalAttempts"`
	Trend          string  `json:"trend"`
}

// Grade trend labels.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendSteady = "steady"
)

// AtRiskStudent is one student whose mean scored percentage sits below the
// at-risk threshold, worst first.
type AtRiskStudent struct {
	StudentID         string  `db:"student_id" json:"studentId"`
	StudentName       string  `db:"student_name" json:"studentName"`
	Grade             string  `db:"grade" json:"grade"`
	AveragePercentage float64 `db:"average_percentage" json:"averagePercentage"`
	AttemptCount      int     `db:"attempt_count" json:"attemptCount"`
}

// SystemMetrics reports process-level counters scraped from the
// instrumentation registry, exposed for the admin dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	WorkflowTransitions      uint64    `json:"workflowTransitions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
