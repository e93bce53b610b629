package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

// DashboardRepository exposes read-optimised aggregates over the paper
// pipeline for the principal and HOD views.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository instantiates the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountByState groups a tenant's papers per workflow state. The academic
// year narrows the slice when provided.
func (r *DashboardRepository) CountByState(ctx context.Context, tenantID, academicYearID string) ([]models.StateCount, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT workflow_state, COUNT(*) AS count FROM test_papers WHERE tenant_id = $1`)
	args := []interface{}{tenantID}
	if academicYearID != "" {
		args = append(args, academicYearID)
		builder.WriteString(fmt.Sprintf(" AND academic_year_id = $%d", len(args)))
	}
	builder.WriteString(" GROUP BY workflow_state")

	var counts []models.StateCount
	if err := r.db.SelectContext(ctx, &counts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("count papers by state: %w", err)
	}
	return counts, nil
}

// ListByStateAndSubject returns papers sitting in one state, optionally
// narrowed to a subject, oldest first so review queues surface the most
// stale work.
func (r *DashboardRepository) ListByStateAndSubject(ctx context.Context, tenantID string, state workflow.State, subject string, limit int) ([]models.TestPaper, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var builder strings.Builder
	builder.WriteString(`SELECT ` + testPaperColumns + ` FROM test_papers WHERE tenant_id = $1 AND workflow_state = $2`)
	args := []interface{}{tenantID, state}
	if subject != "" {
		args = append(args, subject)
		builder.WriteString(fmt.Sprintf(" AND subject = $%d", len(args)))
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY updated_at ASC LIMIT %d", limit))

	var papers []models.TestPaper
	if err := r.db.SelectContext(ctx, &papers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list papers by state: %w", err)
	}
	return papers, nil
}

// CountByStateAndSubject reports how many of a subject's papers sit in one
// state.
func (r *DashboardRepository) CountByStateAndSubject(ctx context.Context, tenantID string, state workflow.State, subject string) (int, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT COUNT(*) FROM test_papers WHERE tenant_id = $1 AND workflow_state = $2`)
	args := []interface{}{tenantID, state}
	if subject != "" {
		args = append(args, subject)
		builder.WriteString(fmt.Sprintf(" AND subject = $%d", len(args)))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count papers by state and subject: %w", err)
	}
	return count, nil
}

// CountStudents reports the tenant's active student cohort size.
func (r *DashboardRepository) CountStudents(ctx context.Context, tenantID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role = 'student' AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// CountActivatedSince counts papers that went active inside a window, read
// off the ledger so re-activations after unlock are counted too.
func (r *DashboardRepository) CountActivatedSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_audit_logs WHERE tenant_id = $1 AND to_state = 'active' AND created_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, since); err != nil {
		return 0, fmt.Errorf("count activated papers: %w", err)
	}
	return count, nil
}

// AverageScorePercent returns the mean scored-attempt percentage across the
// tenant, or nil when nothing has been scored yet.
func (r *DashboardRepository) AverageScorePercent(ctx context.Context, tenantID string) (*float64, error) {
	const query = `SELECT AVG(score / NULLIF(max_score, 0) * 100) FROM attempts WHERE tenant_id = $1 AND score IS NOT NULL`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, tenantID); err != nil {
		return nil, fmt.Errorf("average attempt score: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

// CountAtRiskStudents counts students whose mean scored percentage sits below
// the threshold.
func (r *DashboardRepository) CountAtRiskStudents(ctx context.Context, tenantID string, thresholdPercent float64) (int, error) {
	const query = `SELECT COUNT(*) FROM (
		SELECT student_id FROM attempts
		WHERE tenant_id = $1 AND score IS NOT NULL
		GROUP BY student_id
		HAVING AVG(score / NULLIF(max_score, 0) * 100) < $2
	) at_risk`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, thresholdPercent); err != nil {
		return 0, fmt.Errorf("count at-risk students: %w", err)
	}
	return count, nil
}

// Recent scores within two points of the overall mean read as steady.
const gradeTrendEpsilonPct = 2.0

type gradePerformanceRow struct {
	Grade          string          `db:"grade"`
	AverageScore   float64         `db:"average_score"`
	PassPercentage float64         `db:"pass_percentage"`
	TotalAttempts  int             `db:"total_attempts"`
	RecentAverage  sql.NullFloat64 `db:"recent_average"`
}

// GradePerformance aggregates scored attempts per grade: overall mean, pass
// rate against the threshold, and a trend read off the recent window.
func (r *DashboardRepository) GradePerformance(ctx context.Context, tenantID string, passThresholdPercent float64, recentSince time.Time) ([]models.GradePerformance, error) {
	const query = `SELECT p.grade,
		COALESCE(AVG(a.score / NULLIF(a.max_score, 0) * 100), 0) AS average_score,
		COALESCE(100.0 * COUNT(*) FILTER (WHERE a.score / NULLIF(a.max_score, 0) * 100 >= $2) / COUNT(*), 0) AS pass_percentage,
		COUNT(*) AS total_attempts,
		AVG(a.score / NULLIF(a.max_score, 0) * 100) FILTER (WHERE a.submitted_at >= $3) AS recent_average
	FROM attempts a
	JOIN test_papers p ON p.id = a.test_paper_id
	WHERE a.tenant_id = $1 AND a.score IS NOT NULL
	GROUP BY p.grade
	ORDER BY p.grade`

	var rows []gradePerformanceRow
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, passThresholdPercent, recentSince); err != nil {
		return nil, fmt.Errorf("aggregate grade performance: %w", err)
	}
	out := make([]models.GradePerformance, 0, len(rows))
	for _, row := range rows {
		entry := models.GradePerformance{
			Grade:          row.Grade,
			AverageScore:   row.AverageScore,
			PassPercentage: row.PassPercentage,
			TotalAttempts:  row.TotalAttempts,
			Trend:          models.TrendSteady,
		}
		if row.RecentAverage.Valid {
			switch diff := row.RecentAverage.Float64 - row.AverageScore; {
			case diff > gradeTrendEpsilonPct:
				entry.Trend = models.TrendUp
			case diff < -gradeTrendEpsilonPct:
				entry.Trend = models.TrendDown
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListAtRiskStudents returns the students whose mean scored percentage sits
// below the threshold, worst first.
func (r *DashboardRepository) ListAtRiskStudents(ctx context.Context, tenantID string, thresholdPercent float64, limit int) ([]models.AtRiskStudent, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	query := fmt.Sprintf(`SELECT u.id AS student_id, u.full_name AS student_name, COALESCE(u.grade, '') AS grade,
		AVG(a.score / NULLIF(a.max_score, 0) * 100) AS average_percentage,
		COUNT(*) AS attempt_count
	FROM attempts a
	JOIN users u ON u.id = a.student_id
	WHERE a.tenant_id = $1 AND a.score IS NOT NULL
	GROUP BY u.id, u.full_name, u.grade
	HAVING AVG(a.score / NULLIF(a.max_score, 0) * 100) < $2
	ORDER BY average_percentage ASC
	LIMIT %d`, limit)

	var students []models.AtRiskStudent
	if err := r.db.SelectContext(ctx, &students, query, tenantID, thresholdPercent); err != nil {
		return nil, fmt.Errorf("list at-risk students: %w", err)
	}
	return students, nil
}

// CountQuestions sizes the question bank per status, optionally narrowed to a
// subject.
func (r *DashboardRepository) CountQuestions(ctx context.Context, tenantID, subject string, status models.QuestionStatus) (int, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT COUNT(*) FROM questions WHERE tenant_id = $1 AND deleted = FALSE AND status = $2`)
	args := []interface{}{tenantID, status}
	if subject != "" {
		args = append(args, subject)
		builder.WriteString(fmt.Sprintf(" AND subject = $%d", len(args)))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, builder.String(), args...); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}
