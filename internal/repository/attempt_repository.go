package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

const attemptColumns = `id, tenant_id, test_paper_id, student_id, status, answers, question_status, current_question_index, time_remaining_secs, score, max_score, started_at, submitted_at, overridden_by, updated_at`

// AttemptRepository persists student attempts.
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository constructs the repository.
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new attempt row.
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.Status == "" {
		attempt.Status = models.AttemptStatusInProgress
	}
	now := time.Now().UTC()
	if attempt.StartedAt.IsZero() {
		attempt.StartedAt = now
	}
	attempt.UpdatedAt = now

	const query = `INSERT INTO attempts (id, tenant_id, test_paper_id, student_id, status, answers, question_status, current_question_index, time_remaining_secs, score, max_score, started_at, submitted_at, overridden_by, updated_at)
	VALUES (:id, :tenant_id, :test_paper_id, :student_id, :status, :answers, :question_status, :current_question_index, :time_remaining_secs, :score, :max_score, :started_at, :submitted_at, :overridden_by, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// FindByID loads an attempt by identifier.
func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	const query = `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1 LIMIT 1`
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attempt by id: %w", err)
	}
	return &attempt, nil
}

// FindByPaperAndStudent returns the student's attempt on one paper. Each
// student gets at most one attempt per paper.
func (r *AttemptRepository) FindByPaperAndStudent(ctx context.Context, paperID, studentID string) (*models.Attempt, error) {
	const query = `SELECT ` + attemptColumns + ` FROM attempts WHERE test_paper_id = $1 AND student_id = $2 LIMIT 1`
	var attempt models.Attempt
	if err := r.db.GetContext(ctx, &attempt, query, paperID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attempt by paper and student: %w", err)
	}
	return &attempt, nil
}

// List returns attempts matching the filter.
func (r *AttemptRepository) List(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error) {
	baseQuery := `SELECT ` + attemptColumns + ` FROM attempts WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}

	if filter.TestPaperID != "" {
		baseQuery += fmt.Sprintf(" AND test_paper_id = $%d", len(args)+1)
		args = append(args, filter.TestPaperID)
	}
	if filter.StudentID != "" {
		baseQuery += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		baseQuery += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ","))
	}
	baseQuery += " ORDER BY started_at DESC"

	var attempts []models.Attempt
	if err := r.db.SelectContext(ctx, &attempts, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

// SaveProgress persists the in-flight session snapshot. Only running
// attempts accept progress writes.
func (r *AttemptRepository) SaveProgress(ctx context.Context, attempt *models.Attempt) error {
	attempt.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE attempts SET answers = :answers, question_status = :question_status, current_question_index = :current_question_index, time_remaining_secs = :time_remaining_secs, updated_at = :updated_at WHERE id = :id AND status = '%s'`, models.AttemptStatusInProgress)
	result, err := r.db.NamedExecContext(ctx, query, attempt)
	if err != nil {
		return fmt.Errorf("save attempt progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attempt progress rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Submit finalizes an attempt with its score. The in-progress condition
// makes double submits lose.
func (r *AttemptRepository) Submit(ctx context.Context, attempt *models.Attempt) error {
	now := time.Now().UTC()
	attempt.UpdatedAt = now
	if attempt.SubmittedAt == nil {
		attempt.SubmittedAt = &now
	}
	query := fmt.Sprintf(`UPDATE attempts SET status = :status, answers = :answers, question_status = :question_status, score = :score, submitted_at = :submitted_at, updated_at = :updated_at WHERE id = :id AND status = '%s'`, models.AttemptStatusInProgress)
	result, err := r.db.NamedExecContext(ctx, query, attempt)
	if err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attempt submit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Override records a manual marking decision, replacing status and score.
func (r *AttemptRepository) Override(ctx context.Context, id string, status models.AttemptStatus, score *float64, markerID string) error {
	const query = `UPDATE attempts SET score = $2, status = $3, overridden_by = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, score, status, markerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("override attempt: %w", err)
	}
	return nil
}

// ListScoreRows returns the score sheet for a paper, one row per attempt,
// joined with the student directory and ordered by student name.
func (r *AttemptRepository) ListScoreRows(ctx context.Context, paperID string) ([]models.ScoreRow, error) {
	const query = `SELECT a.student_id, u.user_code, u.full_name, a.status, a.score, a.max_score, a.submitted_at
		FROM attempts a
		JOIN users u ON u.id = a.student_id
		WHERE a.test_paper_id = $1
		ORDER BY u.full_name ASC`
	rows := []models.ScoreRow{}
	if err := r.db.SelectContext(ctx, &rows, query, paperID); err != nil {
		return nil, fmt.Errorf("list score rows: %w", err)
	}
	return rows, nil
}
