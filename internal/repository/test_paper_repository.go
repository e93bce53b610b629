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
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

const testPaperColumns = `id, tenant_id, academic_year_id, exam_framework_id, blueprint_id, title, grade, subject, total_marks, duration_minutes, question_ids, workflow_state, is_confidential, printing_ready, results_revealed, scheduled_date,
	submitted_by, submitted_at, hod_approved_by, hod_approved_at, hod_comment, principal_approved_by, principal_approved_at, principal_comment, sent_to_committee_at, activated_by, activated_at, locked_by, locked_at, archived_by, archived_at,
	generated_paper_path, results_revealed_at, created_by, created_at, updated_at`

// TestPaperRepository persists papers and applies workflow transitions.
type TestPaperRepository struct {
	db *sqlx.DB
}

// NewTestPaperRepository constructs the repository.
func NewTestPaperRepository(db *sqlx.DB) *TestPaperRepository {
	return &TestPaperRepository{db: db}
}

// Create inserts a new paper in draft.
func (r *TestPaperRepository) Create(ctx context.Context, paper *models.TestPaper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	if paper.WorkflowState == "" {
		paper.WorkflowState = workflow.StateDraft
	}
	now := time.Now().UTC()
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = now
	}
	paper.UpdatedAt = now

	const query = `INSERT INTO test_papers (id, tenant_id, academic_year_id, exam_framework_id, blueprint_id, title, grade, subject, total_marks, duration_minutes, question_ids, workflow_state, is_confidential, printing_ready, results_revealed, scheduled_date, created_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :academic_year_id, :exam_framework_id, :blueprint_id, :title, :grade, :subject, :total_marks, :duration_minutes, :question_ids, :workflow_state, :is_confidential, :printing_ready, :results_revealed, :scheduled_date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("create test paper: %w", err)
	}
	return nil
}

// FindByID loads a paper by identifier.
func (r *TestPaperRepository) FindByID(ctx context.Context, id string) (*models.TestPaper, error) {
	const query = `SELECT ` + testPaperColumns + ` FROM test_papers WHERE id = $1 LIMIT 1`
	var paper models.TestPaper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find test paper by id: %w", err)
	}
	return &paper, nil
}

// List returns papers matching the filter with total count.
func (r *TestPaperRepository) List(ctx context.Context, filter models.TestPaperFilter) ([]models.TestPaper, int, error) {
	baseQuery := `FROM test_papers WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	var conditions []string

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("workflow_state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", testPaperColumns, baseQuery, pageSize, offset)

	var papers []models.TestPaper
	if err := r.db.SelectContext(ctx, &papers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list test papers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count test papers: %w", err)
	}

	return papers, total, nil
}

// UpdateDraft rewrites the editable columns of a paper. The draft state
// condition rides along as a CAS so edits lose against concurrent
// submissions.
func (r *TestPaperRepository) UpdateDraft(ctx context.Context, paper *models.TestPaper) error {
	paper.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE test_papers SET title = :title, grade = :grade, subject = :subject, total_marks = :total_marks, duration_minutes = :duration_minutes, exam_framework_id = :exam_framework_id, blueprint_id = :blueprint_id, question_ids = :question_ids, is_confidential = :is_confidential, scheduled_date = :scheduled_date, updated_at = :updated_at WHERE id = :id AND workflow_state = '%s'`, workflow.StateDraft)
	result, err := r.db.NamedExecContext(ctx, query, paper)
	if err != nil {
		return fmt.Errorf("update test paper: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check test paper update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionParams carries one workflow edge application.
type TransitionParams struct {
	PaperID   string
	TenantID  string
	FromState workflow.State
	ToState   workflow.State
	Action    string
	ActorID   string
	ActorRole string
	Comment   *string
}

// ApplyTransition moves a paper along one workflow edge and writes the
// matching ledger row inside a single transaction. The expected from-state
// acts as a compare-and-swap: when another actor won the race, zero rows
// match and sql.ErrNoRows comes back with nothing written.
func (r *TestPaperRepository) ApplyTransition(ctx context.Context, params TransitionParams) (*models.ExamAuditLog, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	setParts := []string{"workflow_state = :to_state", "updated_at = :now"}
	namedArgs := map[string]interface{}{
		"id":         params.PaperID,
		"from_state": params.FromState,
		"to_state":   params.ToState,
		"now":        now,
		"actor":      params.ActorID,
		"comment":    params.Comment,
	}

	switch params.ToState {
	case workflow.StatePendingHOD:
		setParts = append(setParts, "submitted_by = :actor", "submitted_at = :now")
	case workflow.StateHODApproved:
		setParts = append(setParts, "hod_approved_by = :actor", "hod_approved_at = :now", "hod_comment = :comment")
	case workflow.StateHODRejected:
		setParts = append(setParts, "hod_comment = :comment")
	case workflow.StatePrincipalApproved:
		setParts = append(setParts, "principal_approved_by = :actor", "principal_approved_at = :now", "principal_comment = :comment")
	case workflow.StatePrincipalRejected:
		setParts = append(setParts, "principal_comment = :comment")
	case workflow.StateSentToCommittee:
		setParts = append(setParts, "sent_to_committee_at = :now")
	case workflow.StateActive:
		setParts = append(setParts, "activated_by = :actor", "activated_at = :now")
	case workflow.StateLocked:
		setParts = append(setParts, "locked_by = :actor", "locked_at = :now")
	case workflow.StateArchived:
		setParts = append(setParts, "archived_by = :actor", "archived_at = :now")
	case workflow.StateDraft:
		// Resubmission resets the review trail; the ledger keeps the history.
		setParts = append(setParts,
			"submitted_by = NULL", "submitted_at = NULL",
			"hod_approved_by = NULL", "hod_approved_at = NULL", "hod_comment = NULL",
			"principal_approved_by = NULL", "principal_approved_at = NULL", "principal_comment = NULL",
		)
	}

	updateQuery := fmt.Sprintf("UPDATE test_papers SET %s WHERE id = :id AND workflow_state = :from_state", strings.Join(setParts, ", "))
	result, err := tx.NamedExecContext(ctx, updateQuery, namedArgs)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return nil, err
	}

	entry := &models.ExamAuditLog{
		ID:         uuid.NewString(),
		TenantID:   params.TenantID,
		EntityType: models.EntityTypeTestPaper,
		EntityID:   params.PaperID,
		Action:     params.Action,
		FromState:  params.FromState,
		ToState:    params.ToState,
		ActorID:    params.ActorID,
		ActorRole:  params.ActorRole,
		Comments:   params.Comment,
		CreatedAt:  now,
	}
	const auditQuery = `INSERT INTO exam_audit_logs (id, tenant_id, entity_type, entity_id, action, from_state, to_state, actor_id, actor_role, comments, created_at)
	VALUES (:id, :tenant_id, :entity_type, :entity_id, :action, :from_state, :to_state, :actor_id, :actor_role, :comments, :created_at)`
	if _, err = tx.NamedExecContext(ctx, auditQuery, entry); err != nil {
		return nil, fmt.Errorf("write transition ledger: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}
	return entry, nil
}

// SetGeneratedPaperPath stores the rendered PDF location and flips the
// printing flag.
func (r *TestPaperRepository) SetGeneratedPaperPath(ctx context.Context, id, path string) error {
	const query = `UPDATE test_papers SET generated_paper_path = $2, printing_ready = TRUE, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("set generated paper path: %w", err)
	}
	return nil
}

// SetResultsRevealed publishes results for a locked paper.
func (r *TestPaperRepository) SetResultsRevealed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE test_papers SET results_revealed = TRUE, results_revealed_at = $2, updated_at = $2 WHERE id = $1 AND workflow_state = '%s'`, workflow.StateLocked)
	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("reveal results: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reveal results rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListScheduledBetween returns papers scheduled inside a window, used by the
// dashboards.
func (r *TestPaperRepository) ListScheduledBetween(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.TestPaper, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM test_papers WHERE tenant_id = $1 AND scheduled_date >= $2 AND scheduled_date < $3 ORDER BY scheduled_date ASC LIMIT %d`, testPaperColumns, limit)
	var papers []models.TestPaper
	if err := r.db.SelectContext(ctx, &papers, query, tenantID, from, to); err != nil {
		return nil, fmt.Errorf("list scheduled papers: %w", err)
	}
	return papers, nil
}
