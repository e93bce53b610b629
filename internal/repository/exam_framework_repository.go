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

const frameworkColumns = `id, tenant_id, name, wing_id, academic_year_id, total_marks, duration_minutes, subjects, question_paper_sets, page_size, active, created_by, created_at, updated_at`

// ExamFrameworkRepository handles persistence for exam templates.
type ExamFrameworkRepository struct {
	db *sqlx.DB
}

// NewExamFrameworkRepository instantiates an exam framework repository.
func NewExamFrameworkRepository(db *sqlx.DB) *ExamFrameworkRepository {
	return &ExamFrameworkRepository{db: db}
}

// FindByID loads a framework by identifier.
func (r *ExamFrameworkRepository) FindByID(ctx context.Context, id string) (*models.ExamFramework, error) {
	const query = `SELECT ` + frameworkColumns + ` FROM exam_frameworks WHERE id = $1 LIMIT 1`
	var framework models.ExamFramework
	if err := r.db.GetContext(ctx, &framework, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam framework by id: %w", err)
	}
	return &framework, nil
}

// List returns frameworks matching the filter with total count.
func (r *ExamFrameworkRepository) List(ctx context.Context, filter models.ExamFrameworkFilter) ([]models.ExamFramework, int, error) {
	baseQuery := `FROM exam_frameworks WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	var conditions []string

	if filter.WingID != "" {
		conditions = append(conditions, fmt.Sprintf("wing_id = $%d", len(args)+1))
		args = append(args, filter.WingID)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", frameworkColumns, baseQuery, pageSize, offset)

	var frameworks []models.ExamFramework
	if err := r.db.SelectContext(ctx, &frameworks, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list exam frameworks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count exam frameworks: %w", err)
	}

	return frameworks, total, nil
}

// Create inserts a new framework row.
func (r *ExamFrameworkRepository) Create(ctx context.Context, framework *models.ExamFramework) error {
	if framework.ID == "" {
		framework.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if framework.CreatedAt.IsZero() {
		framework.CreatedAt = now
	}
	framework.UpdatedAt = now

	const query = `INSERT INTO exam_frameworks (id, tenant_id, name, wing_id, academic_year_id, total_marks, duration_minutes, subjects, question_paper_sets, page_size, active, created_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :wing_id, :academic_year_id, :total_marks, :duration_minutes, :subjects, :question_paper_sets, :page_size, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, framework); err != nil {
		return fmt.Errorf("create exam framework: %w", err)
	}
	return nil
}

// Update modifies mutable framework fields.
func (r *ExamFrameworkRepository) Update(ctx context.Context, framework *models.ExamFramework) error {
	framework.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_frameworks SET name = :name, total_marks = :total_marks, duration_minutes = :duration_minutes, subjects = :subjects, question_paper_sets = :question_paper_sets, page_size = :page_size, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, framework); err != nil {
		return fmt.Errorf("update exam framework: %w", err)
	}
	return nil
}
