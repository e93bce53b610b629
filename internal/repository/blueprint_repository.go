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

const blueprintColumns = `id, tenant_id, name, grade, subject, academic_year_id, total_marks, sections, is_approved, approved_by, approved_at, is_locked, locked_by, locked_at, created_by, created_at, updated_at`

// BlueprintRepository handles persistence for paper blueprints and the
// per-tenant blueprint policies.
type BlueprintRepository struct {
	db *sqlx.DB
}

// NewBlueprintRepository instantiates a blueprint repository.
func NewBlueprintRepository(db *sqlx.DB) *BlueprintRepository {
	return &BlueprintRepository{db: db}
}

// FindByID loads a blueprint by identifier.
func (r *BlueprintRepository) FindByID(ctx context.Context, id string) (*models.Blueprint, error) {
	const query = `SELECT ` + blueprintColumns + ` FROM blueprints WHERE id = $1 LIMIT 1`
	var blueprint models.Blueprint
	if err := r.db.GetContext(ctx, &blueprint, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find blueprint by id: %w", err)
	}
	return &blueprint, nil
}

// List returns blueprints matching the filter with total count.
func (r *BlueprintRepository) List(ctx context.Context, filter models.BlueprintFilter) ([]models.Blueprint, int, error) {
	baseQuery := `FROM blueprints WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}
	var conditions []string

	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Approved != nil {
		conditions = append(conditions, fmt.Sprintf("is_approved = $%d", len(args)+1))
		args = append(args, *filter.Approved)
	}
	if filter.Locked != nil {
		conditions = append(conditions, fmt.Sprintf("is_locked = $%d", len(args)+1))
		args = append(args, *filter.Locked)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", blueprintColumns, baseQuery, pageSize, offset)

	var blueprints []models.Blueprint
	if err := r.db.SelectContext(ctx, &blueprints, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list blueprints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count blueprints: %w", err)
	}

	return blueprints, total, nil
}

// Create inserts a new blueprint row.
func (r *BlueprintRepository) Create(ctx context.Context, blueprint *models.Blueprint) error {
	if blueprint.ID == "" {
		blueprint.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if blueprint.CreatedAt.IsZero() {
		blueprint.CreatedAt = now
	}
	blueprint.UpdatedAt = now

	const query = `INSERT INTO blueprints (id, tenant_id, name, grade, subject, academic_year_id, total_marks, sections, is_approved, approved_by, approved_at, is_locked, locked_by, locked_at, created_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :grade, :subject, :academic_year_id, :total_marks, :sections, :is_approved, :approved_by, :approved_at, :is_locked, :locked_by, :locked_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, blueprint); err != nil {
		return fmt.Errorf("create blueprint: %w", err)
	}
	return nil
}

// Update modifies mutable blueprint fields. Callers enforce the lock policy
// before reaching here.
func (r *BlueprintRepository) Update(ctx context.Context, blueprint *models.Blueprint) error {
	blueprint.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blueprints SET name = :name, grade = :grade, subject = :subject, total_marks = :total_marks, sections = :sections, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, blueprint); err != nil {
		return fmt.Errorf("update blueprint: %w", err)
	}
	return nil
}

// SetApproved stamps the approval flag. Approving an already approved
// blueprint is a no-op at the SQL level.
func (r *BlueprintRepository) SetApproved(ctx context.Context, id, approverID string) error {
	now := time.Now().UTC()
	const query = `UPDATE blueprints SET is_approved = TRUE, approved_by = $2, approved_at = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, approverID, now); err != nil {
		return fmt.Errorf("approve blueprint: %w", err)
	}
	return nil
}

// SetLocked freezes or unfreezes the blueprint structure.
func (r *BlueprintRepository) SetLocked(ctx context.Context, id string, locked bool, actorID string) error {
	now := time.Now().UTC()
	if locked {
		const query = `UPDATE blueprints SET is_locked = TRUE, locked_by = $2, locked_at = $3, updated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, actorID, now); err != nil {
			return fmt.Errorf("lock blueprint: %w", err)
		}
		return nil
	}
	const query = `UPDATE blueprints SET is_locked = FALSE, locked_by = NULL, locked_at = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("unlock blueprint: %w", err)
	}
	return nil
}

// CountPapersUsing reports how many papers reference the blueprint.
func (r *BlueprintRepository) CountPapersUsing(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM test_papers WHERE blueprint_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count blueprint papers: %w", err)
	}
	return count, nil
}

// GetPolicy loads the tenant's blueprint policy for one academic year.
func (r *BlueprintRepository) GetPolicy(ctx context.Context, tenantID, academicYearID string) (*models.BlueprintPolicy, error) {
	const query = `SELECT tenant_id, academic_year_id, blueprint_mandatory, allow_edit_after_lock, updated_by, updated_at FROM blueprint_policies WHERE tenant_id = $1 AND academic_year_id = $2 LIMIT 1`
	var policy models.BlueprintPolicy
	if err := r.db.GetContext(ctx, &policy, query, tenantID, academicYearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get blueprint policy: %w", err)
	}
	return &policy, nil
}

// UpsertPolicy writes the tenant's blueprint policy for one academic year.
func (r *BlueprintRepository) UpsertPolicy(ctx context.Context, policy *models.BlueprintPolicy) error {
	policy.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO blueprint_policies (tenant_id, academic_year_id, blueprint_mandatory, allow_edit_after_lock, updated_by, updated_at)
	VALUES (:tenant_id, :academic_year_id, :blueprint_mandatory, :allow_edit_after_lock, :updated_by, :updated_at)
	ON CONFLICT (tenant_id, academic_year_id) DO UPDATE SET blueprint_mandatory = :blueprint_mandatory, allow_edit_after_lock = :allow_edit_after_lock, updated_by = :updated_by, updated_at = :updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert blueprint policy: %w", err)
	}
	return nil
}
