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

const academicYearColumns = `id, tenant_id, name, start_date, end_date, is_active, is_locked, locked_by, locked_at, created_at, updated_at`

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns a tenant's years matching the filter with total count.
func (r *AcademicYearRepository) List(ctx context.Context, tenantID string, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	baseQuery := `FROM academic_years WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	var conditions []string

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Locked != nil {
		conditions = append(conditions, fmt.Sprintf("is_locked = $%d", len(args)+1))
		args = append(args, *filter.Locked)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d", academicYearColumns, baseQuery, pageSize, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}

	return years, total, nil
}

// FindByID loads a year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	const query = `SELECT ` + academicYearColumns + ` FROM academic_years WHERE id = $1 LIMIT 1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find academic year by id: %w", err)
	}
	return &year, nil
}

// FindActive returns the tenant's currently active year.
func (r *AcademicYearRepository) FindActive(ctx context.Context, tenantID string) (*models.AcademicYear, error) {
	const query = `SELECT ` + academicYearColumns + ` FROM academic_years WHERE tenant_id = $1 AND is_active = TRUE LIMIT 1`
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active academic year: %w", err)
	}
	return &year, nil
}

// Create inserts a new year record.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, tenant_id, name, start_date, end_date, is_active, is_locked, locked_by, locked_at, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :start_date, :end_date, :is_active, :is_locked, :locked_by, :locked_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies an unlocked year's mutable fields.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// SetActive marks one year active and deactivates the tenant's others in a
// single transaction.
func (r *AcademicYearRepository) SetActive(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE tenant_id = $2 AND is_active = TRUE AND id <> $3`, now, tenantID, id); err != nil {
		return fmt.Errorf("deactivate other years: %w", err)
	}

	var result sql.Result
	if result, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_active = TRUE, updated_at = $2 WHERE id = $1 AND tenant_id = $3`, id, now, tenantID); err != nil {
		return fmt.Errorf("activate year: %w", err)
	}
	var rows int64
	if rows, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("check activate rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}

// SetLocked freezes or unfreezes a year. Locking stamps the actor.
func (r *AcademicYearRepository) SetLocked(ctx context.Context, id string, locked bool, actorID string) error {
	now := time.Now().UTC()
	if locked {
		const query = `UPDATE academic_years SET is_locked = TRUE, locked_by = $2, locked_at = $3, updated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, actorID, now); err != nil {
			return fmt.Errorf("lock academic year: %w", err)
		}
		return nil
	}
	const query = `UPDATE academic_years SET is_locked = FALSE, locked_by = NULL, locked_at = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("unlock academic year: %w", err)
	}
	return nil
}
