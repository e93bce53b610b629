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

const referenceColumns = `id, tenant_id, title, description, grade, subject, file_path, file_name, content_type, size_bytes, uploaded_by, created_at, updated_at`

// ReferenceRepository persists the study material library.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs the repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Create inserts a material row.
func (r *ReferenceRepository) Create(ctx context.Context, material *models.ReferenceMaterial) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if material.CreatedAt.IsZero() {
		material.CreatedAt = now
	}
	material.UpdatedAt = now

	const query = `INSERT INTO reference_materials (id, tenant_id, title, description, grade, subject, file_path, file_name, content_type, size_bytes, uploaded_by, created_at, updated_at)
	VALUES (:id, :tenant_id, :title, :description, :grade, :subject, :file_path, :file_name, :content_type, :size_bytes, :uploaded_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create reference material: %w", err)
	}
	return nil
}

// FindByID loads a material by identifier.
func (r *ReferenceRepository) FindByID(ctx context.Context, id string) (*models.ReferenceMaterial, error) {
	const query = `SELECT ` + referenceColumns + ` FROM reference_materials WHERE id = $1 LIMIT 1`
	var material models.ReferenceMaterial
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reference material by id: %w", err)
	}
	return &material, nil
}

// List returns materials matching the filter with total count.
func (r *ReferenceRepository) List(ctx context.Context, filter models.ReferenceMaterialFilter) ([]models.ReferenceMaterial, int, error) {
	baseQuery := `FROM reference_materials WHERE tenant_id = $1`
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
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", referenceColumns, baseQuery, pageSize, offset)

	var materials []models.ReferenceMaterial
	if err := r.db.SelectContext(ctx, &materials, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reference materials: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reference materials: %w", err)
	}

	return materials, total, nil
}

// TotalSizeBytes sums the tenant's stored bytes for quota checks.
func (r *ReferenceRepository) TotalSizeBytes(ctx context.Context, tenantID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(size_bytes), 0) FROM reference_materials WHERE tenant_id = $1`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, tenantID); err != nil {
		return 0, fmt.Errorf("sum reference material size: %w", err)
	}
	return total, nil
}

// Delete removes a material row. The caller owns removing the stored file.
func (r *ReferenceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reference_materials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete reference material: %w", err)
	}
	return nil
}
