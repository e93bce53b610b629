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

const tenantColumns = `id, name, code, address, phone, principal_name, principal_email, principal_phone, active, created_at, updated_at`

// TenantRepository handles persistence for schools, their wings and storage
// configuration.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository instantiates a tenant repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// FindByID loads a tenant by identifier.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	const query = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1 LIMIT 1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return &tenant, nil
}

// FindByCode loads a tenant by its school code. Codes are matched
// case-insensitively.
func (r *TenantRepository) FindByCode(ctx context.Context, code string) (*models.Tenant, error) {
	const query = `SELECT ` + tenantColumns + ` FROM tenants WHERE LOWER(code) = LOWER($1) LIMIT 1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tenant by code: %w", err)
	}
	return &tenant, nil
}

// ExistsByCode checks school code uniqueness.
func (r *TenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM tenants WHERE LOWER(code) = LOWER($1) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check tenant code uniqueness: %w", err)
	}
	return true, nil
}

// List returns tenants matching the filter with total count.
func (r *TenantRepository) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	baseQuery := `FROM tenants WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", tenantColumns, baseQuery, pageSize, offset)

	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	return tenants, total, nil
}

// Create inserts a new tenant record.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	const query = `INSERT INTO tenants (id, name, code, address, phone, principal_name, principal_email, principal_phone, active, created_at, updated_at)
	VALUES (:id, :name, :code, :address, :phone, :principal_name, :principal_email, :principal_phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// Update modifies mutable tenant fields. The school code is immutable.
func (r *TenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tenants SET name = :name, address = :address, phone = :phone, principal_name = :principal_name, principal_email = :principal_email, principal_phone = :principal_phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

// ListWings returns a tenant's wings in sort order.
func (r *TenantRepository) ListWings(ctx context.Context, tenantID string) ([]models.Wing, error) {
	const query = `SELECT id, tenant_id, name, grades, sort_order, active, created_at, updated_at FROM wings WHERE tenant_id = $1 ORDER BY sort_order ASC, name ASC`
	var wings []models.Wing
	if err := r.db.SelectContext(ctx, &wings, query, tenantID); err != nil {
		return nil, fmt.Errorf("list wings: %w", err)
	}
	return wings, nil
}

// FindWingByID loads one wing.
func (r *TenantRepository) FindWingByID(ctx context.Context, id string) (*models.Wing, error) {
	const query = `SELECT id, tenant_id, name, grades, sort_order, active, created_at, updated_at FROM wings WHERE id = $1 LIMIT 1`
	var wing models.Wing
	if err := r.db.GetContext(ctx, &wing, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find wing by id: %w", err)
	}
	return &wing, nil
}

// CreateWing inserts a wing row.
func (r *TenantRepository) CreateWing(ctx context.Context, wing *models.Wing) error {
	if wing.ID == "" {
		wing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if wing.CreatedAt.IsZero() {
		wing.CreatedAt = now
	}
	wing.UpdatedAt = now

	const query = `INSERT INTO wings (id, tenant_id, name, grades, sort_order, active, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :grades, :sort_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, wing); err != nil {
		return fmt.Errorf("create wing: %w", err)
	}
	return nil
}

// UpdateWing modifies a wing row.
func (r *TenantRepository) UpdateWing(ctx context.Context, wing *models.Wing) error {
	wing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE wings SET name = :name, grades = :grades, sort_order = :sort_order, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, wing); err != nil {
		return fmt.Errorf("update wing: %w", err)
	}
	return nil
}

// GetStorageConfig loads the tenant's storage configuration.
func (r *TenantRepository) GetStorageConfig(ctx context.Context, tenantID string) (*models.StorageConfig, error) {
	const query = `SELECT tenant_id, bucket_name, folder_path, max_storage_bytes, updated_by, updated_at FROM storage_configs WHERE tenant_id = $1 LIMIT 1`
	var cfg models.StorageConfig
	if err := r.db.GetContext(ctx, &cfg, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get storage config: %w", err)
	}
	return &cfg, nil
}

// UpsertStorageConfig writes the tenant's storage configuration.
func (r *TenantRepository) UpsertStorageConfig(ctx context.Context, cfg *models.StorageConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO storage_configs (tenant_id, bucket_name, folder_path, max_storage_bytes, updated_by, updated_at)
	VALUES (:tenant_id, :bucket_name, :folder_path, :max_storage_bytes, :updated_by, :updated_at)
	ON CONFLICT (tenant_id) DO UPDATE SET bucket_name = :bucket_name, folder_path = :folder_path, max_storage_bytes = :max_storage_bytes, updated_by = :updated_by, updated_at = :updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert storage config: %w", err)
	}
	return nil
}
