package models

import (
	"time"

	"github.com/lib/pq"
)

// Tenant is a school account, the top-level isolation boundary for all data.
// Tenants are soft-deactivated, never hard-deleted while children exist.
type Tenant struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Code           string    `db:"code" json:"code"`
	Address        string    `db:"address" json:"address"`
	Phone          string    `db:"phone" json:"phone"`
	PrincipalName  string    `db:"principal_name" json:"principalName"`
	PrincipalEmail string    `db:"principal_email" json:"principalEmail"`
	PrincipalPhone string    `db:"principal_phone" json:"principalPhone"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// TenantFilter constrains tenant listing.
type TenantFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Wing groups grades inside a school (e.g. primary, middle, senior).
type Wing struct {
	ID        string         `db:"id" json:"id"`
	TenantID  string         `db:"tenant_id" json:"tenantId"`
	Name      string         `db:"name" json:"name"`
	Grades    pq.StringArray `db:"grades" json:"grades"`
	SortOrder int            `db:"sort_order" json:"sortOrder"`
	Active    bool           `db:"active" json:"active"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// StorageConfig holds the per-tenant file storage settings and quota. At most
// one row exists per tenant; it caps reference-material uploads.
type StorageConfig struct {
	TenantID        string    `db:"tenant_id" json:"tenantId"`
	BucketName      string    `db:"bucket_name" json:"bucketName"`
	FolderPath      string    `db:"folder_path" json:"folderPath"`
	MaxStorageBytes int64     `db:"max_storage_bytes" json:"maxStorageBytes"`
	UpdatedBy       string    `db:"updated_by" json:"updatedBy"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
