package models

import "time"

// ReferenceMaterial is an uploaded study resource stored against a tenant's
// storage config. SizeBytes counts against the tenant quota.
type ReferenceMaterial struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenantId"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Grade       string    `db:"grade" json:"grade"`
	Subject     string    `db:"subject" json:"subject"`
	FilePath    string    `db:"file_path" json:"filePath"`
	FileName    string    `db:"file_name" json:"fileName"`
	ContentType string    `db:"content_type" json:"contentType"`
	SizeBytes   int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedBy  string    `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ReferenceMaterialFilter constrains library listing queries.
type ReferenceMaterialFilter struct {
	TenantID string
	Grade    string
	Subject  string
	Search   string
	Page     int
	PageSize int
}
