package dto

// CreateTenantRequest onboards a school.
type CreateTenantRequest struct {
	Name           string `json:"name" validate:"required,min=3"`
	Code           string `json:"code" validate:"required,alphanum,min=3,max=12"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	PrincipalName  string `json:"principalName"`
	PrincipalEmail string `json:"principalEmail" validate:"omitempty,email"`
	PrincipalPhone string `json:"principalPhone"`
}

// UpdateTenantRequest carries partial edits. The school code is immutable.
type UpdateTenantRequest struct {
	Name           *string `json:"name"`
	Address        *string `json:"address"`
	Phone          *string `json:"phone"`
	PrincipalName  *string `json:"principalName"`
	PrincipalEmail *string `json:"principalEmail" validate:"omitempty,email"`
	PrincipalPhone *string `json:"principalPhone"`
	Active         *bool   `json:"active"`
}

// TenantQuery mirrors supported listing filters.
type TenantQuery struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}

// CreateWingRequest adds a wing (grade grouping) to a tenant.
type CreateWingRequest struct {
	Name      string   `json:"name" validate:"required"`
	Grades    []string `json:"grades" validate:"required,min=1"`
	SortOrder int      `json:"sortOrder"`
}

// UpdateWingRequest carries partial edits to a wing.
type UpdateWingRequest struct {
	Name      *string  `json:"name"`
	Grades    []string `json:"grades"`
	SortOrder *int     `json:"sortOrder"`
	Active    *bool    `json:"active"`
}

// UpdateStorageConfigRequest points a tenant at its file bucket and quota.
type UpdateStorageConfigRequest struct {
	BucketName      string `json:"bucketName" validate:"required"`
	FolderPath      string `json:"folderPath" validate:"required"`
	MaxStorageBytes int64  `json:"maxStorageBytes" validate:"required,gt=0"`
}
