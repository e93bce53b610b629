package dto

// CreateReferenceMaterialRequest registers an uploaded study resource. The
// file itself arrives as multipart form data; this struct carries the
// metadata fields.
type CreateReferenceMaterialRequest struct {
	Title       string `json:"title" form:"title" validate:"required,min=3"`
	Description string `json:"description" form:"description"`
	Grade       string `json:"grade" form:"grade" validate:"required"`
	Subject     string `json:"subject" form:"subject" validate:"required"`
}

// ReferenceMaterialQuery mirrors supported listing filters.
type ReferenceMaterialQuery struct {
	Grade    string
	Subject  string
	Search   string
	Page     int
	PageSize int
}
