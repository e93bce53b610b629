package dto

import "encoding/json"

// CreateBlueprintRequest is the payload for drafting a blueprint.
type CreateBlueprintRequest struct {
	Name           string          `json:"name" validate:"required,min=3"`
	Grade          string          `json:"grade" validate:"required"`
	Subject        string          `json:"subject" validate:"required"`
	AcademicYearID string          `json:"academicYearId"`
	TotalMarks     int             `json:"totalMarks" validate:"required,gt=0"`
	Sections       json.RawMessage `json:"sections" validate:"required"`
}

// UpdateBlueprintRequest carries partial edits. Nil fields are left
// untouched.
type UpdateBlueprintRequest struct {
	Name       *string         `json:"name"`
	Grade      *string         `json:"grade"`
	Subject    *string         `json:"subject"`
	TotalMarks *int            `json:"totalMarks"`
	Sections   json.RawMessage `json:"sections"`
}

// BlueprintQuery mirrors supported listing filters.
type BlueprintQuery struct {
	Grade          string
	Subject        string
	AcademicYearID string
	Approved       *bool
	Locked         *bool
	Search         string
	Page           int
	PageSize       int
}

// UpsertBlueprintPolicyRequest sets the per-tenant blueprint enforcement
// knobs for one academic year.
type UpsertBlueprintPolicyRequest struct {
	AcademicYearID     string `json:"academicYearId" validate:"required"`
	BlueprintMandatory bool   `json:"blueprintMandatory"`
	AllowEditAfterLock bool   `json:"allowEditAfterLock"`
}
