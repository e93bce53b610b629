package dto

import "time"

// CreateAcademicYearRequest registers a new academic year for a tenant.
type CreateAcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

// UpdateAcademicYearRequest carries partial edits to an unlocked year.
type UpdateAcademicYearRequest struct {
	Name      *string    `json:"name"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// AcademicYearQuery mirrors supported listing filters.
type AcademicYearQuery struct {
	Active   *bool
	Locked   *bool
	Page     int
	PageSize int
}
