package dto

import "time"

// Results export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Paper build job states reported back to the caller.
const (
	ExportJobQueued    = "queued"
	ExportJobCompleted = "completed"
)

// ExportFileResponse describes a stored export and the signed token that
// downloads it.
type ExportFileResponse struct {
	FileName  string    `json:"fileName"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PaperBuildResponse acknowledges a question paper PDF build.
type PaperBuildResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}
