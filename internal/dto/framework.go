package dto

// CreateExamFrameworkRequest defines an exam template (marks, duration,
// subjects, print layout) reused across papers.
type CreateExamFrameworkRequest struct {
	Name              string   `json:"name" validate:"required,min=3"`
	WingID            string   `json:"wingId"`
	AcademicYearID    string   `json:"academicYearId"`
	TotalMarks        int      `json:"totalMarks" validate:"required,gt=0"`
	DurationMinutes   int      `json:"durationMinutes" validate:"required,gt=0"`
	Subjects          []string `json:"subjects" validate:"required,min=1"`
	QuestionPaperSets int      `json:"questionPaperSets" validate:"gte=1,lte=4"`
	PageSize          string   `json:"pageSize"`
}

// UpdateExamFrameworkRequest carries partial edits to a framework.
type UpdateExamFrameworkRequest struct {
	Name              *string  `json:"name"`
	TotalMarks        *int     `json:"totalMarks"`
	DurationMinutes   *int     `json:"durationMinutes"`
	Subjects          []string `json:"subjects"`
	QuestionPaperSets *int     `json:"questionPaperSets"`
	PageSize          *string  `json:"pageSize"`
	Active            *bool    `json:"active"`
}

// ExamFrameworkQuery mirrors supported listing filters.
type ExamFrameworkQuery struct {
	WingID         string
	AcademicYearID string
	Active         *bool
	Page           int
	PageSize       int
}
