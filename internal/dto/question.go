package dto

import (
	"encoding/json"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	Type          models.QuestionType       `json:"type" validate:"required"`
	Text          string                    `json:"text" validate:"required,min=3"`
	Options       json.RawMessage           `json:"options"`
	CorrectAnswer string                    `json:"correctAnswer"`
	Marks         int                       `json:"marks" validate:"required,gt=0"`
	Difficulty    models.QuestionDifficulty `json:"difficulty" validate:"required"`
	BloomLevel    string                    `json:"bloomLevel"`
	Grade         string                    `json:"grade" validate:"required"`
	Subject       string                    `json:"subject" validate:"required"`
	Chapter       string                    `json:"chapter"`
	Source        string                    `json:"source"`
}

// UpdateQuestionRequest carries partial edits to a question.
type UpdateQuestionRequest struct {
	Text          *string                    `json:"text"`
	Options       json.RawMessage            `json:"options"`
	CorrectAnswer *string                    `json:"correctAnswer"`
	Marks         *int                       `json:"marks"`
	Difficulty    *models.QuestionDifficulty `json:"difficulty"`
	BloomLevel    *string                    `json:"bloomLevel"`
	Chapter       *string                    `json:"chapter"`
}

// BulkCreateQuestionsRequest imports a batch of questions in one call.
type BulkCreateQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// ReviewQuestionRequest captures a reviewer decision on a pending question.
type ReviewQuestionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

// QuestionQuery mirrors supported listing filters.
type QuestionQuery struct {
	Grade      string
	Subject    string
	Chapter    string
	Type       models.QuestionType
	Difficulty models.QuestionDifficulty
	Status     []models.QuestionStatus
	Search     string
	CreatedBy  string
	Page       int
	PageSize   int
}

// CreateChapterRequest registers a syllabus chapter for tagging questions.
type CreateChapterRequest struct {
	Name      string `json:"name" validate:"required"`
	Grade     string `json:"grade" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	SortOrder int    `json:"sortOrder"`
}
