package dto

import (
	"encoding/json"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

// StartAttemptRequest opens (or resumes) an attempt on an active paper.
type StartAttemptRequest struct {
	TestPaperID string `json:"testPaperId" validate:"required"`
}

// SaveAttemptProgressRequest snapshots the in-progress session. Maps are
// keyed by question id.
type SaveAttemptProgressRequest struct {
	Answers              json.RawMessage `json:"answers"`
	QuestionStatus       json.RawMessage `json:"questionStatus"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TimeRemainingSecs    int             `json:"timeRemainingSecs"`
}

// SubmitAttemptRequest finalizes an attempt with the last answer snapshot.
type SubmitAttemptRequest struct {
	Answers        json.RawMessage `json:"answers"`
	QuestionStatus json.RawMessage `json:"questionStatus"`
}

// OverrideAttemptRequest records a manual marking decision: a corrected
// score or an absent marking.
type OverrideAttemptRequest struct {
	Status string   `json:"status" validate:"required,oneof=absent marked"`
	Score  *float64 `json:"score" validate:"omitempty,gte=0"`
	Reason string   `json:"reason"`
}

// AttemptQuery mirrors supported listing filters.
type AttemptQuery struct {
	TestPaperID string
	StudentID   string
	Status      []models.AttemptStatus
}
