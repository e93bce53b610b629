package models

import "time"

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeTrueFalse   QuestionType = "true_false"
	QuestionTypeFillBlank   QuestionType = "fill_blank"
	QuestionTypeShortAnswer QuestionType = "short_answer"
	QuestionTypeLongAnswer  QuestionType = "long_answer"
	QuestionTypeNumerical   QuestionType = "numerical"
	QuestionTypeCaseStudy   QuestionType = "case_study"
)

// ValidQuestionType reports whether t is a known question format.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeFillBlank,
		QuestionTypeShortAnswer, QuestionTypeLongAnswer, QuestionTypeNumerical,
		QuestionTypeCaseStudy:
		return true
	default:
		return false
	}
}

// ObjectiveQuestionType reports whether answers of this type can be scored by
// direct comparison with the stored correct answer.
func ObjectiveQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeFillBlank, QuestionTypeNumerical:
		return true
	default:
		return false
	}
}

// QuestionDifficulty buckets a question's difficulty.
type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "easy"
	DifficultyMedium QuestionDifficulty = "medium"
	DifficultyHard   QuestionDifficulty = "hard"
)

// ValidQuestionDifficulty reports whether d is a known difficulty bucket.
func ValidQuestionDifficulty(d QuestionDifficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// QuestionStatus captures the review pipeline of a bank entry, independent of
// the test paper workflow.
type QuestionStatus string

const (
	QuestionStatusDraft           QuestionStatus = "draft"
	QuestionStatusPendingApproval QuestionStatus = "pending_approval"
	QuestionStatusActive          QuestionStatus = "active"
	QuestionStatusRejected        QuestionStatus = "rejected"
)

// Question is a bank entry owned by a tenant. Options is a JSON array for
// choice-based types; CorrectAnswer is empty for subjective types.
type Question struct {
	ID            string             `db:"id" json:"id"`
	TenantID      string             `db:"tenant_id" json:"tenantId"`
	Text          string             `db:"text" json:"text"`
	Type          QuestionType       `db:"type" json:"type"`
	Options       []byte             `db:"options" json:"options,omitempty"`
	CorrectAnswer *string            `db:"correct_answer" json:"correctAnswer,omitempty"`
	Marks         int                `db:"marks" json:"marks"`
	Difficulty    QuestionDifficulty `db:"difficulty" json:"difficulty"`
	BloomLevel    *string            `db:"bloom_level" json:"bloomLevel,omitempty"`
	Grade         string             `db:"grade" json:"grade"`
	Subject       string             `db:"subject" json:"subject"`
	Chapter       string             `db:"chapter" json:"chapter"`
	Status        QuestionStatus     `db:"status" json:"status"`
	Source        string             `db:"source" json:"source"`
	CreatedBy     string             `db:"created_by" json:"createdBy"`
	ReviewedBy    *string            `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time         `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewComment *string            `db:"review_comment" json:"reviewComment,omitempty"`
	Deleted       bool               `db:"deleted" json:"-"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updatedAt"`
}

// QuestionFilter constrains bank listing queries.
type QuestionFilter struct {
	TenantID   string
	Grade      string
	Subject    string
	Chapter    string
	Type       QuestionType
	Difficulty QuestionDifficulty
	Status     []QuestionStatus
	CreatedBy  string
	Search     string
	Page       int
	PageSize   int
}

// Chapter is a lookup row backing question categorisation and blueprint
// section chapter lists.
type Chapter struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Grade     string    `db:"grade" json:"grade"`
	Subject   string    `db:"subject" json:"subject"`
	Name      string    `db:"name" json:"name"`
	SortOrder int       `db:"sort_order" json:"sortOrder"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
