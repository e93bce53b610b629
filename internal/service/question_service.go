package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type questionStore interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	Update(ctx context.Context, question *models.Question) error
	SubmitForReview(ctx context.Context, id string, expected models.QuestionStatus) error
	UpdateStatus(ctx context.Context, id string, expected, next models.QuestionStatus, reviewerID string, comment *string) error
	Delete(ctx context.Context, id string) error
	ListChapters(ctx context.Context, tenantID, grade, subject string) ([]models.Chapter, error)
	CreateChapter(ctx context.Context, chapter *models.Chapter) error
}

// QuestionService manages the question bank and its review pipeline. Bank
// entries move draft -> pending_approval -> active|rejected, independent of
// the paper workflow.
type QuestionService struct {
	questions questionStore
	logger    *zap.Logger
}

// NewQuestionService constructs the service.
func NewQuestionService(questions questionStore, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{questions: questions, logger: logger}
}

// Create adds a single question to the bank in draft.
func (s *QuestionService) Create(ctx context.Context, tenantID string, req dto.CreateQuestionRequest, actor *models.JWTClaims) (*models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question, err := buildQuestion(tenantID, req, actor.UserID)
	if err != nil {
		return nil, err
	}
	if question.Source == "" {
		question.Source = "manual"
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	return question, nil
}

// BulkCreate imports a batch of questions in one transaction. A single bad
// row rejects the whole batch so imports stay all-or-nothing.
func (s *QuestionService) BulkCreate(ctx context.Context, tenantID string, req dto.BulkCreateQuestionsRequest, actor *models.JWTClaims) ([]models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(req.Questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "questions array is empty")
	}
	questions := make([]*models.Question, 0, len(req.Questions))
	for i, item := range req.Questions {
		question, err := buildQuestion(tenantID, item, actor.UserID)
		if err != nil {
			appErr := appErrors.FromError(err)
			return nil, appErrors.Clone(appErr, fmt.Sprintf("question %d: %s", i+1, appErr.Message))
		}
		if question.Source == "" {
			question.Source = "bulk_upload"
		}
		questions = append(questions, question)
	}
	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import questions")
	}
	created := make([]models.Question, len(questions))
	for i, question := range questions {
		created[i] = *question
	}
	return created, nil
}

// Get loads one question. Teachers only see active bank entries and their
// own work in progress.
func (s *QuestionService) Get(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher && question.CreatedBy != actor.UserID && question.Status != models.QuestionStatusActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	return question, nil
}

// List returns bank entries matching the query. Teachers browse the shared
// bank as active-only unless they filter on their own authorship.
func (s *QuestionService) List(ctx context.Context, tenantID string, query dto.QuestionQuery, actor *models.JWTClaims) ([]models.Question, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.QuestionFilter{
		TenantID:   tenantID,
		Grade:      query.Grade,
		Subject:    strings.ToLower(query.Subject),
		Chapter:    query.Chapter,
		Type:       query.Type,
		Difficulty: query.Difficulty,
		Status:     query.Status,
		CreatedBy:  query.CreatedBy,
		Search:     query.Search,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	switch actor.Role {
	case models.RoleStudent, models.RoleParent:
		return nil, 0, appErrors.ErrForbidden
	case models.RoleTeacher:
		if filter.CreatedBy != actor.UserID {
			filter.Status = []models.QuestionStatus{models.QuestionStatusActive}
		}
	}
	questions, total, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, total, nil
}

// Update edits an author-side question. Editing a rejected question returns
// it to draft and clears the previous review.
func (s *QuestionService) Update(ctx context.Context, tenantID, id string, req dto.UpdateQuestionRequest, actor *models.JWTClaims) (*models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !canManageQuestion(question, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or a reviewer can edit this question")
	}
	if question.Status != models.QuestionStatusDraft && question.Status != models.QuestionStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("a %s question cannot be edited", question.Status))
	}

	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "question text is required")
		}
		question.Text = text
	}
	if len(req.Options) > 0 {
		options, err := parseQuestionOptions(question.Type, req.Options)
		if err != nil {
			return nil, err
		}
		question.Options = options
	}
	if req.CorrectAnswer != nil {
		question.CorrectAnswer = optionalString(*req.CorrectAnswer)
	}
	if req.Marks != nil {
		if *req.Marks <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "marks must be positive")
		}
		question.Marks = *req.Marks
	}
	if req.Difficulty != nil {
		if !models.ValidQuestionDifficulty(*req.Difficulty) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "difficulty must be easy, medium or hard")
		}
		question.Difficulty = *req.Difficulty
	}
	if req.BloomLevel != nil {
		question.BloomLevel = optionalString(*req.BloomLevel)
	}
	if req.Chapter != nil {
		question.Chapter = strings.TrimSpace(*req.Chapter)
	}
	if models.ObjectiveQuestionType(question.Type) && question.CorrectAnswer == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s questions need a correct answer for auto-scoring", question.Type))
	}

	if question.Status == models.QuestionStatusRejected {
		question.Status = models.QuestionStatusDraft
		question.ReviewedBy = nil
		question.ReviewedAt = nil
		question.ReviewComment = nil
	}

	if err := s.questions.Update(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	return question, nil
}

// Submit queues a draft or rejected question for HOD review.
func (s *QuestionService) Submit(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	question, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !canManageQuestion(question, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or a reviewer can submit this question")
	}
	if question.Status != models.QuestionStatusDraft && question.Status != models.QuestionStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("a %s question cannot be submitted for review", question.Status))
	}
	if err := s.questions.SubmitForReview(ctx, id, question.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.questionConflict(ctx, tenantID, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit question")
	}
	return s.loadQuestion(ctx, tenantID, id)
}

// Review approves or rejects a pending question. Question review belongs to
// the HOD.
func (s *QuestionService) Review(ctx context.Context, tenantID, id string, req dto.ReviewQuestionRequest, actor *models.JWTClaims) (*models.Question, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleHOD {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a HOD can review questions")
	}
	approve, err := parseReviewDecision(req.Decision)
	if err != nil {
		return nil, err
	}
	question, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if question.Status != models.QuestionStatusPendingApproval {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("a %s question is not awaiting review", question.Status))
	}
	next := models.QuestionStatusRejected
	if approve {
		next = models.QuestionStatusActive
	}
	if err := s.questions.UpdateStatus(ctx, id, models.QuestionStatusPendingApproval, next, actor.UserID, optionalString(req.Comments)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.questionConflict(ctx, tenantID, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review question")
	}
	return s.loadQuestion(ctx, tenantID, id)
}

// Delete soft-deletes a question. Papers that already reference it keep
// rendering because lookups by id ignore the flag.
func (s *QuestionService) Delete(ctx context.Context, tenantID, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	question, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !canManageQuestion(question, actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or a reviewer can delete this question")
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	return nil
}

// ListChapters returns the chapter taxonomy for a grade/subject pair.
func (s *QuestionService) ListChapters(ctx context.Context, tenantID, grade, subject string) ([]models.Chapter, error) {
	chapters, err := s.questions.ListChapters(ctx, tenantID, strings.TrimSpace(grade), strings.ToLower(strings.TrimSpace(subject)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
	}
	return chapters, nil
}

// CreateChapter registers a syllabus chapter.
func (s *QuestionService) CreateChapter(ctx context.Context, tenantID string, req dto.CreateChapterRequest, actor *models.JWTClaims) (*models.Chapter, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "chapter name is required")
	}
	if strings.TrimSpace(req.Grade) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade and subject are required")
	}
	chapter := &models.Chapter{
		TenantID:  tenantID,
		Name:      name,
		Grade:     strings.TrimSpace(req.Grade),
		Subject:   strings.ToLower(strings.TrimSpace(req.Subject)),
		SortOrder: req.SortOrder,
	}
	if err := s.questions.CreateChapter(ctx, chapter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create chapter")
	}
	return chapter, nil
}

func (s *QuestionService) loadQuestion(ctx context.Context, tenantID, id string) (*models.Question, error) {
	question, err := s.questions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if question.TenantID != tenantID || question.Deleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	return question, nil
}

func (s *QuestionService) questionConflict(ctx context.Context, tenantID, id string) error {
	current, err := s.loadQuestion(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("question status changed concurrently, now %s", current.Status))
}

func canManageQuestion(question *models.Question, actor *models.JWTClaims) bool {
	switch actor.Role {
	case models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin:
		return true
	case models.RoleTeacher:
		return question.CreatedBy == actor.UserID
	default:
		return false
	}
}

func buildQuestion(tenantID string, req dto.CreateQuestionRequest, creatorID string) (*models.Question, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question text is required")
	}
	if !models.ValidQuestionType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown question type %q", req.Type))
	}
	if req.Marks <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks must be positive")
	}
	if !models.ValidQuestionDifficulty(req.Difficulty) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "difficulty must be easy, medium or hard")
	}
	if strings.TrimSpace(req.Grade) == "" || strings.TrimSpace(req.Subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade and subject are required")
	}
	options, err := parseQuestionOptions(req.Type, req.Options)
	if err != nil {
		return nil, err
	}
	answer := strings.TrimSpace(req.CorrectAnswer)
	if models.ObjectiveQuestionType(req.Type) && answer == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s questions need a correct answer for auto-scoring", req.Type))
	}

	question := &models.Question{
		TenantID:   tenantID,
		Type:       req.Type,
		Text:       text,
		Options:    options,
		Marks:      req.Marks,
		Difficulty: req.Difficulty,
		Grade:      strings.TrimSpace(req.Grade),
		Subject:    strings.ToLower(strings.TrimSpace(req.Subject)),
		Chapter:    strings.TrimSpace(req.Chapter),
		Status:     models.QuestionStatusDraft,
		Source:     strings.TrimSpace(req.Source),
		CreatedBy:  creatorID,
	}
	if answer != "" {
		question.CorrectAnswer = &answer
	}
	question.BloomLevel = optionalString(req.BloomLevel)
	return question, nil
}

func parseQuestionOptions(questionType models.QuestionType, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		if questionType == models.QuestionTypeMCQ {
			return nil, appErrors.Clone(appErrors.ErrValidation, "mcq questions need an options array")
		}
		return nil, nil
	}
	var options []json.RawMessage
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "options must be a JSON array")
	}
	if questionType == models.QuestionTypeMCQ && len(options) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mcq questions need at least two options")
	}
	return []byte(raw), nil
}
