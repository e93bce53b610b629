package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// QuestionHandler exposes question bank endpoints.
type QuestionHandler struct {
	service *service.QuestionService
}

// NewQuestionHandler creates a new handler.
func NewQuestionHandler(svc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{service: svc}
}

// Create godoc
// @Summary Create a question
// @Description Add a draft question to the school's bank
// @Tags Questions
// @Accept json
// @Produce json
// @Param payload body dto.CreateQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	question, err := h.service.Create(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, question)
}

// BulkCreate godoc
// @Summary Create questions in bulk
// @Description Add up to 100 draft questions in one call
// @Tags Questions
// @Accept json
// @Produce json
// @Param payload body dto.BulkCreateQuestionsRequest true "Questions payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /questions/bulk [post]
func (h *QuestionHandler) BulkCreate(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.BulkCreateQuestionsRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	questions, err := h.service.BulkCreate(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, questions)
}

// List godoc
// @Summary List questions
// @Description List questions with filters. Answers are masked for non-staff callers.
// @Tags Questions
// @Produce json
// @Param grade query string false "Filter by grade"
// @Param subject query string false "Filter by subject"
// @Param chapter query string false "Filter by chapter"
// @Param type query string false "Filter by question type"
// @Param difficulty query string false "Filter by difficulty"
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Full text match on question text"
// @Param created_by query string false "Filter by author"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.QuestionQuery{
		Grade:      c.Query("grade"),
		Subject:    c.Query("subject"),
		Chapter:    c.Query("chapter"),
		Type:       models.QuestionType(c.Query("type")),
		Difficulty: models.QuestionDifficulty(c.Query("difficulty")),
		Status:     questionStatuses(c.Query("status")),
		Search:     c.Query("search"),
		CreatedBy:  c.Query("created_by"),
		Page:       page,
		PageSize:   size,
	}

	questions, total, err := h.service.List(c.Request.Context(), tenantID, query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, questions, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get a question
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /questions/{id} [get]
func (h *QuestionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	question, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, question, nil)
}

// Update godoc
// @Summary Update a question
// @Description Draft and rejected questions only; immutable once used by an active paper
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.UpdateQuestionRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /questions/{id} [put]
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	question, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, question, nil)
}

// Submit godoc
// @Summary Submit a question for review
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /questions/{id}/submit [post]
func (h *QuestionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	question, err := h.service.Submit(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, question, nil)
}

// Review godoc
// @Summary Review a submitted question
// @Description HOD approves or rejects; rejection requires a comment
// @Tags Questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param payload body dto.ReviewQuestionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /questions/{id}/review [post]
func (h *QuestionHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ReviewQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	question, err := h.service.Review(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, question, nil)
}

// Delete godoc
// @Summary Delete a question
// @Description Soft-deletes; rejected for questions referenced by active papers
// @Tags Questions
// @Produce json
// @Param id path string true "Question ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /questions/{id} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListChapters godoc
// @Summary List chapters
// @Tags Questions
// @Produce json
// @Param grade query string false "Filter by grade"
// @Param subject query string false "Filter by subject"
// @Success 200 {object} response.Envelope
// @Router /chapters [get]
func (h *QuestionHandler) ListChapters(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	chapters, err := h.service.ListChapters(c.Request.Context(), tenantID, c.Query("grade"), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, chapters, nil)
}

// CreateChapter godoc
// @Summary Register a chapter
// @Tags Questions
// @Accept json
// @Produce json
// @Param payload body dto.CreateChapterRequest true "Chapter payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /chapters [post]
func (h *QuestionHandler) CreateChapter(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateChapterRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	chapter, err := h.service.CreateChapter(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, chapter)
}

func questionStatuses(raw string) []models.QuestionStatus {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.QuestionStatus, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			statuses = append(statuses, models.QuestionStatus(p))
		}
	}
	return statuses
}
