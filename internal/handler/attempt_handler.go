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

// AttemptHandler exposes student attempt endpoints.
type AttemptHandler struct {
	service *service.AttemptService
}

// NewAttemptHandler creates a new handler.
func NewAttemptHandler(svc *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{service: svc}
}

// Start godoc
// @Summary Start an attempt
// @Description Open an attempt against an active paper. One attempt per student per paper.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param payload body dto.StartAttemptRequest true "Attempt payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attempts [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.StartAttemptRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	attempt, err := h.service.Start(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, attempt)
}

// List godoc
// @Summary List attempts
// @Description Students see only their own attempts; staff can filter by paper or student
// @Tags Attempts
// @Produce json
// @Param testPaperId query string false "Filter by paper"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Envelope
// @Router /attempts [get]
func (h *AttemptHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	query := dto.AttemptQuery{
		TestPaperID: c.Query("testPaperId"),
		StudentID:   c.Query("studentId"),
		Status:      attemptStatuses(c.Query("status")),
	}

	attempts, err := h.service.List(c.Request.Context(), tenantID, query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attempts, nil)
}

// Get godoc
// @Summary Get an attempt
// @Description Scores stay hidden from students until the paper's results are revealed
// @Tags Attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attempts/{id} [get]
func (h *AttemptHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	attempt, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attempt, nil)
}

// SaveProgress godoc
// @Summary Save attempt progress
// @Description Autosave answers while the attempt is in progress
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body dto.SaveAttemptProgressRequest true "Answers so far"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attempts/{id}/progress [put]
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SaveAttemptProgressRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	attempt, err := h.service.SaveProgress(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attempt, nil)
}

// Submit godoc
// @Summary Submit an attempt
// @Description Finalizes answers and auto-scores the objective questions
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body dto.SubmitAttemptRequest false "Final answers"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	req := dto.SubmitAttemptRequest{}
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			response.Error(c, err)
			return
		}
	}

	attempt, err := h.service.Submit(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attempt, nil)
}

// Override godoc
// @Summary Override an attempt
// @Description Staff adjustment of score or status (absent, exempted) with a reason
// @Tags Attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param payload body dto.OverrideAttemptRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attempts/{id}/override [post]
func (h *AttemptHandler) Override(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.OverrideAttemptRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	attempt, err := h.service.Override(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attempt, nil)
}

func attemptStatuses(raw string) []models.AttemptStatus {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.AttemptStatus, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			statuses = append(statuses, models.AttemptStatus(p))
		}
	}
	return statuses
}
