package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// FrameworkHandler exposes exam framework endpoints.
type FrameworkHandler struct {
	service *service.FrameworkService
}

// NewFrameworkHandler creates a new handler.
func NewFrameworkHandler(svc *service.FrameworkService) *FrameworkHandler {
	return &FrameworkHandler{service: svc}
}

// Create godoc
// @Summary Create an exam framework
// @Description Define an exam window (name, dates, subjects, marks) for a wing and year
// @Tags Frameworks
// @Accept json
// @Produce json
// @Param payload body dto.CreateExamFrameworkRequest true "Framework payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /frameworks [post]
func (h *FrameworkHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateExamFrameworkRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	framework, err := h.service.Create(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, framework)
}

// List godoc
// @Summary List exam frameworks
// @Tags Frameworks
// @Produce json
// @Param wingId query string false "Filter by wing"
// @Param academicYearId query string false "Filter by academic year"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /frameworks [get]
func (h *FrameworkHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.ExamFrameworkQuery{
		WingID:         c.Query("wingId"),
		AcademicYearID: c.Query("academicYearId"),
		Active:         boolQuery(c, "active"),
		Page:           page,
		PageSize:       size,
	}

	frameworks, total, err := h.service.List(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, frameworks, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get an exam framework
// @Tags Frameworks
// @Produce json
// @Param id path string true "Framework ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /frameworks/{id} [get]
func (h *FrameworkHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	framework, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, framework, nil)
}

// Update godoc
// @Summary Update an exam framework
// @Description Rejected while the academic year is locked or papers under the framework are active
// @Tags Frameworks
// @Accept json
// @Produce json
// @Param id path string true "Framework ID"
// @Param payload body dto.UpdateExamFrameworkRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /frameworks/{id} [put]
func (h *FrameworkHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateExamFrameworkRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	framework, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, framework, nil)
}
