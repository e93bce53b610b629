package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// AcademicYearHandler exposes academic year endpoints.
type AcademicYearHandler struct {
	service *service.AcademicYearService
}

// NewAcademicYearHandler creates a new handler.
func NewAcademicYearHandler(svc *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{service: svc}
}

// Create godoc
// @Summary Create an academic year
// @Tags Academic Years
// @Accept json
// @Produce json
// @Param payload body dto.CreateAcademicYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateAcademicYearRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.Create(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, year)
}

// List godoc
// @Summary List academic years
// @Tags Academic Years
// @Produce json
// @Param active query bool false "Filter by active flag"
// @Param locked query bool false "Filter by locked flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.AcademicYearQuery{
		Active:   boolQuery(c, "active"),
		Locked:   boolQuery(c, "locked"),
		Page:     page,
		PageSize: size,
	}

	years, total, err := h.service.List(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, years, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// GetActive godoc
// @Summary Get the active academic year
// @Tags Academic Years
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/active [get]
func (h *AcademicYearHandler) GetActive(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.GetActive(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, year, nil)
}

// Get godoc
// @Summary Get an academic year
// @Tags Academic Years
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, year, nil)
}

// Update godoc
// @Summary Update an academic year
// @Tags Academic Years
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body dto.UpdateAcademicYearRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateAcademicYearRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, year, nil)
}

// Activate godoc
// @Summary Activate an academic year
// @Description Makes this year the school's active year and deactivates the rest
// @Tags Academic Years
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /academic-years/{id}/activate [post]
func (h *AcademicYearHandler) Activate(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.Activate(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, year, nil)
}

// Lock godoc
// @Summary Lock an academic year
// @Description A locked year rejects further paper and framework changes
// @Tags Academic Years
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/{id}/lock [post]
func (h *AcademicYearHandler) Lock(c *gin.Context) {
	h.setLock(c, true)
}

// Unlock godoc
// @Summary Unlock an academic year
// @Tags Academic Years
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /academic-years/{id}/unlock [post]
func (h *AcademicYearHandler) Unlock(c *gin.Context) {
	h.setLock(c, false)
}

func (h *AcademicYearHandler) setLock(c *gin.Context, locked bool) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	year, err := h.service.SetLock(c.Request.Context(), tenantID, c.Param("id"), locked, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, year, nil)
}
