package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// BlueprintHandler exposes blueprint and blueprint policy endpoints.
type BlueprintHandler struct {
	blueprints *service.BlueprintService
	policies   *service.PolicyService
}

// NewBlueprintHandler creates a new handler.
func NewBlueprintHandler(blueprints *service.BlueprintService, policies *service.PolicyService) *BlueprintHandler {
	return &BlueprintHandler{blueprints: blueprints, policies: policies}
}

// Create godoc
// @Summary Create a blueprint
// @Description Define the section and chapter weighting template for papers
// @Tags Blueprints
// @Accept json
// @Produce json
// @Param payload body dto.CreateBlueprintRequest true "Blueprint payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /blueprints [post]
func (h *BlueprintHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateBlueprintRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	blueprint, err := h.blueprints.Create(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, blueprint)
}

// List godoc
// @Summary List blueprints
// @Tags Blueprints
// @Produce json
// @Param grade query string false "Filter by grade"
// @Param subject query string false "Filter by subject"
// @Param academicYearId query string false "Filter by academic year"
// @Param approved query bool false "Filter by approval flag"
// @Param locked query bool false "Filter by locked flag"
// @Param search query string false "Match blueprint name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blueprints [get]
func (h *BlueprintHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.BlueprintQuery{
		Grade:          c.Query("grade"),
		Subject:        c.Query("subject"),
		AcademicYearID: c.Query("academicYearId"),
		Approved:       boolQuery(c, "approved"),
		Locked:         boolQuery(c, "locked"),
		Search:         c.Query("search"),
		Page:           page,
		PageSize:       size,
	}

	blueprints, total, err := h.blueprints.List(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, blueprints, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get a blueprint
// @Tags Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blueprints/{id} [get]
func (h *BlueprintHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	blueprint, err := h.blueprints.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, blueprint, nil)
}

// Update godoc
// @Summary Update a blueprint
// @Description Locked blueprints only accept changes when the year's policy allows it
// @Tags Blueprints
// @Accept json
// @Produce json
// @Param id path string true "Blueprint ID"
// @Param payload body dto.UpdateBlueprintRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /blueprints/{id} [put]
func (h *BlueprintHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateBlueprintRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	blueprint, err := h.blueprints.Update(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, blueprint, nil)
}

// Approve godoc
// @Summary Approve a blueprint
// @Tags Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /blueprints/{id}/approve [post]
func (h *BlueprintHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	blueprint, err := h.blueprints.Approve(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, blueprint, nil)
}

// Lock godoc
// @Summary Lock a blueprint
// @Tags Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blueprints/{id}/lock [post]
func (h *BlueprintHandler) Lock(c *gin.Context) {
	h.setLock(c, true)
}

// Unlock godoc
// @Summary Unlock a blueprint
// @Tags Blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blueprints/{id}/unlock [post]
func (h *BlueprintHandler) Unlock(c *gin.Context) {
	h.setLock(c, false)
}

func (h *BlueprintHandler) setLock(c *gin.Context, locked bool) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	blueprint, err := h.blueprints.SetLock(c.Request.Context(), tenantID, c.Param("id"), locked, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, blueprint, nil)
}

// GetPolicy godoc
// @Summary Get the blueprint policy for an academic year
// @Tags Blueprints
// @Produce json
// @Param academicYearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/blueprint-policies [get]
func (h *BlueprintHandler) GetPolicy(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	yearID := c.Query("academicYearId")
	if yearID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "academicYearId query parameter is required"))
		return
	}

	policy, err := h.policies.Get(c.Request.Context(), tenantID, yearID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, policy, nil)
}

// UpsertPolicy godoc
// @Summary Set the blueprint policy for an academic year
// @Tags Blueprints
// @Accept json
// @Produce json
// @Param payload body dto.UpsertBlueprintPolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/blueprint-policies [post]
func (h *BlueprintHandler) UpsertPolicy(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpsertBlueprintPolicyRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	policy, err := h.policies.Upsert(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, policy, nil)
}
