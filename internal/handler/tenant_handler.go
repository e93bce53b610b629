package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// TenantHandler exposes school (tenant) administration endpoints.
type TenantHandler struct {
	service *service.TenantService
}

// NewTenantHandler creates a new handler.
func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{service: svc}
}

// Create godoc
// @Summary Register a school
// @Description Create a new tenant. Super admin only.
// @Tags Tenants
// @Accept json
// @Produce json
// @Param payload body dto.CreateTenantRequest true "Tenant payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	tenant, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, tenant)
}

// List godoc
// @Summary List schools
// @Description List tenants with optional search and active filters
// @Tags Tenants
// @Produce json
// @Param search query string false "Match school name or code"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	query := dto.TenantQuery{
		Search:   c.Query("search"),
		Active:   boolQuery(c, "active"),
		Page:     page,
		PageSize: size,
	}

	tenants, total, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tenants, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get a school
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tenants/{id} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tenant, nil)
}

// Update godoc
// @Summary Update a school
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param payload body dto.UpdateTenantRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tenants/{id} [put]
func (h *TenantHandler) Update(c *gin.Context) {
	var req dto.UpdateTenantRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	tenant, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tenant, nil)
}

// ListWings godoc
// @Summary List wings of a school
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Router /tenants/{id}/wings [get]
func (h *TenantHandler) ListWings(c *gin.Context) {
	wings, err := h.service.ListWings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, wings, nil)
}

// CreateWing godoc
// @Summary Add a wing to a school
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param payload body dto.CreateWingRequest true "Wing payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tenants/{id}/wings [post]
func (h *TenantHandler) CreateWing(c *gin.Context) {
	var req dto.CreateWingRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	wing, err := h.service.CreateWing(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, wing)
}

// UpdateWing godoc
// @Summary Update a wing
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param wingId path string true "Wing ID"
// @Param payload body dto.UpdateWingRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tenants/{id}/wings/{wingId} [put]
func (h *TenantHandler) UpdateWing(c *gin.Context) {
	var req dto.UpdateWingRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	wing, err := h.service.UpdateWing(c.Request.Context(), c.Param("id"), c.Param("wingId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, wing, nil)
}

// GetStorageConfig godoc
// @Summary Get storage configuration
// @Description Returns the tenant's paper storage settings
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tenants/{id}/storage-config [get]
func (h *TenantHandler) GetStorageConfig(c *gin.Context) {
	cfg, err := h.service.GetStorageConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cfg, nil)
}

// UpsertStorageConfig godoc
// @Summary Set storage configuration
// @Description Create or replace the tenant's paper storage settings
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param payload body dto.UpdateStorageConfigRequest true "Storage settings"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tenants/{id}/storage-config [put]
func (h *TenantHandler) UpsertStorageConfig(c *gin.Context) {
	var req dto.UpdateStorageConfigRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	cfg, err := h.service.UpsertStorageConfig(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cfg, nil)
}
