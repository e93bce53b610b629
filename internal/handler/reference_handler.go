package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

// ReferenceHandler exposes the study material library endpoints.
type ReferenceHandler struct {
	service *service.ReferenceService
}

// NewReferenceHandler creates a new handler.
func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// Upload godoc
// @Summary Upload study material
// @Tags Reference Materials
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param grade formData string true "Grade"
// @Param subject formData string true "Subject"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /reference-materials [post]
func (h *ReferenceHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateReferenceMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid material payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	material, err := h.service.Upload(c.Request.Context(), tenantID, req,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, src, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, material)
}

// List godoc
// @Summary List study materials
// @Tags Reference Materials
// @Produce json
// @Param grade query string false "Filter by grade"
// @Param subject query string false "Filter by subject"
// @Param search query string false "Match title"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reference-materials [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.ReferenceMaterialQuery{
		Grade:    c.Query("grade"),
		Subject:  c.Query("subject"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: size,
	}

	materials, total, err := h.service.List(c.Request.Context(), tenantID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, materials, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get study material metadata
// @Tags Reference Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reference-materials/{id} [get]
func (h *ReferenceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	material, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, material, nil)
}

// Download godoc
// @Summary Download study material
// @Tags Reference Materials
// @Produce octet-stream
// @Param id path string true "Material ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /reference-materials/{id}/download [get]
func (h *ReferenceHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	material, file, err := h.service.Download(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", material.FileName))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, material.SizeBytes, material.ContentType, file, nil)
}

// Delete godoc
// @Summary Delete study material
// @Description Uploader or an admin removes the entry and its stored file
// @Tags Reference Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reference-materials/{id} [delete]
func (h *ReferenceHandler) Delete(c *gin.Context) {
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
