package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

type exportService interface {
	ExportResults(ctx context.Context, tenantID, paperID, format string, actor *models.JWTClaims) (*dto.ExportFileResponse, error)
	GeneratePaper(ctx context.Context, tenantID, paperID string, actor *models.JWTClaims) (*dto.PaperBuildResponse, error)
	PaperDownloadToken(ctx context.Context, tenantID, paperID string, actor *models.JWTClaims) (*dto.ExportFileResponse, error)
	DownloadByToken(ctx context.Context, tenantID, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes score sheet exports and question paper builds.
type ExportHandler struct {
	service exportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ExportResults godoc
// @Summary Export a paper's score sheet
// @Description Renders the score sheet as CSV or PDF and returns a signed download token
// @Tags Exports
// @Produce json
// @Param id path string true "Paper ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/export [post]
func (h *ExportHandler) ExportResults(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.ExportResults(c.Request.Context(), tenantID, c.Param("id"), c.Query("format"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// GeneratePaper godoc
// @Summary Build the printable question paper
// @Description Queues a PDF build of the paper's question sets
// @Tags Exports
// @Produce json
// @Param id path string true "Paper ID"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/generate [post]
func (h *ExportHandler) GeneratePaper(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.GeneratePaper(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusAccepted
	if res.Status == dto.ExportJobCompleted {
		status = http.StatusOK
	}
	response.JSON(c, status, res, nil)
}

// PaperDownloadToken godoc
// @Summary Mint a download token for the built question paper
// @Tags Exports
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/download-token [get]
func (h *ExportHandler) PaperDownloadToken(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.PaperDownloadToken(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download an exported file
// @Description Streams the file named by a signed token minted for this school
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "Paper ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	result, err := h.service.DownloadByToken(c.Request.Context(), tenantID, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}
