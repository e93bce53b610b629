package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/middleware"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

type dashboardService interface {
	Principal(ctx context.Context, tenantID, academicYearID string, actor *models.JWTClaims) (*models.PrincipalSnapshot, bool, error)
	HOD(ctx context.Context, tenantID, subject string, actor *models.JWTClaims) (*models.HODSnapshot, bool, error)
	GradePerformance(ctx context.Context, tenantID string, actor *models.JWTClaims) ([]models.GradePerformance, bool, error)
	AtRiskStudents(ctx context.Context, tenantID string, actor *models.JWTClaims) ([]models.AtRiskStudent, bool, error)
}

// DashboardHandler wires dashboard snapshots to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Principal godoc
// @Summary Principal dashboard snapshot
// @Description School-wide exam pipeline counts, cohort size and scoring signals
// @Tags Dashboard
// @Produce json
// @Param academicYearId query string false "Narrow counts to one academic year"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/principal [get]
func (h *DashboardHandler) Principal(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	snapshot, cacheHit, err := h.service.Principal(c.Request.Context(), tenantID, c.Query("academicYearId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, snapshot, nil, meta)
}

// GradePerformance godoc
// @Summary Per-grade performance breakdown
// @Description Scored-attempt averages, pass rate and trend for every grade
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/principal/grade-performance [get]
func (h *DashboardHandler) GradePerformance(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	grades, cacheHit, err := h.service.GradePerformance(c.Request.Context(), tenantID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, grades, nil, middleware.ExtractMeta(c))
}

// AtRiskStudents godoc
// @Summary Students scoring below the at-risk threshold
// @Description Worst-first listing of students whose mean percentage is at risk
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/principal/at-risk-students [get]
func (h *DashboardHandler) AtRiskStudents(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	students, cacheHit, err := h.service.AtRiskStudents(c.Request.Context(), tenantID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, students, nil, middleware.ExtractMeta(c))
}

// HOD godoc
// @Summary HOD dashboard snapshot
// @Description Department review load. Subject narrows to one department.
// @Tags Dashboard
// @Produce json
// @Param subject query string false "Department subject"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/hod [get]
func (h *DashboardHandler) HOD(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	start := time.Now()
	snapshot, cacheHit, err := h.service.HOD(c.Request.Context(), tenantID, c.Query("subject"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, snapshot, nil, meta)
}
