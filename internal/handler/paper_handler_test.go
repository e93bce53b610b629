package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/middleware"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

type fakePaperSrv struct {
	paperWorkflowStub
	lastQuery dto.TestPaperQuery
}

func (f *fakePaperSrv) List(_ context.Context, tenantID string, query dto.TestPaperQuery, _ *models.JWTClaims) ([]models.TestPaper, int, error) {
	f.lastQuery = query
	return []models.TestPaper{}, 0, nil
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", TenantID: "tenant-1", Role: models.RoleTeacher}
}

func TestPaperHandlerCreateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&fakePaperSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papers", strings.NewReader(defaultPaperPayload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPaperHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&fakePaperSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/papers", strings.NewReader(`{"title":`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid payload")
}

func TestPaperHandlerListParsesStateFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePaperSrv{}
	handler := NewPaperHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/papers?state=pending_hod,%20active&grade=10&page=2&page_size=5", nil)
	c.Set(middleware.ContextUserKey, teacherClaims())

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []workflow.State{workflow.StatePendingHOD, workflow.StateActive}, service.lastQuery.States)
	assert.Equal(t, "10", service.lastQuery.Grade)
	assert.Equal(t, 2, service.lastQuery.Page)
	assert.Equal(t, 5, service.lastQuery.PageSize)
}

func TestPaperHandlerReviewRejectsUnknownDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaperHandler(&fakePaperSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "paper-1"}}
	c.Request = httptest.NewRequest(http.MethodPost, "/papers/paper-1/review", strings.NewReader(`{"decision":"maybe"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "hod-1", TenantID: "tenant-1", Role: models.RoleHOD})

	handler.Review(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
