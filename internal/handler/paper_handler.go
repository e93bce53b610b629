package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	"github.com/VipuDevAI/Prashnakosh-sub002/pkg/response"
)

type paperWorkflow interface {
	Create(ctx context.Context, tenantID string, req dto.CreateTestPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Get(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.TestPaper, error)
	List(ctx context.Context, tenantID string, query dto.TestPaperQuery, actor *models.JWTClaims) ([]models.TestPaper, int, error)
	Update(ctx context.Context, tenantID, id string, req dto.UpdateTestPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Submit(ctx context.Context, tenantID, id string, req dto.SubmitPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Review(ctx context.Context, tenantID, id string, req dto.ReviewPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Advance(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	SendToCommittee(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Activate(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Lock(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Archive(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Resubmit(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)
	Audit(ctx context.Context, tenantID, id string) ([]models.ExamAuditLog, error)
	RevealResults(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.TestPaper, error)
}

// PaperHandler exposes test paper workflow endpoints.
type PaperHandler struct {
	service paperWorkflow
}

// NewPaperHandler creates a new handler.
func NewPaperHandler(svc paperWorkflow) *PaperHandler {
	return &PaperHandler{service: svc}
}

// Create godoc
// @Summary Create a test paper
// @Description Create a draft paper under a framework and blueprint
// @Tags Papers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTestPaperRequest true "Paper payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers [post]
func (h *PaperHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateTestPaperRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.Create(c.Request.Context(), tenantID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, paper)
}

// List godoc
// @Summary List test papers
// @Description List papers with filters. Students never see confidential fields.
// @Tags Papers
// @Produce json
// @Param academicYearId query string false "Filter by academic year"
// @Param grade query string false "Filter by grade"
// @Param subject query string false "Filter by subject"
// @Param state query string false "Comma separated workflow states"
// @Param created_by query string false "Filter by author"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /papers [get]
func (h *PaperHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, size := pageParams(c)
	query := dto.TestPaperQuery{
		AcademicYearID: c.Query("academicYearId"),
		Grade:          c.Query("grade"),
		Subject:        c.Query("subject"),
		States:         paperStates(c.Query("state")),
		CreatedBy:      c.Query("created_by"),
		Page:           page,
		PageSize:       size,
	}

	papers, total, err := h.service.List(c.Request.Context(), tenantID, query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, papers, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Get godoc
// @Summary Get a test paper
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id} [get]
func (h *PaperHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

// Update godoc
// @Summary Update a test paper
// @Description Draft and rejected papers only
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.UpdateTestPaperRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id} [put]
func (h *PaperHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateTestPaperRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

// Submit godoc
// @Summary Submit a paper for approval
// @Description Moves a draft paper into the HOD review queue
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.SubmitPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/submit [post]
func (h *PaperHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	req := dto.SubmitPaperRequest{}
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			response.Error(c, err)
			return
		}
	}

	paper, err := h.service.Submit(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

// Review godoc
// @Summary Review a paper at the current gate
// @Description HOD or principal approve/reject; rejection requires comments
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.ReviewPaperRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/review [post]
func (h *PaperHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ReviewPaperRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.Review(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

// Advance godoc
// @Summary Advance an approved paper to the next gate
// @Description Moves hod_approved to pending_principal, principal_approved to sent_to_committee
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/advance [post]
func (h *PaperHandler) Advance(c *gin.Context) {
	h.transition(c, h.service.Advance)
}

// SendToCommittee godoc
// @Summary Hand a principal-approved paper to the exam committee
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/send-to-committee [post]
func (h *PaperHandler) SendToCommittee(c *gin.Context) {
	h.transition(c, h.service.SendToCommittee)
}

// Activate godoc
// @Summary Activate a paper for its exam window
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/activate [post]
func (h *PaperHandler) Activate(c *gin.Context) {
	h.transition(c, h.service.Activate)
}

// Lock godoc
// @Summary Lock a paper after its exam
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/lock [post]
func (h *PaperHandler) Lock(c *gin.Context) {
	h.transition(c, h.service.Lock)
}

// Archive godoc
// @Summary Archive a locked paper
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/archive [post]
func (h *PaperHandler) Archive(c *gin.Context) {
	h.transition(c, h.service.Archive)
}

// Resubmit godoc
// @Summary Resubmit a rejected paper
// @Description Returns a rejected paper to draft for rework
// @Tags Papers
// @Accept json
// @Produce json
// @Param id path string true "Paper ID"
// @Param payload body dto.TransitionPaperRequest false "Optional comments"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/resubmit [post]
func (h *PaperHandler) Resubmit(c *gin.Context) {
	h.transition(c, h.service.Resubmit)
}

// Audit godoc
// @Summary Get a paper's workflow history
// @Description One entry per transition, oldest first
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /papers/{id}/audit [get]
func (h *PaperHandler) Audit(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.service.Audit(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// RevealResults godoc
// @Summary Reveal a locked paper's results
// @Description Marks scores as visible to students
// @Tags Papers
// @Produce json
// @Param id path string true "Paper ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /papers/{id}/reveal-results [post]
func (h *PaperHandler) RevealResults(c *gin.Context) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	paper, err := h.service.RevealResults(c.Request.Context(), tenantID, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

type transitionFunc func(ctx context.Context, tenantID, id string, req dto.TransitionPaperRequest, actor *models.JWTClaims) (*models.TestPaper, error)

func (h *PaperHandler) transition(c *gin.Context, fn transitionFunc) {
	claims := claimsFromContext(c)
	tenantID, err := resolveTenantID(c, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	req := dto.TransitionPaperRequest{}
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			response.Error(c, err)
			return
		}
	}

	paper, err := fn(c.Request.Context(), tenantID, c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, paper, nil)
}

func paperStates(raw string) []workflow.State {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	states := make([]workflow.State, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			states = append(states, workflow.State(p))
		}
	}
	return states
}
