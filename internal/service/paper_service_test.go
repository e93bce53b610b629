package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/repository"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type paperStoreStub struct {
	papers      map[string]*models.TestPaper
	transitions []repository.TransitionParams
	filter      models.TestPaperFilter
	loseRace    bool
	raceState   workflow.State
}

func newPaperStoreStub() *paperStoreStub {
	return &paperStoreStub{papers: make(map[string]*models.TestPaper)}
}

func (p *paperStoreStub) Create(ctx context.Context, paper *models.TestPaper) error {
	if paper.ID == "" {
		paper.ID = fmt.Sprintf("paper-%d", len(p.papers)+1)
	}
	clone := *paper
	p.papers[paper.ID] = &clone
	return nil
}

func (p *paperStoreStub) FindByID(ctx context.Context, id string) (*models.TestPaper, error) {
	paper, ok := p.papers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *paper
	return &clone, nil
}

func (p *paperStoreStub) List(ctx context.Context, filter models.TestPaperFilter) ([]models.TestPaper, int, error) {
	p.filter = filter
	result := make([]models.TestPaper, 0, len(p.papers))
	for _, paper := range p.papers {
		result = append(result, *paper)
	}
	return result, len(result), nil
}

func (p *paperStoreStub) UpdateDraft(ctx context.Context, paper *models.TestPaper) error {
	stored, ok := p.papers[paper.ID]
	if !ok || stored.WorkflowState != workflow.StateDraft {
		return sql.ErrNoRows
	}
	clone := *paper
	p.papers[paper.ID] = &clone
	return nil
}

func (p *paperStoreStub) ApplyTransition(ctx context.Context, params repository.TransitionParams) (*models.ExamAuditLog, error) {
	paper, ok := p.papers[params.PaperID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if p.loseRace {
		p.loseRace = false
		paper.WorkflowState = p.raceState
		return nil, sql.ErrNoRows
	}
	if paper.WorkflowState != params.FromState {
		return nil, sql.ErrNoRows
	}
	p.transitions = append(p.transitions, params)
	paper.WorkflowState = params.ToState
	switch params.ToState {
	case workflow.StatePendingHOD:
		paper.SubmittedBy = &params.ActorID
	case workflow.StateHODApproved:
		paper.HODApprovedBy = &params.ActorID
	case workflow.StateDraft:
		paper.SubmittedBy = nil
		paper.HODApprovedBy = nil
		paper.HODComment = nil
		paper.PrincipalApprovedBy = nil
		paper.PrincipalComment = nil
	}
	return &models.ExamAuditLog{
		ID:         fmt.Sprintf("audit-%d", len(p.transitions)),
		TenantID:   params.TenantID,
		EntityType: models.EntityTypeTestPaper,
		EntityID:   params.PaperID,
		Action:     params.Action,
		FromState:  params.FromState,
		ToState:    params.ToState,
		ActorID:    params.ActorID,
		ActorRole:  params.ActorRole,
	}, nil
}

func (p *paperStoreStub) SetResultsRevealed(ctx context.Context, id string) error {
	paper, ok := p.papers[id]
	if !ok || paper.WorkflowState != workflow.StateLocked {
		return sql.ErrNoRows
	}
	paper.ResultsRevealed = true
	return nil
}

type blueprintStoreStub struct {
	blueprints map[string]*models.Blueprint
}

func newBlueprintStoreStub() *blueprintStoreStub {
	return &blueprintStoreStub{blueprints: make(map[string]*models.Blueprint)}
}

func (b *blueprintStoreStub) FindByID(ctx context.Context, id string) (*models.Blueprint, error) {
	blueprint, ok := b.blueprints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *blueprint
	return &clone, nil
}

type ledgerStub struct {
	entries []models.ExamAuditLog
}

func (l *ledgerStub) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error) {
	return l.entries, nil
}

type policyGateStub struct {
	mandatory bool
}

func (p *policyGateStub) IsBlueprintRequired(ctx context.Context, tenantID, academicYearID string) (bool, error) {
	return p.mandatory, nil
}

type notifierStub struct {
	events []models.NotificationType
}

func (n *notifierStub) PublishPaperEvent(ctx context.Context, paper *models.TestPaper, event models.NotificationType) {
	n.events = append(n.events, event)
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (c *cacheInvalidatorStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

type transitionObserverStub struct {
	actions  []string
	dbLabels []string
}

func (m *transitionObserverStub) ObserveWorkflowTransition(action string, toState workflow.State) {
	m.actions = append(m.actions, action)
}

func (m *transitionObserverStub) ObserveDBQuery(label string, duration time.Duration) {
	m.dbLabels = append(m.dbLabels, label)
}

func seedPaper(store *paperStoreStub, state workflow.State, blueprintID string) *models.TestPaper {
	paper := &models.TestPaper{
		ID:              "paper-1",
		TenantID:        "tenant-1",
		Title:           "Midterm Mathematics",
		Grade:           "10",
		Subject:         "mathematics",
		TotalMarks:      80,
		DurationMinutes: 180,
		WorkflowState:   state,
		CreatedBy:       "teacher-1",
	}
	if blueprintID != "" {
		paper.BlueprintID = &blueprintID
	}
	store.papers[paper.ID] = paper
	return paper
}

func seedBlueprint(store *blueprintStoreStub, id string, approved, locked bool) *models.Blueprint {
	blueprint := &models.Blueprint{
		ID:         id,
		TenantID:   "tenant-1",
		Name:       "Standard Blueprint",
		Grade:      "10",
		Subject:    "mathematics",
		TotalMarks: 80,
		IsApproved: approved,
		IsLocked:   locked,
	}
	store.blueprints[id] = blueprint
	return blueprint
}

func claimsFor(userID string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, TenantID: "tenant-1", Role: role}
}

func TestPaperServiceGoldenPathWritesFiveLedgerRows(t *testing.T) {
	store := newPaperStoreStub()
	blueprints := newBlueprintStoreStub()
	seedBlueprint(blueprints, "bp-1", true, false)
	seedPaper(store, workflow.StateDraft, "bp-1")
	svc := NewPaperService(store, blueprints, &ledgerStub{}, &policyGateStub{mandatory: true}, nil)

	ctx := context.Background()

	paper, err := svc.Submit(ctx, "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingHOD, paper.WorkflowState)

	paper, err = svc.Review(ctx, "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionApprove, Comments: "looks good"}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingPrincipal, paper.WorkflowState)

	paper, err = svc.Review(ctx, "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionApprove}, claimsFor("principal-1", models.RolePrincipal))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePrincipalApproved, paper.WorkflowState)

	paper, err = svc.SendToCommittee(ctx, "tenant-1", "paper-1", dto.TransitionPaperRequest{}, claimsFor("principal-1", models.RolePrincipal))
	require.NoError(t, err)
	require.Equal(t, workflow.StateSentToCommittee, paper.WorkflowState)

	require.Len(t, store.transitions, 5)
	actions := make([]string, 0, len(store.transitions))
	for _, tr := range store.transitions {
		actions = append(actions, tr.Action)
	}
	require.Equal(t, []string{
		models.ExamAuditActionSubmit,
		models.ExamAuditActionApprove,
		models.ExamAuditActionAdvance,
		models.ExamAuditActionApprove,
		models.ExamAuditActionSendToCommittee,
	}, actions)

	for i := 1; i < len(store.transitions); i++ {
		require.Equal(t, store.transitions[i-1].ToState, store.transitions[i].FromState)
	}
}

func TestPaperServiceAutoAdvanceRunsAsSystem(t *testing.T) {
	store := newPaperStoreStub()
	blueprints := newBlueprintStoreStub()
	seedBlueprint(blueprints, "bp-1", true, false)
	seedPaper(store, workflow.StatePendingHOD, "bp-1")
	svc := NewPaperService(store, blueprints, &ledgerStub{}, &policyGateStub{mandatory: true}, nil)

	paper, err := svc.Review(context.Background(), "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionApprove}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingPrincipal, paper.WorkflowState)

	require.Len(t, store.transitions, 2)
	hop := store.transitions[1]
	require.Equal(t, models.ExamAuditActionAdvance, hop.Action)
	require.Equal(t, workflow.RoleSystem, hop.ActorRole)
	require.Equal(t, "hod-1", hop.ActorID)
	require.Equal(t, workflow.StateHODApproved, hop.FromState)
}

func TestPaperServiceSubmitBlocksWithoutMandatoryBlueprint(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{mandatory: true}, nil)

	_, err := svc.Submit(context.Background(), "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)

	require.Empty(t, store.transitions)
	require.Equal(t, workflow.StateDraft, store.papers["paper-1"].WorkflowState)
}

func TestPaperServiceSubmitAllowsMissingBlueprintWhenOptional(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{mandatory: false}, nil)

	paper, err := svc.Submit(context.Background(), "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingHOD, paper.WorkflowState)
	require.Len(t, store.transitions, 1)
}

func TestPaperServiceHODApproveRestsWhenBlueprintUnapproved(t *testing.T) {
	store := newPaperStoreStub()
	blueprints := newBlueprintStoreStub()
	seedBlueprint(blueprints, "bp-1", false, false)
	seedPaper(store, workflow.StatePendingHOD, "bp-1")
	svc := NewPaperService(store, blueprints, &ledgerStub{}, &policyGateStub{mandatory: true}, nil)

	ctx := context.Background()
	paper, err := svc.Review(ctx, "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionApprove}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, workflow.StateHODApproved, paper.WorkflowState)
	require.Len(t, store.transitions, 1)

	_, err = svc.Advance(ctx, "tenant-1", "paper-1", dto.TransitionPaperRequest{}, claimsFor("hod-1", models.RoleHOD))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)

	blueprints.blueprints["bp-1"].IsApproved = true
	paper, err = svc.Advance(ctx, "tenant-1", "paper-1", dto.TransitionPaperRequest{}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingPrincipal, paper.WorkflowState)
	require.Equal(t, workflow.RoleHOD, store.transitions[1].ActorRole)
}

func TestPaperServiceRejectThenResubmit(t *testing.T) {
	store := newPaperStoreStub()
	blueprints := newBlueprintStoreStub()
	seedBlueprint(blueprints, "bp-1", true, false)
	seedPaper(store, workflow.StatePendingHOD, "bp-1")
	svc := NewPaperService(store, blueprints, &ledgerStub{}, &policyGateStub{mandatory: true}, nil)

	ctx := context.Background()
	paper, err := svc.Review(ctx, "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionReject, Comments: "section B too long"}, claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Equal(t, workflow.StateHODRejected, paper.WorkflowState)

	paper, err = svc.Resubmit(ctx, "tenant-1", "paper-1", dto.TransitionPaperRequest{Comments: "trimmed section B"}, claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Equal(t, workflow.StateDraft, paper.WorkflowState)
	require.Nil(t, paper.SubmittedBy)

	paper, err = svc.Submit(ctx, "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Equal(t, workflow.StatePendingHOD, paper.WorkflowState)

	require.Len(t, store.transitions, 3)
	require.Equal(t, models.ExamAuditActionResubmit, store.transitions[1].Action)
}

func TestPaperServiceLostRaceReportsStateConflict(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	store.loseRace = true
	store.raceState = workflow.StatePendingHOD
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	_, err := svc.Submit(context.Background(), "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	require.Contains(t, appErr.Message, string(workflow.StatePendingHOD))
}

func TestPaperServiceRejectsIllegalEdges(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	ctx := context.Background()
	cases := []struct {
		name string
		call func() error
	}{
		{"activate from draft", func() error {
			_, err := svc.Activate(ctx, "tenant-1", "paper-1", dto.TransitionPaperRequest{}, claimsFor("committee-1", models.RoleExamCommittee))
			return err
		}},
		{"review without pending state", func() error {
			_, err := svc.Review(ctx, "tenant-1", "paper-1", dto.ReviewPaperRequest{Decision: dto.ReviewDecisionApprove}, claimsFor("hod-1", models.RoleHOD))
			return err
		}},
		{"student submit", func() error {
			_, err := svc.Submit(ctx, "tenant-1", "paper-1", dto.SubmitPaperRequest{}, claimsFor("student-1", models.RoleStudent))
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
		})
	}
	require.Empty(t, store.transitions)
}

func TestPaperServiceUpdateOnlyInDraft(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StatePendingHOD, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	title := "Renamed"
	_, err := svc.Update(context.Background(), "tenant-1", "paper-1", dto.UpdateTestPaperRequest{Title: &title}, claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestPaperServiceUpdateKeepsLockedBlueprint(t *testing.T) {
	store := newPaperStoreStub()
	blueprints := newBlueprintStoreStub()
	seedBlueprint(blueprints, "bp-locked", true, true)
	seedBlueprint(blueprints, "bp-other", true, false)
	seedPaper(store, workflow.StateDraft, "bp-locked")
	svc := NewPaperService(store, blueprints, &ledgerStub{}, &policyGateStub{}, nil)

	next := "bp-other"
	_, err := svc.Update(context.Background(), "tenant-1", "paper-1", dto.UpdateTestPaperRequest{BlueprintID: &next}, claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)
	require.Equal(t, "bp-locked", *store.papers["paper-1"].BlueprintID)
}

func TestPaperServiceActivateFiresSideEffects(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateSentToCommittee, "")
	notifier := &notifierStub{}
	caches := &cacheInvalidatorStub{}
	metrics := &transitionObserverStub{}
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil,
		WithPaperNotifier(notifier),
		WithPaperCacheInvalidator(caches),
		WithPaperMetrics(metrics))

	paper, err := svc.Activate(context.Background(), "tenant-1", "paper-1", dto.TransitionPaperRequest{}, claimsFor("committee-1", models.RoleExamCommittee))
	require.NoError(t, err)
	require.Equal(t, workflow.StateActive, paper.WorkflowState)
	require.Equal(t, []models.NotificationType{models.NotificationTestUnlocked}, notifier.events)
	require.Equal(t, []string{"dashboard:tenant-1:*"}, caches.patterns)
	require.Equal(t, []string{models.ExamAuditActionActivate}, metrics.actions)
	require.Equal(t, []string{"apply_transition"}, metrics.dbLabels)
}

func TestPaperServiceListScopesByRole(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	ctx := context.Background()
	_, _, err := svc.List(ctx, "tenant-1", dto.TestPaperQuery{}, claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Equal(t, "teacher-1", store.filter.CreatedBy)

	_, _, err = svc.List(ctx, "tenant-1", dto.TestPaperQuery{}, claimsFor("student-1", models.RoleStudent))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPaperServiceConfidentialMasking(t *testing.T) {
	store := newPaperStoreStub()
	paper := seedPaper(store, workflow.StatePendingHOD, "")
	paper.IsConfidential = true
	paper.QuestionIDs = []string{"q-1", "q-2"}
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	ctx := context.Background()
	got, err := svc.Get(ctx, "tenant-1", "paper-1", claimsFor("teacher-2", models.RoleTeacher))
	require.NoError(t, err)
	require.Nil(t, got.QuestionIDs)

	got, err = svc.Get(ctx, "tenant-1", "paper-1", claimsFor("teacher-1", models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, got.QuestionIDs, 2)

	got, err = svc.Get(ctx, "tenant-1", "paper-1", claimsFor("hod-1", models.RoleHOD))
	require.NoError(t, err)
	require.Len(t, got.QuestionIDs, 2)

	paper.WorkflowState = workflow.StateActive
	got, err = svc.Get(ctx, "tenant-1", "paper-1", claimsFor("teacher-2", models.RoleTeacher))
	require.NoError(t, err)
	require.Len(t, got.QuestionIDs, 2)
}

func TestPaperServiceRevealResultsRequiresLocked(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateActive, "")
	notifier := &notifierStub{}
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil, WithPaperNotifier(notifier))

	ctx := context.Background()
	_, err := svc.RevealResults(ctx, "tenant-1", "paper-1", claimsFor("principal-1", models.RolePrincipal))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrGuardFailed.Code, appErr.Code)
	require.Empty(t, notifier.events)

	store.papers["paper-1"].WorkflowState = workflow.StateLocked
	paper, err := svc.RevealResults(ctx, "tenant-1", "paper-1", claimsFor("principal-1", models.RolePrincipal))
	require.NoError(t, err)
	require.True(t, paper.ResultsRevealed)
	require.Equal(t, []models.NotificationType{models.NotificationResultPublished}, notifier.events)
}

func TestPaperServiceTenantScope(t *testing.T) {
	store := newPaperStoreStub()
	seedPaper(store, workflow.StateDraft, "")
	svc := NewPaperService(store, newBlueprintStoreStub(), &ledgerStub{}, &policyGateStub{}, nil)

	_, err := svc.Get(context.Background(), "tenant-2", "paper-1", claimsFor("teacher-1", models.RoleTeacher))
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
