package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

// Snapshots are cached briefly; paper transitions invalidate the whole
// dashboard:<tenant>:* keyspace so a fresh pipeline shows up immediately.
const (
	dashboardSnapshotTTL = 5 * time.Minute
	atRiskThresholdPct   = 40.0
	passThresholdPct     = 40.0
	recentWindow         = 7 * 24 * time.Hour
	trendWindow          = 30 * 24 * time.Hour
	upcomingExamsLimit   = 5
	atRiskListLimit      = 25
)

type dashboardStore interface {
	CountByState(ctx context.Context, tenantID, academicYearID string) ([]models.StateCount, error)
	ListByStateAndSubject(ctx context.Context, tenantID string, state workflow.State, subject string, limit int) ([]models.TestPaper, error)
	CountByStateAndSubject(ctx context.Context, tenantID string, state workflow.State, subject string) (int, error)
	CountStudents(ctx context.Context, tenantID string) (int, error)
	CountActivatedSince(ctx context.Context, tenantID string, since time.Time) (int, error)
	AverageScorePercent(ctx context.Context, tenantID string) (*float64, error)
	CountAtRiskStudents(ctx context.Context, tenantID string, thresholdPercent float64) (int, error)
	CountQuestions(ctx context.Context, tenantID, subject string, status models.QuestionStatus) (int, error)
	GradePerformance(ctx context.Context, tenantID string, passThresholdPercent float64, recentSince time.Time) ([]models.GradePerformance, error)
	ListAtRiskStudents(ctx context.Context, tenantID string, thresholdPercent float64, limit int) ([]models.AtRiskStudent, error)
}

type ledgerCounter interface {
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// DashboardService assembles the principal and HOD snapshots from
// read-optimised aggregates, memoised in Redis.
type DashboardService struct {
	store    dashboardStore
	ledger   ledgerCounter
	cache    snapshotCache
	cacheTTL time.Duration
	metrics  cacheObserver
	logger   *zap.Logger
}

// DashboardServiceOption configures optional collaborators.
type DashboardServiceOption func(*DashboardService)

// WithDashboardCache wires the Redis snapshot cache.
func WithDashboardCache(cache snapshotCache) DashboardServiceOption {
	return func(s *DashboardService) { s.cache = cache }
}

// WithDashboardMetrics reports snapshot cache hits, misses and write
// latency to the metrics collector.
func WithDashboardMetrics(metrics cacheObserver) DashboardServiceOption {
	return func(s *DashboardService) { s.metrics = metrics }
}

// WithDashboardCacheTTL overrides the snapshot cache lifetime.
func WithDashboardCacheTTL(ttl time.Duration) DashboardServiceOption {
	return func(s *DashboardService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewDashboardService constructs the service.
func NewDashboardService(store dashboardStore, ledger ledgerCounter, logger *zap.Logger, opts ...DashboardServiceOption) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DashboardService{store: store, ledger: ledger, cacheTTL: dashboardSnapshotTTL, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Principal returns the school-wide snapshot: cohort size, pipeline counts,
// this month's activations and scoring signals. The bool reports a cache hit.
func (s *DashboardService) Principal(ctx context.Context, tenantID, academicYearID string, actor *models.JWTClaims) (*models.PrincipalSnapshot, bool, error) {
	if err := requirePrincipalView(actor); err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dashboard:%s:principal:%s", tenantID, academicYearID)
	var cached models.PrincipalSnapshot
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	counts, err := s.store.CountByState(ctx, tenantID, academicYearID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count papers by state")
	}
	byState := stateCountMap(counts)

	students, err := s.store.CountStudents(ctx, tenantID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	testsThisMonth, err := s.store.CountActivatedSince(ctx, tenantID, monthStart)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count activations")
	}

	averageScore, err := s.store.AverageScorePercent(ctx, tenantID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average scores")
	}
	atRisk, err := s.store.CountAtRiskStudents(ctx, tenantID, atRiskThresholdPct)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count at-risk students")
	}

	upcoming, err := s.store.ListByStateAndSubject(ctx, tenantID, workflow.StateActive, "", upcomingExamsLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active papers")
	}

	recentTransitions := 0
	if s.ledger != nil {
		recentTransitions, err = s.ledger.CountSince(ctx, tenantID, now.Add(-recentWindow))
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count recent transitions")
		}
	}

	snapshot := &models.PrincipalSnapshot{
		TenantID:          tenantID,
		AcademicYearID:    academicYearID,
		Students:          students,
		ActivePapers:      byState[workflow.StateActive],
		TestsThisMonth:    testsThisMonth,
		AverageScore:      averageScore,
		AtRiskStudents:    atRisk,
		PendingPrincipal:  byState[workflow.StatePendingPrincipal],
		PendingHOD:        byState[workflow.StatePendingHOD],
		LockedPapers:      byState[workflow.StateLocked],
		RejectedPapers:    byState[workflow.StateHODRejected] + byState[workflow.StatePrincipalRejected],
		PapersByState:     counts,
		UpcomingExams:     upcoming,
		RecentTransitions: recentTransitions,
		GeneratedAt:       now,
	}
	s.cacheSet(ctx, cacheKey, snapshot)
	return snapshot, false, nil
}

// GradePerformance breaks scored attempts down per grade with a trend read
// off the last month. The bool reports a cache hit.
func (s *DashboardService) GradePerformance(ctx context.Context, tenantID string, actor *models.JWTClaims) ([]models.GradePerformance, bool, error) {
	if err := requirePrincipalView(actor); err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dashboard:%s:grade-performance", tenantID)
	var cached []models.GradePerformance
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, true, nil
	}

	grades, err := s.store.GradePerformance(ctx, tenantID, passThresholdPct, time.Now().UTC().Add(-trendWindow))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grade performance")
	}
	s.cacheSet(ctx, cacheKey, grades)
	return grades, false, nil
}

// AtRiskStudents lists the students scoring below the at-risk threshold,
// worst first. The bool reports a cache hit.
func (s *DashboardService) AtRiskStudents(ctx context.Context, tenantID string, actor *models.JWTClaims) ([]models.AtRiskStudent, bool, error) {
	if err := requirePrincipalView(actor); err != nil {
		return nil, false, err
	}

	cacheKey := fmt.Sprintf("dashboard:%s:at-risk", tenantID)
	var cached []models.AtRiskStudent
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, true, nil
	}

	students, err := s.store.ListAtRiskStudents(ctx, tenantID, atRiskThresholdPct, atRiskListLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list at-risk students")
	}
	s.cacheSet(ctx, cacheKey, students)
	return students, false, nil
}

func requirePrincipalView(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RolePrincipal, models.RoleAdmin, models.RoleSuperAdmin:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "the principal dashboard needs a principal or admin role")
	}
}

// HOD returns a department head's review load. Subject narrows the slice to
// one department; empty covers the whole school. The bool reports a cache hit.
func (s *DashboardService) HOD(ctx context.Context, tenantID, subject string, actor *models.JWTClaims) (*models.HODSnapshot, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "the HOD dashboard needs a HOD or admin role")
	}
	subject = strings.ToLower(strings.TrimSpace(subject))

	cacheKey := fmt.Sprintf("dashboard:%s:hod:%s", tenantID, subject)
	var cached models.HODSnapshot
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	awaiting, err := s.store.ListByStateAndSubject(ctx, tenantID, workflow.StatePendingHOD, subject, 10)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending papers")
	}
	pendingPapers, err := s.store.CountByStateAndSubject(ctx, tenantID, workflow.StatePendingHOD, subject)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending papers")
	}
	drafts, err := s.store.CountByStateAndSubject(ctx, tenantID, workflow.StateDraft, subject)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count draft papers")
	}
	hodRejected, err := s.store.CountByStateAndSubject(ctx, tenantID, workflow.StateHODRejected, subject)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rejected papers")
	}
	principalRejected, err := s.store.CountByStateAndSubject(ctx, tenantID, workflow.StatePrincipalRejected, subject)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rejected papers")
	}
	pendingReviews, err := s.store.CountQuestions(ctx, tenantID, subject, models.QuestionStatusPendingApproval)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending questions")
	}
	bankSize, err := s.store.CountQuestions(ctx, tenantID, subject, models.QuestionStatusActive)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to size the question bank")
	}
	counts, err := s.store.CountByState(ctx, tenantID, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count papers by state")
	}

	snapshot := &models.HODSnapshot{
		TenantID:               tenantID,
		Subject:                subject,
		AwaitingMe:             awaiting,
		PendingPapers:          pendingPapers,
		DraftPapers:            drafts,
		RejectedBack:           hodRejected + principalRejected,
		PendingQuestionReviews: pendingReviews,
		QuestionBankSize:       bankSize,
		PapersByState:          counts,
		GeneratedAt:            time.Now().UTC(),
	}
	s.cacheSet(ctx, cacheKey, snapshot)
	return snapshot, false, nil
}

func (s *DashboardService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *DashboardService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	start := time.Now()
	err := s.cache.Set(ctx, key, value, s.cacheTTL)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func stateCountMap(counts []models.StateCount) map[workflow.State]int {
	byState := make(map[workflow.State]int, len(counts))
	for _, entry := range counts {
		byState[entry.State] = entry.Count
	}
	return byState
}
