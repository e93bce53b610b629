package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/dto"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
)

type attemptStore interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	FindByID(ctx context.Context, id string) (*models.Attempt, error)
	FindByPaperAndStudent(ctx context.Context, paperID, studentID string) (*models.Attempt, error)
	List(ctx context.Context, filter models.AttemptFilter) ([]models.Attempt, error)
	SaveProgress(ctx context.Context, attempt *models.Attempt) error
	Submit(ctx context.Context, attempt *models.Attempt) error
	Override(ctx context.Context, id string, status models.AttemptStatus, score *float64, markerID string) error
}

type attemptPaperStore interface {
	FindByID(ctx context.Context, id string) (*models.TestPaper, error)
}

type attemptQuestionStore interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Snapshots outlive a normal exam sitting by a wide margin so a browser
// crash near the end of the slot can still resume.
const progressSnapshotTTL = 12 * time.Hour

func progressKey(attemptID string) string {
	return "attempt:progress:" + attemptID
}

// progressSnapshot is the Redis fast-path copy of the resumable session.
type progressSnapshot struct {
	Answers              json.RawMessage `json:"answers,omitempty"`
	QuestionStatus       json.RawMessage `json:"questionStatus,omitempty"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex"`
	TimeRemainingSecs    int             `json:"timeRemainingSecs"`
	SavedAt              time.Time       `json:"savedAt"`
}

// AttemptService runs student sessions against active papers: start/resume,
// progress autosave with a Redis fast path, submit with objective
// auto-scoring, and manual overrides.
type AttemptService struct {
	attempts    attemptStore
	papers      attemptPaperStore
	questions   attemptQuestionStore
	cache       progressCache
	progressTTL time.Duration
	logger      *zap.Logger
}

// AttemptServiceOption configures the service.
type AttemptServiceOption func(*AttemptService)

// WithAttemptProgressCache wires the Redis snapshot fast path.
func WithAttemptProgressCache(cache progressCache) AttemptServiceOption {
	return func(s *AttemptService) { s.cache = cache }
}

// WithAttemptProgressTTL overrides the snapshot lifetime.
func WithAttemptProgressTTL(ttl time.Duration) AttemptServiceOption {
	return func(s *AttemptService) {
		if ttl > 0 {
			s.progressTTL = ttl
		}
	}
}

// NewAttemptService constructs the service.
func NewAttemptService(attempts attemptStore, papers attemptPaperStore, questions attemptQuestionStore, logger *zap.Logger, opts ...AttemptServiceOption) *AttemptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttemptService{
		attempts:    attempts,
		papers:      papers,
		questions:   questions,
		progressTTL: progressSnapshotTTL,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Start opens an attempt on an active paper. A student holds at most one
// attempt per paper; starting again while one is running resumes it.
func (s *AttemptService) Start(ctx context.Context, tenantID string, req dto.StartAttemptRequest, actor *models.JWTClaims) (*models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can attempt papers")
	}
	if strings.TrimSpace(req.TestPaperID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "testPaperId is required")
	}

	paper, err := s.loadPaper(ctx, tenantID, req.TestPaperID)
	if err != nil {
		return nil, err
	}
	if paper.WorkflowState != workflow.StateActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("paper is not open for attempts, state is %s", paper.WorkflowState))
	}

	existing, err := s.attempts.FindByPaperAndStudent(ctx, paper.ID, actor.UserID)
	if err == nil {
		if existing.Status == models.AttemptStatusInProgress {
			s.overlayProgress(ctx, existing)
			return existing, nil
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "paper already attempted")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attempt")
	}

	attempt := &models.Attempt{
		TenantID:          tenantID,
		TestPaperID:       paper.ID,
		StudentID:         actor.UserID,
		Status:            models.AttemptStatusInProgress,
		TimeRemainingSecs: paper.DurationMinutes * 60,
		MaxScore:          float64(paper.TotalMarks),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		// A concurrent start may have won the unique (paper, student) slot.
		if existing, findErr := s.attempts.FindByPaperAndStudent(ctx, paper.ID, actor.UserID); findErr == nil {
			if existing.Status == models.AttemptStatusInProgress {
				return existing, nil
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "paper already attempted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start attempt")
	}
	return attempt, nil
}

// Get loads one attempt. Students only see their own, with scores hidden
// until the paper's results are revealed.
func (s *AttemptService) Get(ctx context.Context, tenantID, id string, actor *models.JWTClaims) (*models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	attempt, err := s.loadAttempt(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleStudent:
		if attempt.StudentID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
		if attempt.Status == models.AttemptStatusInProgress {
			s.overlayProgress(ctx, attempt)
		}
	case models.RoleParent:
		return nil, appErrors.ErrForbidden
	}
	s.maskScore(ctx, attempt, actor, map[string]bool{})
	return attempt, nil
}

// List returns attempts matching the query. Students are pinned to their own
// rows; scores stay hidden until the paper's results are revealed.
func (s *AttemptService) List(ctx context.Context, tenantID string, query dto.AttemptQuery, actor *models.JWTClaims) ([]models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.AttemptFilter{
		TenantID:    tenantID,
		TestPaperID: query.TestPaperID,
		StudentID:   query.StudentID,
		Status:      query.Status,
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleParent:
		return nil, appErrors.ErrForbidden
	}
	attempts, err := s.attempts.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attempts")
	}
	revealed := map[string]bool{}
	for i := range attempts {
		s.maskScore(ctx, &attempts[i], actor, revealed)
	}
	return attempts, nil
}

// SaveProgress snapshots the running session: answers, per-question status,
// current index and remaining time. The snapshot also lands in Redis so a
// resume picks up the freshest copy.
func (s *AttemptService) SaveProgress(ctx context.Context, tenantID, id string, req dto.SaveAttemptProgressRequest, actor *models.JWTClaims) (*models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	attempt, err := s.loadAttempt(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent || attempt.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the attempt owner can save progress")
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("attempt is no longer in progress, now %s", attempt.Status))
	}
	if req.CurrentQuestionIndex < 0 || req.TimeRemainingSecs < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "currentQuestionIndex and timeRemainingSecs cannot be negative")
	}
	if len(req.Answers) > 0 {
		if _, err := parseAnswers(req.Answers); err != nil {
			return nil, err
		}
		attempt.Answers = []byte(req.Answers)
	}
	if len(req.QuestionStatus) > 0 {
		if err := validateQuestionStatus(req.QuestionStatus); err != nil {
			return nil, err
		}
		attempt.QuestionStatus = []byte(req.QuestionStatus)
	}
	attempt.CurrentQuestionIndex = req.CurrentQuestionIndex
	attempt.TimeRemainingSecs = req.TimeRemainingSecs

	if err := s.attempts.SaveProgress(ctx, attempt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.attemptConflict(ctx, tenantID, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save progress")
	}

	if s.cache != nil {
		snapshot := progressSnapshot{
			Answers:              req.Answers,
			QuestionStatus:       req.QuestionStatus,
			CurrentQuestionIndex: req.CurrentQuestionIndex,
			TimeRemainingSecs:    req.TimeRemainingSecs,
			SavedAt:              time.Now().UTC(),
		}
		if err := s.cache.Set(ctx, progressKey(attempt.ID), snapshot, s.progressTTL); err != nil {
			s.logger.Warn("failed to cache progress snapshot", zap.String("attemptId", attempt.ID), zap.Error(err))
		}
	}
	return attempt, nil
}

// Submit finalizes the attempt and auto-scores objective questions against
// the bank's stored answers. Subjective marks wait for a manual override.
func (s *AttemptService) Submit(ctx context.Context, tenantID, id string, req dto.SubmitAttemptRequest, actor *models.JWTClaims) (*models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	attempt, err := s.loadAttempt(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent || attempt.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the attempt owner can submit")
	}
	if attempt.Status != models.AttemptStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("attempt is no longer in progress, now %s", attempt.Status))
	}
	if len(req.Answers) > 0 {
		if _, err := parseAnswers(req.Answers); err != nil {
			return nil, err
		}
		attempt.Answers = []byte(req.Answers)
	}
	if len(req.QuestionStatus) > 0 {
		if err := validateQuestionStatus(req.QuestionStatus); err != nil {
			return nil, err
		}
		attempt.QuestionStatus = []byte(req.QuestionStatus)
	}

	paper, err := s.loadPaper(ctx, tenantID, attempt.TestPaperID)
	if err != nil {
		return nil, err
	}
	answers, err := parseAnswers(attempt.Answers)
	if err != nil {
		return nil, err
	}
	score, err := s.scoreObjective(ctx, paper, answers)
	if err != nil {
		return nil, err
	}
	attempt.Status = models.AttemptStatusSubmitted
	attempt.Score = &score

	if err := s.attempts.Submit(ctx, attempt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.attemptConflict(ctx, tenantID, id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit attempt")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, progressKey(attempt.ID)); err != nil {
			s.logger.Warn("failed to drop progress snapshot", zap.String("attemptId", attempt.ID), zap.Error(err))
		}
	}

	if !paper.ResultsRevealed {
		masked := *attempt
		masked.Score = nil
		return &masked, nil
	}
	return attempt, nil
}

// Override records a manual marking decision: a corrected score, or marking
// the student absent.
func (s *AttemptService) Override(ctx context.Context, tenantID, id string, req dto.OverrideAttemptRequest, actor *models.JWTClaims) (*models.Attempt, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTeacher, models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff can override attempts")
	}
	attempt, err := s.loadAttempt(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	var status models.AttemptStatus
	var score *float64
	switch strings.ToLower(strings.TrimSpace(req.Status)) {
	case string(models.AttemptStatusAbsent):
		status = models.AttemptStatusAbsent
	case string(models.AttemptStatusMarked):
		if req.Score == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a marked override needs a score")
		}
		if *req.Score < 0 || *req.Score > attempt.MaxScore {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score must be between 0 and %g", attempt.MaxScore))
		}
		if attempt.Status == models.AttemptStatusInProgress {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a running attempt cannot be marked")
		}
		status = models.AttemptStatusMarked
		score = req.Score
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be absent or marked")
	}

	if err := s.attempts.Override(ctx, id, status, score, actor.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override attempt")
	}
	s.logger.Info("attempt override",
		zap.String("attemptId", id),
		zap.String("status", string(status)),
		zap.String("markedBy", actor.UserID),
		zap.String("reason", req.Reason))
	return s.loadAttempt(ctx, tenantID, id)
}

func (s *AttemptService) loadAttempt(ctx context.Context, tenantID, id string) (*models.Attempt, error) {
	attempt, err := s.attempts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attempt")
	}
	if attempt.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attempt not found")
	}
	return attempt, nil
}

func (s *AttemptService) loadPaper(ctx context.Context, tenantID, id string) (*models.TestPaper, error) {
	paper, err := s.papers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	if paper.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
	}
	return paper, nil
}

func (s *AttemptService) attemptConflict(ctx context.Context, tenantID, id string) error {
	current, err := s.loadAttempt(ctx, tenantID, id)
	if err != nil {
		return err
	}
	return appErrors.Clone(appErrors.ErrStateConflict, fmt.Sprintf("attempt status changed concurrently, now %s", current.Status))
}

// overlayProgress applies the Redis snapshot when it is fresher than the
// stored row, so resume never loses the latest autosave.
func (s *AttemptService) overlayProgress(ctx context.Context, attempt *models.Attempt) {
	if s.cache == nil {
		return
	}
	var snapshot progressSnapshot
	if err := s.cache.Get(ctx, progressKey(attempt.ID), &snapshot); err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("failed to read progress snapshot", zap.String("attemptId", attempt.ID), zap.Error(err))
		}
		return
	}
	if !snapshot.SavedAt.After(attempt.UpdatedAt) {
		return
	}
	if len(snapshot.Answers) > 0 {
		attempt.Answers = []byte(snapshot.Answers)
	}
	if len(snapshot.QuestionStatus) > 0 {
		attempt.QuestionStatus = []byte(snapshot.QuestionStatus)
	}
	attempt.CurrentQuestionIndex = snapshot.CurrentQuestionIndex
	attempt.TimeRemainingSecs = snapshot.TimeRemainingSecs
}

// maskScore hides scores from students until the paper's results are
// revealed. The revealed memo spares repeated paper lookups while listing.
func (s *AttemptService) maskScore(ctx context.Context, attempt *models.Attempt, actor *models.JWTClaims, revealed map[string]bool) {
	if actor.Role != models.RoleStudent && actor.Role != models.RoleParent {
		return
	}
	if attempt.Score == nil && attempt.OverriddenBy == nil {
		return
	}
	isRevealed, ok := revealed[attempt.TestPaperID]
	if !ok {
		paper, err := s.papers.FindByID(ctx, attempt.TestPaperID)
		isRevealed = err == nil && paper.ResultsRevealed
		revealed[attempt.TestPaperID] = isRevealed
	}
	if isRevealed {
		return
	}
	attempt.Score = nil
	attempt.OverriddenBy = nil
}

func (s *AttemptService) scoreObjective(ctx context.Context, paper *models.TestPaper, answers map[string]string) (float64, error) {
	if len(paper.QuestionIDs) == 0 || len(answers) == 0 {
		return 0, nil
	}
	questions, err := s.questions.FindByIDs(ctx, []string(paper.QuestionIDs))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions for scoring")
	}
	var score float64
	for _, question := range questions {
		if !models.ObjectiveQuestionType(question.Type) || question.CorrectAnswer == nil {
			continue
		}
		answer, ok := answers[question.ID]
		if !ok {
			continue
		}
		if answersMatch(question.Type, answer, *question.CorrectAnswer) {
			score += float64(question.Marks)
		}
	}
	return score, nil
}

// answersMatch compares a given answer with the stored one. Numerical
// answers compare as numbers so "4.0" matches "4".
func answersMatch(questionType models.QuestionType, given, correct string) bool {
	given = strings.TrimSpace(given)
	correct = strings.TrimSpace(correct)
	if questionType == models.QuestionTypeNumerical {
		g, errG := strconv.ParseFloat(given, 64)
		c, errC := strconv.ParseFloat(correct, 64)
		if errG == nil && errC == nil {
			return math.Abs(g-c) < 1e-9
		}
	}
	return strings.EqualFold(given, correct)
}

func parseAnswers(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var answers map[string]string
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answers must map question ids to answer strings")
	}
	return answers, nil
}

func validateQuestionStatus(raw []byte) error {
	var statuses map[string]string
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "questionStatus must map question ids to visit states")
	}
	for id, state := range statuses {
		switch state {
		case models.QuestionStateNotVisited, models.QuestionStateAnswered,
			models.QuestionStateMarkedReview, models.QuestionStateUnanswered:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("question %s has unknown visit state %q", id, state))
		}
	}
	return nil
}
