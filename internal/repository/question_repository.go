package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

const questionColumns = `id, tenant_id, type, text, options, correct_answer, marks, difficulty, bloom_level, grade, subject, chapter, status, source, created_by, reviewed_by, reviewed_at, review_comment, deleted, created_at, updated_at`

// QuestionRepository handles persistence for the question bank and its
// chapter taxonomy.
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository instantiates a question repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FindByID loads a question by identifier. Soft-deleted rows stay reachable
// by id so papers that reference them keep rendering.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions WHERE id = $1 LIMIT 1`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find question by id: %w", err)
	}
	return &question, nil
}

// FindByIDs loads a batch of questions preserving no particular order.
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + questionColumns + ` FROM questions WHERE id = ANY($1)`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find questions by ids: %w", err)
	}
	return questions, nil
}

// List returns questions matching the filter with total count.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	baseQuery := `FROM questions WHERE tenant_id = $1 AND deleted = FALSE`
	args := []interface{}{filter.TenantID}
	var conditions []string

	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.Chapter != "" {
		conditions = append(conditions, fmt.Sprintf("chapter = $%d", len(args)+1))
		args = append(args, filter.Chapter)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", len(args)+1))
		args = append(args, filter.Difficulty)
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(text) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", questionColumns, baseQuery, pageSize, offset)

	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	return questions, total, nil
}

// Create inserts a new question row.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	if question.Status == "" {
		question.Status = models.QuestionStatusDraft
	}
	now := time.Now().UTC()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now

	const query = `INSERT INTO questions (id, tenant_id, type, text, options, correct_answer, marks, difficulty, bloom_level, grade, subject, chapter, status, source, created_by, reviewed_by, reviewed_at, review_comment, deleted, created_at, updated_at)
	VALUES (:id, :tenant_id, :type, :text, :options, :correct_answer, :marks, :difficulty, :bloom_level, :grade, :subject, :chapter, :status, :source, :created_by, :reviewed_by, :reviewed_at, :review_comment, :deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// CreateBatch inserts an imported batch inside one transaction so a bad row
// rejects the whole file.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO questions (id, tenant_id, type, text, options, correct_answer, marks, difficulty, bloom_level, grade, subject, chapter, status, source, created_by, reviewed_by, reviewed_at, review_comment, deleted, created_at, updated_at)
	VALUES (:id, :tenant_id, :type, :text, :options, :correct_answer, :marks, :difficulty, :bloom_level, :grade, :subject, :chapter, :status, :source, :created_by, :reviewed_by, :reviewed_at, :review_comment, :deleted, :created_at, :updated_at)`
	for _, question := range questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		if question.Status == "" {
			question.Status = models.QuestionStatusDraft
		}
		if question.CreatedAt.IsZero() {
			question.CreatedAt = now
		}
		question.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, question); err != nil {
			return fmt.Errorf("bulk insert question: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert tx: %w", err)
	}
	return nil
}

// Update modifies mutable question fields.
func (r *QuestionRepository) Update(ctx context.Context, question *models.Question) error {
	question.UpdatedAt = time.Now().UTC()
	const query = `UPDATE questions SET text = :text, options = :options, correct_answer = :correct_answer, marks = :marks, difficulty = :difficulty, bloom_level = :bloom_level, chapter = :chapter, status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, review_comment = :review_comment, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, question); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// SubmitForReview moves an author-side question into the review queue and
// clears any previous review stamps. The expected status guards against
// concurrent edits.
func (r *QuestionRepository) SubmitForReview(ctx context.Context, id string, expected models.QuestionStatus) error {
	const query = `UPDATE questions SET status = $3, reviewed_by = NULL, reviewed_at = NULL, review_comment = NULL, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, expected, models.QuestionStatusPendingApproval, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("submit question for review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check question submit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a question between review states, stamping the
// reviewer. The expected status guards against concurrent reviews.
func (r *QuestionRepository) UpdateStatus(ctx context.Context, id string, expected, next models.QuestionStatus, reviewerID string, comment *string) error {
	const query = `UPDATE questions SET status = $3, reviewed_by = $4, reviewed_at = $5, review_comment = $6, updated_at = $5 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, expected, next, reviewerID, time.Now().UTC(), comment)
	if err != nil {
		return fmt.Errorf("update question status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check question status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete soft-deletes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE questions SET deleted = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// ListChapters returns the chapter taxonomy for a grade/subject pair.
func (r *QuestionRepository) ListChapters(ctx context.Context, tenantID, grade, subject string) ([]models.Chapter, error) {
	baseQuery := `SELECT id, tenant_id, name, grade, subject, sort_order, created_at FROM chapters WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if grade != "" {
		baseQuery += fmt.Sprintf(" AND grade = $%d", len(args)+1)
		args = append(args, grade)
	}
	if subject != "" {
		baseQuery += fmt.Sprintf(" AND subject = $%d", len(args)+1)
		args = append(args, subject)
	}
	baseQuery += " ORDER BY sort_order ASC, name ASC"

	var chapters []models.Chapter
	if err := r.db.SelectContext(ctx, &chapters, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return chapters, nil
}

// CreateChapter inserts a chapter row.
func (r *QuestionRepository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO chapters (id, tenant_id, name, grade, subject, sort_order, created_at)
	VALUES (:id, :tenant_id, :name, :grade, :subject, :sort_order, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, chapter); err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}
	return nil
}
