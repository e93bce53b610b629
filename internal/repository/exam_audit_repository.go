package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

const examAuditColumns = `id, tenant_id, entity_type, entity_id, action, from_state, to_state, actor_id, actor_role, comments, created_at`

// ExamAuditRepository reads and appends the workflow ledger. Rows are
// insert-only; there is no update or delete path.
type ExamAuditRepository struct {
	db *sqlx.DB
}

// NewExamAuditRepository constructs the repository.
func NewExamAuditRepository(db *sqlx.DB) *ExamAuditRepository {
	return &ExamAuditRepository{db: db}
}

// Create appends a ledger row outside a paper transition. Blueprint
// governance flips (approve, lock, unlock) record through it; paper edges
// insert their rows inside the transition transaction instead.
func (r *ExamAuditRepository) Create(ctx context.Context, entry *models.ExamAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_audit_logs (id, tenant_id, entity_type, entity_id, action, from_state, to_state, actor_id, actor_role, comments, created_at)
	VALUES (:id, :tenant_id, :entity_type, :entity_id, :action, :from_state, :to_state, :actor_id, :actor_role, :comments, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create exam audit log: %w", err)
	}
	return nil
}

// ListByEntity returns the full ledger for one entity in chronological
// order.
func (r *ExamAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ExamAuditLog, error) {
	const query = `SELECT ` + examAuditColumns + ` FROM exam_audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC, id ASC`
	var entries []models.ExamAuditLog
	if err := r.db.SelectContext(ctx, &entries, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list exam audit logs: %w", err)
	}
	return entries, nil
}

// CountSince reports ledger activity for a tenant inside a window, used by
// the dashboards.
func (r *ExamAuditRepository) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_audit_logs WHERE tenant_id = $1 AND created_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, since); err != nil {
		return 0, fmt.Errorf("count exam audit logs: %w", err)
	}
	return count, nil
}
