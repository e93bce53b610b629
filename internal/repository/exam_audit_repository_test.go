package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/workflow"
)

func newExamAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExamAuditRepositoryListByEntityChronological(t *testing.T) {
	db, mock, cleanup := newExamAuditRepoMock(t)
	defer cleanup()

	repo := NewExamAuditRepository(db)
	base := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "entity_type", "entity_id", "action", "from_state", "to_state", "actor_id", "actor_role", "created_at"}).
		AddRow("log-1", "tenant-1", "test_paper", "paper-1", "submit", "draft", "pending_hod", "teacher-1", "teacher", base).
		AddRow("log-2", "tenant-1", "test_paper", "paper-1", "approve", "pending_hod", "hod_approved", "hod-1", "hod", base.Add(time.Minute)).
		AddRow("log-3", "tenant-1", "test_paper", "paper-1", "advance", "hod_approved", "pending_principal", "hod-1", "system", base.Add(2*time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("FROM exam_audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC")).
		WithArgs("test_paper", "paper-1").
		WillReturnRows(rows)

	entries, err := repo.ListByEntity(context.Background(), models.EntityTypeTestPaper, "paper-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, workflow.StateDraft, entries[0].FromState)
	assert.Equal(t, workflow.RoleSystem, entries[2].ActorRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamAuditRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newExamAuditRepoMock(t)
	defer cleanup()

	repo := NewExamAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exam_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.ExamAuditLog{
		TenantID:   "tenant-1",
		EntityType: models.EntityTypeTestPaper,
		EntityID:   "paper-1",
		Action:     models.ExamAuditActionActivate,
		FromState:  workflow.StateSentToCommittee,
		ToState:    workflow.StateActive,
		ActorID:    "committee-1",
		ActorRole:  workflow.RoleExamCommittee,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
