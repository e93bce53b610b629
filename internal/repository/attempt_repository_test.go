package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
)

func newAttemptRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttemptRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newAttemptRepoMock(t)
	defer cleanup()

	repo := NewAttemptRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attempts")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	attempt := &models.Attempt{
		TenantID:    "tenant-1",
		TestPaperID: "paper-1",
		StudentID:   "student-1",
		MaxScore:    80,
	}
	require.NoError(t, repo.Create(context.Background(), attempt))
	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, models.AttemptStatusInProgress, attempt.Status)
	assert.False(t, attempt.StartedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepositorySubmitRejectsDoubleSubmit(t *testing.T) {
	db, mock, cleanup := newAttemptRepoMock(t)
	defer cleanup()

	repo := NewAttemptRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attempts SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	score := 42.5
	attempt := &models.Attempt{
		ID:      "attempt-1",
		Status:  models.AttemptStatusSubmitted,
		Answers: []byte(`{"q-1":"4"}`),
		Score:   &score,
	}
	require.NoError(t, repo.Submit(context.Background(), attempt))
	require.NotNil(t, attempt.SubmittedAt)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE attempts SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Submit(context.Background(), attempt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepositorySaveProgressOnlyWhileRunning(t *testing.T) {
	db, mock, cleanup := newAttemptRepoMock(t)
	defer cleanup()

	repo := NewAttemptRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attempts SET answers")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	attempt := &models.Attempt{ID: "attempt-1", Answers: []byte(`{}`), QuestionStatus: []byte(`{}`)}
	err := repo.SaveProgress(context.Background(), attempt)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepositoryListScoreRows(t *testing.T) {
	db, mock, cleanup := newAttemptRepoMock(t)
	defer cleanup()

	repo := NewAttemptRepository(db)
	score := 36.0
	rows := sqlmock.NewRows([]string{"student_id", "user_code", "full_name", "status", "score", "max_score", "submitted_at"}).
		AddRow("student-1", "STU001", "Asha Verma", "submitted", score, 40.0, nil).
		AddRow("student-2", "STU002", "Ravi Nair", "absent", nil, 40.0, nil)
	mock.ExpectQuery("SELECT a.student_id, u.user_code, u.full_name,.+JOIN users u ON u.id = a.student_id").
		WithArgs("paper-1").
		WillReturnRows(rows)

	sheet, err := repo.ListScoreRows(context.Background(), "paper-1")
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	assert.Equal(t, "STU001", sheet[0].UserCode)
	require.NotNil(t, sheet[0].Score)
	assert.Equal(t, 36.0, *sheet[0].Score)
	assert.Nil(t, sheet[1].Score)
	assert.Equal(t, models.AttemptStatusAbsent, sheet[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
