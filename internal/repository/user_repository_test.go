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
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryFindByEmailAndTenant(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	tenantID := "tenant-1"
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "user_code", "email", "password_hash", "full_name", "role", "active", "created_at", "updated_at"}).
		AddRow("user-1", tenantID, "TCH-001", "asha@school.test", "hash", "Asha Verma", "teacher", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1 AND tenant_id = $2")).
		WithArgs("asha@school.test", tenantID).
		WillReturnRows(rows)

	user, err := repo.FindByEmailAndTenant(context.Background(), "asha@school.test", tenantID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleTeacher, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tenantID := "tenant-1"
	user := &models.User{
		TenantID:     &tenantID,
		UserCode:     "TCH-002",
		Email:        "ravi@school.test",
		PasswordHash: "hash",
		FullName:     "Ravi Nair",
		Role:         models.RoleTeacher,
		Active:       true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "user_code", "email", "full_name", "role", "active"}).
		AddRow("user-1", "tenant-1", "HOD-001", "lena@school.test", "Lena D", "hod", true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE tenant_id = $1")).
		WithArgs("tenant-1", "hod", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("tenant-1", "hod", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active := true
	users, total, err := repo.List(context.Background(), models.UserFilter{
		TenantID: "tenant-1",
		Role:     models.RoleHOD,
		Active:   &active,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "HOD-001", users[0].UserCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByUserCode(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE tenant_id = $1 AND user_code = $2")).
		WithArgs("tenant-1", "TCH-001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByUserCode(context.Background(), "tenant-1", "TCH-001")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
