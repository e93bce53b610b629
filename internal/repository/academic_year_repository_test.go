package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newAcademicYearRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAcademicYearRepositorySetActiveDeactivatesSiblings(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = FALSE")).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = TRUE")).
		WithArgs("year-2", sqlmock.AnyArg(), "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActive(context.Background(), "tenant-1", "year-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetActiveUnknownYear(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActive(context.Background(), "tenant-1", "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetLockedStampsActor(t *testing.T) {
	db, mock, cleanup := newAcademicYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_locked = TRUE")).
		WithArgs("year-1", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetLocked(context.Background(), "year-1", true, "admin-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_locked = FALSE")).
		WithArgs("year-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetLocked(context.Background(), "year-1", false, "admin-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
