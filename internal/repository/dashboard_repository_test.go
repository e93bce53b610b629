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

func newDashboardRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDashboardRepositoryGradePerformanceDerivesTrend(t *testing.T) {
	db, mock, cleanup := newDashboardRepoMock(t)
	defer cleanup()

	repo := NewDashboardRepository(db)
	rows := sqlmock.NewRows([]string{"grade", "average_score", "pass_percentage", "total_attempts", "recent_average"}).
		AddRow("9", 58.0, 82.5, 40, 64.2).
		AddRow("10", 61.0, 79.0, 55, 52.3).
		AddRow("11", 55.0, 70.0, 30, 55.9).
		AddRow("12", 60.0, 75.0, 12, nil)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN test_papers p ON p.id = a.test_paper_id")).
		WithArgs("tenant-1", 40.0, sqlmock.AnyArg()).
		WillReturnRows(rows)

	grades, err := repo.GradePerformance(context.Background(), "tenant-1", 40.0, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, grades, 4)
	assert.Equal(t, models.TrendUp, grades[0].Trend)
	assert.Equal(t, models.TrendDown, grades[1].Trend)
	assert.Equal(t, models.TrendSteady, grades[2].Trend)
	// No scored attempts in the window reads as steady, not down.
	assert.Equal(t, models.TrendSteady, grades[3].Trend)
	assert.Equal(t, 55, grades[1].TotalAttempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepositoryListAtRiskStudentsWorstFirst(t *testing.T) {
	db, mock, cleanup := newDashboardRepoMock(t)
	defer cleanup()

	repo := NewDashboardRepository(db)
	rows := sqlmock.NewRows([]string{"student_id", "student_name", "grade", "average_percentage", "attempt_count"}).
		AddRow("student-3", "Ravi Kumar", "10", 22.8, 5).
		AddRow("student-7", "Meena Joshi", "9", 35.1, 3)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY average_percentage ASC")).
		WithArgs("tenant-1", 40.0).
		WillReturnRows(rows)

	students, err := repo.ListAtRiskStudents(context.Background(), "tenant-1", 40.0, 25)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ravi Kumar", students[0].StudentName)
	assert.InDelta(t, 22.8, students[0].AveragePercentage, 0.001)
	assert.Equal(t, 5, students[0].AttemptCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
