package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/logger"
)

func newAchievementFixture(t *testing.T, catalog []models.Achievement) (*AchievementService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewAchievementRepository(db)
	return NewAchievementService(catalog, repo, logger.NewLogger("test"), testMetrics), mock
}

func firstReportAchievement() models.Achievement {
	return models.Achievement{
		ID:       1,
		Name:     "First Report",
		Category: models.AchievementReporting,
		Points:   25,
		Criteria: map[string]int64{models.CriteriaReports: 1},
	}
}

func expectAggregates(mock sqlmock.Sqlmock, reports, validated, categories, locations, points int64) {
	mock.ExpectQuery("SELECT achievement_id FROM user_achievements").
		WillReturnRows(sqlmock.NewRows([]string{"achievement_id"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count", "validated", "categories", "locations"}).
			AddRow(reports, validated, categories, locations))
	mock.ExpectQuery("SELECT points FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(points))
}

func TestAchievementService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("GrantsWhenCriteriaMet", func(t *testing.T) {
		service, mock := newAchievementFixture(t, []models.Achievement{firstReportAchievement()})

		expectAggregates(mock, 1, 0, 1, 1, 10)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO user_achievements").
			WithArgs(uint64(7), uint64(1), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO point_logs").
			WithArgs(uint64(7), "First Report", int64(25), uint64(1), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE users SET points").
			WithArgs(int64(25), uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		granted, err := service.Evaluate(ctx, 7)
		require.NoError(t, err)
		require.Len(t, granted, 1)
		assert.Equal(t, "First Report", granted[0].Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyEarnedSkipsWithoutGrant", func(t *testing.T) {
		service, mock := newAchievementFixture(t, []models.Achievement{firstReportAchievement()})

		mock.ExpectQuery("SELECT achievement_id FROM user_achievements").
			WillReturnRows(sqlmock.NewRows([]string{"achievement_id"}).AddRow(1))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
			WillReturnRows(sqlmock.NewRows([]string{"count", "validated", "categories", "locations"}).
				AddRow(5, 2, 3, 2))
		mock.ExpectQuery("SELECT points FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(120))

		granted, err := service.Evaluate(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, granted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CriteriaNotMetIsNotAnError", func(t *testing.T) {
		service, mock := newAchievementFixture(t, []models.Achievement{{
			ID:       2,
			Name:     "Ten Reports",
			Category: models.AchievementReporting,
			Points:   100,
			Criteria: map[string]int64{models.CriteriaReports: 10},
		}})

		expectAggregates(mock, 3, 1, 2, 1, 50)

		granted, err := service.Evaluate(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, granted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LostGrantRaceIsSkipped", func(t *testing.T) {
		service, mock := newAchievementFixture(t, []models.Achievement{firstReportAchievement()})

		expectAggregates(mock, 1, 0, 1, 1, 10)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO user_achievements").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		mock.ExpectRollback()

		granted, err := service.Evaluate(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, granted)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCriteriaMet(t *testing.T) {
	agg := &models.UserActivityAggregates{
		ReportCount:          10,
		ValidatedReportCount: 4,
		DistinctCategories:   3,
		DistinctLocations:    2,
		Points:               500,
	}

	cases := []struct {
		name string
		def  models.Achievement
		want bool
	}{
		{
			"ReportingMet",
			models.Achievement{Category: models.AchievementReporting, Criteria: map[string]int64{models.CriteriaReports: 10}},
			true,
		},
		{
			"ReportingNotMet",
			models.Achievement{Category: models.AchievementReporting, Criteria: map[string]int64{models.CriteriaReports: 11}},
			false,
		},
		{
			"VerificationMet",
			models.Achievement{Category: models.AchievementVerification, Criteria: map[string]int64{models.CriteriaValidatedReports: 4}},
			true,
		},
		{
			"CommunityUsesPoints",
			models.Achievement{Category: models.AchievementCommunity, Criteria: map[string]int64{models.CriteriaPoints: 500}},
			true,
		},
		{
			"SpecialAllKeysMustPass",
			models.Achievement{Category: models.AchievementSpecial, Criteria: map[string]int64{
				models.CriteriaCategories: 3,
				models.CriteriaLocations:  2,
			}},
			true,
		},
		{
			"SpecialOneKeyFailing",
			models.Achievement{Category: models.AchievementSpecial, Criteria: map[string]int64{
				models.CriteriaCategories: 3,
				models.CriteriaLocations:  5,
			}},
			false,
		},
		{
			"SpecialEmptyCriteria",
			models.Achievement{Category: models.AchievementSpecial, Criteria: map[string]int64{}},
			false,
		},
		{
			"SpecialUnknownKey",
			models.Achievement{Category: models.AchievementSpecial, Criteria: map[string]int64{"streak_days": 7}},
			false,
		},
		{
			"WrongKeyForCategory",
			models.Achievement{Category: models.AchievementReporting, Criteria: map[string]int64{models.CriteriaPoints: 1}},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, criteriaMet(tc.def, agg))
		})
	}
}
