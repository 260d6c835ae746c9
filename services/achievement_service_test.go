package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"

	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/achievement"
	"signalMapAPI/internal/types/stats"
)

func TestEvaluateRequirement(t *testing.T) {
	st := &stats.UserStats{
		TotalMeasurements: 100,
		QualityScore:      75.5,
		ConsecutiveDays:   7,
	}

	cases := []struct {
		name     string
		metric   achievement.Metric
		operator achievement.Operator
		value    float64
		wantMet  bool
		wantCur  float64
	}{
		{"equal met", achievement.MetricTotalMeasurements, achievement.OpEqual, 100, true, 100},
		{"equal not met", achievement.MetricTotalMeasurements, achievement.OpEqual, 99, false, 100},
		{"not equal", achievement.MetricTotalMeasurements, achievement.OpNotEqual, 99, true, 100},
		{"greater than met", achievement.MetricTotalMeasurements, achievement.OpGreaterThan, 99, true, 100},
		{"greater than boundary", achievement.MetricTotalMeasurements, achievement.OpGreaterThan, 100, false, 100},
		{"less than", achievement.MetricQualityScore, achievement.OpLessThan, 80, true, 75.5},
		{"greater than equal boundary", achievement.MetricConsecutiveDays, achievement.OpGreaterThanEqual, 7, true, 7},
		{"greater than equal not met", achievement.MetricConsecutiveDays, achievement.OpGreaterThanEqual, 8, false, 7},
		{"less than equal", achievement.MetricQualityScore, achievement.OpLessThanEqual, 75.5, true, 75.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &achievement.Requirement{Metric: tc.metric, Operator: tc.operator, Value: tc.value}
			eval, err := EvaluateRequirement(req, st)
			assert.NoError(t, err)
			assert.Equal(t, tc.wantMet, eval.IsMet)
			assert.Equal(t, tc.wantCur, eval.CurrentValue)
		})
	}

	t.Run("unknown metric", func(t *testing.T) {
		req := &achievement.Requirement{Metric: "karma", Operator: achievement.OpGreaterThan, Value: 1}
		_, err := EvaluateRequirement(req, st)
		assert.ErrorIs(t, err, errvalues.ErrUnknownMetric)
	})

	t.Run("unknown operator", func(t *testing.T) {
		req := &achievement.Requirement{Metric: achievement.MetricPoints, Operator: "APPROX", Value: 1}
		_, err := EvaluateRequirement(req, st)
		assert.ErrorIs(t, err, errvalues.ErrUnknownOperator)
	})
}

func TestCheckRequirementMet(t *testing.T) {
	st := &stats.UserStats{TotalMeasurements: 10}

	t.Run("met", func(t *testing.T) {
		req := &achievement.Requirement{Metric: achievement.MetricTotalMeasurements, Operator: achievement.OpGreaterThanEqual, Value: 10}
		assert.True(t, CheckRequirementMet(req, st))
	})

	t.Run("evaluation error counts as not met", func(t *testing.T) {
		req := &achievement.Requirement{Metric: "bogus", Operator: achievement.OpGreaterThan, Value: 1}
		assert.False(t, CheckRequirementMet(req, st))
	})
}

func TestAchievementProgress(t *testing.T) {
	t.Run("no requirements", func(t *testing.T) {
		progress, allMet := achievementProgress(nil, &stats.UserStats{})
		assert.Equal(t, 0, progress)
		assert.False(t, allMet)
	})

	t.Run("single requirement partial credit", func(t *testing.T) {
		reqs := []*achievement.Requirement{
			{Metric: achievement.MetricTotalMeasurements, Operator: achievement.OpGreaterThanEqual, Value: 10},
		}
		progress, allMet := achievementProgress(reqs, &stats.UserStats{TotalMeasurements: 5})
		assert.Equal(t, 50, progress)
		assert.False(t, allMet)
	})

	t.Run("single requirement met", func(t *testing.T) {
		reqs := []*achievement.Requirement{
			{Metric: achievement.MetricTotalMeasurements, Operator: achievement.OpGreaterThanEqual, Value: 10},
		}
		progress, allMet := achievementProgress(reqs, &stats.UserStats{TotalMeasurements: 25})
		assert.Equal(t, 100, progress)
		assert.True(t, allMet)
	})

	t.Run("partial credit capped below 100 when unmet", func(t *testing.T) {
		// A LESS_THAN requirement can have current > value without being met.
		reqs := []*achievement.Requirement{
			{Metric: achievement.MetricQualityScore, Operator: achievement.OpLessThan, Value: 50},
		}
		progress, allMet := achievementProgress(reqs, &stats.UserStats{QualityScore: 90})
		assert.Equal(t, 100, progress)
		assert.False(t, allMet)
	})

	t.Run("multi requirement share of met", func(t *testing.T) {
		reqs := []*achievement.Requirement{
			{Metric: achievement.MetricTotalMeasurements, Operator: achievement.OpGreaterThanEqual, Value: 10},
			{Metric: achievement.MetricRuralMeasurements, Operator: achievement.OpGreaterThanEqual, Value: 5},
		}
		st := &stats.UserStats{TotalMeasurements: 15, RuralMeasurements: 2}
		progress, allMet := achievementProgress(reqs, st)
		assert.Equal(t, 50, progress)
		assert.False(t, allMet)

		st.RuralMeasurements = 5
		progress, allMet = achievementProgress(reqs, st)
		assert.Equal(t, 100, progress)
		assert.True(t, allMet)
	})
}

func TestEvaluateTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewAchievementService(mock)
	ctx := context.Background()
	userID := uuid.New()
	achID := uuid.New()
	reqID := uuid.New()
	now := time.Now().UTC()

	candidateQuery := regexp.QuoteMeta(`FROM achievements a`)
	reqQuery := regexp.QuoteMeta(`FROM achievement_requirements`)
	upsertQuery := regexp.QuoteMeta(`INSERT INTO user_achievements`)

	candidateCols := []string{"id", "title", "icon", "points", "category"}
	reqCols := []string{"id", "achievement_id", "metric", "operator", "value", "description"}

	t.Run("unlocks when requirement met", func(t *testing.T) {
		mock.ExpectQuery(candidateQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(candidateCols).
				AddRow(achID, "Week Warrior", "flame", 50, achievement.CategoryStreak))
		mock.ExpectQuery(reqQuery).
			WillReturnRows(pgxmock.NewRows(reqCols).
				AddRow(reqID, achID, achievement.MetricConsecutiveDays, achievement.OpGreaterThanEqual, 7.0, nil))
		mock.ExpectExec(upsertQuery).
			WithArgs(pgxmock.AnyArg(), userID, achID, 100, true, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		st := &stats.UserStats{UserID: userID, ConsecutiveDays: 7}
		unlocked, points, err := svc.EvaluateTx(ctx, mock, userID, st, now)
		assert.NoError(t, err)
		assert.Len(t, unlocked, 1)
		assert.Equal(t, "Week Warrior", unlocked[0].Title)
		assert.Equal(t, achievement.CategoryStreak, unlocked[0].Category)
		assert.Equal(t, 50, points)
	})

	t.Run("records partial progress without unlocking", func(t *testing.T) {
		mock.ExpectQuery(candidateQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(candidateCols).
				AddRow(achID, "Week Warrior", "flame", 50, achievement.CategoryStreak))
		mock.ExpectQuery(reqQuery).
			WillReturnRows(pgxmock.NewRows(reqCols).
				AddRow(reqID, achID, achievement.MetricConsecutiveDays, achievement.OpGreaterThanEqual, 7.0, nil))
		mock.ExpectExec(upsertQuery).
			WithArgs(pgxmock.AnyArg(), userID, achID, 43, false, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		st := &stats.UserStats{UserID: userID, ConsecutiveDays: 3}
		unlocked, points, err := svc.EvaluateTx(ctx, mock, userID, st, now)
		assert.NoError(t, err)
		assert.Empty(t, unlocked)
		assert.Equal(t, 0, points)
	})

	t.Run("skips rows with zero progress", func(t *testing.T) {
		mock.ExpectQuery(candidateQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(candidateCols).
				AddRow(achID, "Week Warrior", "flame", 50, achievement.CategoryStreak))
		mock.ExpectQuery(reqQuery).
			WillReturnRows(pgxmock.NewRows(reqCols).
				AddRow(reqID, achID, achievement.MetricConsecutiveDays, achievement.OpGreaterThanEqual, 7.0, nil))

		st := &stats.UserStats{UserID: userID}
		unlocked, points, err := svc.EvaluateTx(ctx, mock, userID, st, now)
		assert.NoError(t, err)
		assert.Empty(t, unlocked)
		assert.Equal(t, 0, points)
	})

	t.Run("no candidates", func(t *testing.T) {
		mock.ExpectQuery(candidateQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(candidateCols))

		unlocked, points, err := svc.EvaluateTx(ctx, mock, userID, &stats.UserStats{UserID: userID}, now)
		assert.NoError(t, err)
		assert.Empty(t, unlocked)
		assert.Equal(t, 0, points)
	})
}

func TestStatsSnapshotDefaultsToZeros(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewAchievementService(mock)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM user_stats`)).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	st, err := svc.statsSnapshot(context.Background(), mock, userID)
	assert.NoError(t, err)
	assert.Equal(t, userID, st.UserID)
	assert.Equal(t, 0, st.TotalMeasurements)
}
