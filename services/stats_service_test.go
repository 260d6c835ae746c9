package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"

	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/stats"
)

var statsColNames = []string{
	"user_id", "total_measurements", "rural_measurements", "unique_locations",
	"total_distance_km", "contribution_score", "quality_score", "accuracy_rate",
	"verified_spots", "helpful_actions", "consecutive_days", "points", "created_at", "updated_at",
}

func statsRow(userID uuid.UUID, st *stats.UserStats, now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(statsColNames).AddRow(
		userID, st.TotalMeasurements, st.RuralMeasurements, st.UniqueLocations,
		st.TotalDistanceKM, st.ContributionScore, st.QualityScore, st.AccuracyRate,
		st.VerifiedSpots, st.HelpfulActions, st.ConsecutiveDays, st.Points, now, now,
	)
}

func TestGetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewStatsService(mock)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()
	query := regexp.QuoteMeta(`FROM user_stats`)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(statsRow(userID, &stats.UserStats{TotalMeasurements: 42, Points: 500}, now))

		st, err := svc.GetStats(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, 42, st.TotalMeasurements)
		assert.Equal(t, 500, st.Points)
	})

	t.Run("never contributed", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(pgx.ErrNoRows)

		st, err := svc.GetStats(ctx, userID)
		assert.NoError(t, err)
		assert.Nil(t, st)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(errors.New("db error"))

		_, err := svc.GetStats(ctx, userID)
		assert.Error(t, err)
	})
}

func TestUpdateStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewStatsService(mock)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	ensureQuery := regexp.QuoteMeta(`ON CONFLICT (user_id) DO NOTHING`)
	selectQuery := regexp.QuoteMeta(`FOR UPDATE`)
	updateQuery := regexp.QuoteMeta(`UPDATE user_stats`)

	t.Run("applies delta and recomputes contribution score", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(ensureQuery).
			WithArgs(userID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(selectQuery).
			WithArgs(userID).
			WillReturnRows(statsRow(userID, &stats.UserStats{TotalMeasurements: 9, UniqueLocations: 4}, now))
		mock.ExpectExec(updateQuery).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		updated, err := svc.UpdateStats(ctx, userID, &stats.Delta{Measurements: 1, UniqueLocations: 1})
		assert.NoError(t, err)
		assert.Equal(t, 10, updated.TotalMeasurements)
		assert.Equal(t, 5, updated.UniqueLocations)
		// 10 measurements + 5 unique locations * 1.5
		assert.InDelta(t, 17.5, updated.ContributionScore, 0.001)
	})

	t.Run("rural exceeding total is rejected before any write", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(ensureQuery).
			WithArgs(userID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(selectQuery).
			WithArgs(userID).
			WillReturnRows(statsRow(userID, &stats.UserStats{TotalMeasurements: 5, RuralMeasurements: 5}, now))
		mock.ExpectRollback()

		_, err := svc.UpdateStats(ctx, userID, &stats.Delta{RuralMeasurements: 1})
		assert.ErrorIs(t, err, errvalues.ErrValidation)
	})

	t.Run("quality score outside range is rejected", func(t *testing.T) {
		bad := 120.0
		mock.ExpectBegin()
		mock.ExpectExec(ensureQuery).
			WithArgs(userID, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(selectQuery).
			WithArgs(userID).
			WillReturnRows(statsRow(userID, &stats.UserStats{}, now))
		mock.ExpectRollback()

		_, err := svc.UpdateStats(ctx, userID, &stats.Delta{QualityScore: &bad})
		assert.ErrorIs(t, err, errvalues.ErrValidation)
	})
}

func TestResetStatsPreservesPoints(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	svc := NewStatsService(mock)
	userID := uuid.New()

	// The reset statement zeroes counters but never mentions the points column.
	mock.ExpectExec(`UPDATE user_stats\s+SET total_measurements = 0`).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, svc.ResetStats(context.Background(), userID))
}

func TestDeltaApply(t *testing.T) {
	quality := 80.0
	days := 3
	st := stats.UserStats{TotalMeasurements: 10, QualityScore: 60, ConsecutiveDays: 1}

	merged := st.Apply(&stats.Delta{Measurements: 2, QualityScore: &quality, ConsecutiveDays: &days})
	assert.Equal(t, 12, merged.TotalMeasurements)
	assert.Equal(t, 80.0, merged.QualityScore)
	assert.Equal(t, 3, merged.ConsecutiveDays)

	// nil pointers leave the stored value alone
	merged = st.Apply(&stats.Delta{Measurements: 1})
	assert.Equal(t, 60.0, merged.QualityScore)
	assert.Equal(t, 1, merged.ConsecutiveDays)
}
