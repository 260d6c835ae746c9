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

	"signalMapAPI/internal/types/leaderboard"
)

func TestStreakMultiplier(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{0, 1},
		{1, 1},
		{6, 1},
		{7, 1.5},
		{13, 1.5},
		{14, 2},
		{29, 2},
		{30, 3},
		{89, 3},
		{90, 4},
		{364, 4},
		{365, 5},
		{1000, 5},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StreakMultiplier(tc.days), "days=%d", tc.days)
	}
}

var (
	streakCols    = []string{"user_id", "current_streak", "longest_streak", "last_checkin", "created_at", "updated_at"}
	lockQuery     = regexp.QuoteMeta(`FROM user_streaks`)
	updateQuery   = regexp.QuoteMeta(`UPDATE user_streaks`)
	mirrorQuery   = regexp.QuoteMeta(`consecutive_days, created_at`)
	snapshotQuery = regexp.QuoteMeta(`FROM user_stats`)
	catalogQuery  = regexp.QuoteMeta(`FROM achievements a`)
	creditQuery   = regexp.QuoteMeta(`points, created_at`)
	fanOutQuery   = regexp.QuoteMeta(`INSERT INTO leaderboard_entries`)
)

func newStreakServiceWithMock(t *testing.T) (*StreakService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	achievements := NewAchievementService(mock)
	points := NewPointsService(mock)
	return NewStreakService(mock, achievements, points), mock
}

// expectAwardPipeline covers everything after the streak row mutation:
// the stats mirror, achievement evaluation with no candidates, and the
// point credit with its leaderboard fan-out.
func expectAwardPipeline(mock pgxmock.PgxPoolIface, userID uuid.UUID, newCurrent, points int) {
	mock.ExpectExec(mirrorQuery).
		WithArgs(userID, newCurrent, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(snapshotQuery).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(catalogQuery).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "icon", "points", "category"}))
	mock.ExpectQuery(creditQuery).
		WithArgs(userID, points, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"points"}).AddRow(points))
	for _, tf := range []leaderboard.Timeframe{
		leaderboard.TimeframeDaily,
		leaderboard.TimeframeWeekly,
		leaderboard.TimeframeMonthly,
		leaderboard.TimeframeAllTime,
	} {
		mock.ExpectExec(fanOutQuery).
			WithArgs(userID, tf, points, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
}

func TestUpdateStreakFirstCheckin(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs(userID).WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_streaks`)).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(updateQuery).
		WithArgs(userID, 1, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectAwardPipeline(mock, userID, 1, 10)
	mock.ExpectCommit()

	result, err := svc.UpdateStreak(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, 1, result.Streak.LongestStreak)
	assert.Equal(t, 10, result.PointsEarned)
	assert.Equal(t, 1.0, result.Multiplier)
}

func TestUpdateStreakSameDayIsNoOp(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(streakCols).
			AddRow(userID, 4, 9, &now, now, now))
	mock.ExpectCommit()

	result, err := svc.UpdateStreak(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.PointsEarned)
	assert.Equal(t, 4, result.Streak.CurrentStreak)
	assert.Equal(t, 9, result.Streak.LongestStreak)
	assert.Empty(t, result.Achievements)
}

func TestUpdateStreakContinuesFromYesterday(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(streakCols).
			AddRow(userID, 6, 6, &yesterday, yesterday, yesterday))
	mock.ExpectExec(updateQuery).
		WithArgs(userID, 7, 7, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// Day 7 crosses the first multiplier tier: 10 * 1.5.
	expectAwardPipeline(mock, userID, 7, 15)
	mock.ExpectCommit()

	result, err := svc.UpdateStreak(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 7, result.Streak.CurrentStreak)
	assert.Equal(t, 7, result.Streak.LongestStreak)
	assert.Equal(t, 15, result.PointsEarned)
	assert.Equal(t, 1.5, result.Multiplier)
}

func TestUpdateStreakRestartsAfterGap(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()
	threeDaysAgo := time.Now().UTC().AddDate(0, 0, -3)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(streakCols).
			AddRow(userID, 10, 12, &threeDaysAgo, threeDaysAgo, threeDaysAgo))
	mock.ExpectExec(updateQuery).
		WithArgs(userID, 1, 12, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectAwardPipeline(mock, userID, 1, 10)
	mock.ExpectCommit()

	result, err := svc.UpdateStreak(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, 12, result.Streak.LongestStreak, "longest survives the reset")
	assert.Equal(t, 10, result.PointsEarned)
}

func TestGetStreakStatus(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()
	statusQuery := regexp.QuoteMeta(`SELECT current_streak, longest_streak, last_checkin`)

	t.Run("no streak row yet", func(t *testing.T) {
		mock.ExpectQuery(statusQuery).WithArgs(userID).WillReturnError(pgx.ErrNoRows)

		status, err := svc.GetStreakStatus(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, 0, status.CurrentStreak)
		assert.True(t, status.CanCheckInToday)
		assert.Equal(t, 1.0, status.Multiplier)
	})

	t.Run("already checked in today", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(statusQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"current_streak", "longest_streak", "last_checkin"}).
				AddRow(14, 20, &now))

		status, err := svc.GetStreakStatus(ctx, userID)
		assert.NoError(t, err)
		assert.False(t, status.CanCheckInToday)
		assert.Equal(t, 2.0, status.Multiplier)
	})

	t.Run("checked in yesterday", func(t *testing.T) {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		mock.ExpectQuery(statusQuery).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"current_streak", "longest_streak", "last_checkin"}).
				AddRow(3, 5, &yesterday))

		status, err := svc.GetStreakStatus(ctx, userID)
		assert.NoError(t, err)
		assert.True(t, status.CanCheckInToday)
		assert.Equal(t, 1.0, status.Multiplier)
	})
}

func TestResetStreak(t *testing.T) {
	svc, mock := newStreakServiceWithMock(t)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO user_streaks`)).
		WithArgs(userID, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(streakCols).
			AddRow(userID, 0, 21, &now, now, now))

	st, err := svc.ResetStreak(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 21, st.LongestStreak)
}
