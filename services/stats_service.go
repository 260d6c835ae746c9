package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"signalMapAPI/internal/database"
	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/stats"
	"signalMapAPI/utils"
)

type StatsService struct {
	db database.PgConnection
}

func NewStatsService(db database.PgConnection) *StatsService {
	return &StatsService{db: db}
}

const statsColumns = `user_id, total_measurements, rural_measurements, unique_locations,
		total_distance_km, contribution_score, quality_score, accuracy_rate,
		verified_spots, helpful_actions, consecutive_days, points, created_at, updated_at`

func scanStats(row pgx.Row) (*stats.UserStats, error) {
	st := &stats.UserStats{}
	err := row.Scan(
		&st.UserID,
		&st.TotalMeasurements,
		&st.RuralMeasurements,
		&st.UniqueLocations,
		&st.TotalDistanceKM,
		&st.ContributionScore,
		&st.QualityScore,
		&st.AccuracyRate,
		&st.VerifiedSpots,
		&st.HelpfulActions,
		&st.ConsecutiveDays,
		&st.Points,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetStats returns nil (not an error) for a user that never contributed.
func (s *StatsService) GetStats(ctx context.Context, userID uuid.UUID) (*stats.UserStats, error) {
	query := `
	SELECT ` + statsColumns + `
	FROM user_stats
	WHERE user_id = $1
	`

	st, err := scanStats(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return st, nil
}

// LockTx lazily creates the user's stats row and loads it under FOR UPDATE.
// Must run inside a transaction.
func (s *StatsService) LockTx(ctx context.Context, q database.Querier, userID uuid.UUID, now time.Time) (*stats.UserStats, error) {
	insertQuery := `
	INSERT INTO user_stats (user_id, created_at, updated_at)
	VALUES ($1, $2, $2)
	ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := q.Exec(ctx, insertQuery, userID, now); err != nil {
		return nil, fmt.Errorf("failed to ensure stats row: %w", err)
	}

	selectQuery := `
	SELECT ` + statsColumns + `
	FROM user_stats
	WHERE user_id = $1
	FOR UPDATE
	`

	st, err := scanStats(q.QueryRow(ctx, selectQuery, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock stats row: %w", err)
	}

	return st, nil
}

// ApplyTx merges the delta into current, validates the merged result and
// persists it. The caller's transaction is left untouched on validation
// failure, so nothing partial can land.
func (s *StatsService) ApplyTx(ctx context.Context, q database.Querier, current *stats.UserStats, delta *stats.Delta, now time.Time) (*stats.UserStats, error) {
	merged := current.Apply(delta)
	merged.ContributionScore = utils.CalculateContributionScore(
		merged.TotalMeasurements,
		merged.RuralMeasurements,
		merged.UniqueLocations,
		merged.VerifiedSpots,
		merged.HelpfulActions,
		merged.TotalDistanceKM,
	)
	merged.UpdatedAt = now

	if err := validateStats(&merged); err != nil {
		return nil, err
	}

	query := `
	UPDATE user_stats
	SET total_measurements = $2,
		rural_measurements = $3,
		unique_locations = $4,
		total_distance_km = $5,
		contribution_score = $6,
		quality_score = $7,
		accuracy_rate = $8,
		verified_spots = $9,
		helpful_actions = $10,
		consecutive_days = $11,
		updated_at = $12
	WHERE user_id = $1
	`

	_, err := q.Exec(ctx, query,
		merged.UserID,
		merged.TotalMeasurements,
		merged.RuralMeasurements,
		merged.UniqueLocations,
		merged.TotalDistanceKM,
		merged.ContributionScore,
		merged.QualityScore,
		merged.AccuracyRate,
		merged.VerifiedSpots,
		merged.HelpfulActions,
		merged.ConsecutiveDays,
		merged.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}

	return &merged, nil
}

// UpdateStats applies a delta in its own transaction.
func (s *StatsService) UpdateStats(ctx context.Context, userID uuid.UUID, delta *stats.Delta) (*stats.UserStats, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin stats update: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	current, err := s.LockTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	updated, err := s.ApplyTx(ctx, tx, current, delta, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stats update: %w", err)
	}

	return updated, nil
}

// ResetStats zeroes the contribution counters and scores. Points stay: the
// ledger is monotonic and a reset is not a debit. No-op for unknown users.
func (s *StatsService) ResetStats(ctx context.Context, userID uuid.UUID) error {
	query := `
	UPDATE user_stats
	SET total_measurements = 0,
		rural_measurements = 0,
		unique_locations = 0,
		total_distance_km = 0,
		contribution_score = 0,
		quality_score = 0,
		accuracy_rate = 0,
		verified_spots = 0,
		helpful_actions = 0,
		consecutive_days = 0,
		updated_at = $2
	WHERE user_id = $1
	`

	_, err := s.db.Exec(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reset stats: %w", err)
	}

	return nil
}

func validateStats(st *stats.UserStats) error {
	if st.RuralMeasurements > st.TotalMeasurements {
		return fmt.Errorf("%w: rural_measurements (%d) exceeds total_measurements (%d)",
			errvalues.ErrValidation, st.RuralMeasurements, st.TotalMeasurements)
	}
	if st.QualityScore < 0 || st.QualityScore > 100 {
		return fmt.Errorf("%w: quality_score %.2f outside [0,100]", errvalues.ErrValidation, st.QualityScore)
	}
	if st.AccuracyRate < 0 || st.AccuracyRate > 100 {
		return fmt.Errorf("%w: accuracy_rate %.2f outside [0,100]", errvalues.ErrValidation, st.AccuracyRate)
	}
	if st.TotalMeasurements < 0 || st.RuralMeasurements < 0 || st.UniqueLocations < 0 ||
		st.VerifiedSpots < 0 || st.HelpfulActions < 0 || st.ConsecutiveDays < 0 {
		return fmt.Errorf("%w: counters must be non-negative", errvalues.ErrValidation)
	}
	if st.TotalDistanceKM < 0 {
		return fmt.Errorf("%w: total_distance_km must be non-negative", errvalues.ErrValidation)
	}
	if st.Points < 0 {
		return fmt.Errorf("%w: points must be non-negative", errvalues.ErrValidation)
	}
	return nil
}
