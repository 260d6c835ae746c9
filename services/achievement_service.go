package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"signalMapAPI/internal/database"
	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/achievement"
	"signalMapAPI/internal/types/stats"
)

type AchievementService struct {
	db database.PgConnection
}

func NewAchievementService(db database.PgConnection) *AchievementService {
	return &AchievementService{db: db}
}

type Evaluation struct {
	IsMet        bool    `json:"is_met"`
	CurrentValue float64 `json:"current_value"`
}

// EvaluateRequirement compares one requirement against a stats snapshot. Pure,
// no storage access.
func EvaluateRequirement(req *achievement.Requirement, st *stats.UserStats) (*Evaluation, error) {
	current, err := statValue(req.Metric, st)
	if err != nil {
		return nil, err
	}

	var met bool
	switch req.Operator {
	case achievement.OpEqual:
		met = current == req.Value
	case achievement.OpNotEqual:
		met = current != req.Value
	case achievement.OpGreaterThan:
		met = current > req.Value
	case achievement.OpLessThan:
		met = current < req.Value
	case achievement.OpGreaterThanEqual:
		met = current >= req.Value
	case achievement.OpLessThanEqual:
		met = current <= req.Value
	default:
		return nil, fmt.Errorf("%w: %q", errvalues.ErrUnknownOperator, req.Operator)
	}

	return &Evaluation{IsMet: met, CurrentValue: current}, nil
}

// CheckRequirementMet is the boolean convenience wrapper. Evaluation failures
// count as not met instead of propagating.
func CheckRequirementMet(req *achievement.Requirement, st *stats.UserStats) bool {
	eval, err := EvaluateRequirement(req, st)
	if err != nil {
		log.Printf("CheckRequirementMet: skipping requirement %s: %v", req.ID, err)
		return false
	}
	return eval.IsMet
}

func statValue(metric achievement.Metric, st *stats.UserStats) (float64, error) {
	switch metric {
	case achievement.MetricTotalMeasurements:
		return float64(st.TotalMeasurements), nil
	case achievement.MetricRuralMeasurements:
		return float64(st.RuralMeasurements), nil
	case achievement.MetricUniqueLocations:
		return float64(st.UniqueLocations), nil
	case achievement.MetricTotalDistance:
		return st.TotalDistanceKM, nil
	case achievement.MetricContributionScore:
		return st.ContributionScore, nil
	case achievement.MetricQualityScore:
		return st.QualityScore, nil
	case achievement.MetricAccuracyRate:
		return st.AccuracyRate, nil
	case achievement.MetricVerifiedSpots:
		return float64(st.VerifiedSpots), nil
	case achievement.MetricHelpfulActions:
		return float64(st.HelpfulActions), nil
	case achievement.MetricConsecutiveDays:
		return float64(st.ConsecutiveDays), nil
	case achievement.MetricPoints:
		return float64(st.Points), nil
	default:
		return 0, fmt.Errorf("%w: %q", errvalues.ErrUnknownMetric, metric)
	}
}

// achievementProgress returns 0-100. Multi-requirement achievements report the
// share of requirements met; single-requirement ones get ratio partial credit.
func achievementProgress(reqs []*achievement.Requirement, st *stats.UserStats) (int, bool) {
	if len(reqs) == 0 {
		return 0, false
	}

	if len(reqs) == 1 {
		eval, err := EvaluateRequirement(reqs[0], st)
		if err != nil {
			return 0, false
		}
		if eval.IsMet {
			return 100, true
		}
		if reqs[0].Value <= 0 {
			return 0, false
		}
		pct := int(math.Round(eval.CurrentValue / reqs[0].Value * 100))
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
		return pct, false
	}

	met := 0
	for _, r := range reqs {
		if CheckRequirementMet(r, st) {
			met++
		}
	}
	return int(math.Round(float64(met) / float64(len(reqs)) * 100)), met == len(reqs)
}

// GetAchievements returns the whole catalog with the user's live progress.
func (s *AchievementService) GetAchievements(ctx context.Context, userID uuid.UUID) ([]*achievement.AchievementWithProgress, error) {
	query := `
	SELECT a.id, a.title, a.description, a.icon, a.points, a.rarity, a.tier, a.category, a.created_at,
		COALESCE(ua.progress, 0) as progress,
		COALESCE(ua.completed, false) as completed,
		ua.unlocked_at
	FROM achievements a
	LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
	ORDER BY completed DESC, a.category, a.tier
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithProgress
	byID := make(map[uuid.UUID]*achievement.AchievementWithProgress)

	for rows.Next() {
		ach := &achievement.AchievementWithProgress{}
		err := rows.Scan(
			&ach.ID,
			&ach.Title,
			&ach.Description,
			&ach.Icon,
			&ach.Points,
			&ach.Rarity,
			&ach.Tier,
			&ach.Category,
			&ach.CreatedAt,
			&ach.Progress,
			&ach.Completed,
			&ach.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, ach)
		byID[ach.ID] = ach
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	if err := s.attachRequirements(ctx, byID); err != nil {
		return nil, err
	}

	// Recompute live progress for anything not yet completed.
	st, err := s.statsSnapshot(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	for _, ach := range achievements {
		if ach.Completed {
			ach.Progress = 100
			continue
		}
		progress, _ := achievementProgress(ach.Requirements, st)
		if progress > ach.Progress {
			ach.Progress = progress
		}
	}

	return achievements, nil
}

func (s *AchievementService) attachRequirements(ctx context.Context, byID map[uuid.UUID]*achievement.AchievementWithProgress) error {
	query := `
	SELECT id, achievement_id, metric, operator, value, description
	FROM achievement_requirements
	ORDER BY achievement_id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to fetch requirements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		req := &achievement.Requirement{}
		if err := rows.Scan(&req.ID, &req.AchievementID, &req.Metric, &req.Operator, &req.Value, &req.Description); err != nil {
			return fmt.Errorf("failed to scan requirement: %w", err)
		}
		if ach, ok := byID[req.AchievementID]; ok {
			ach.Requirements = append(ach.Requirements, req)
		}
	}
	return rows.Err()
}

func (s *AchievementService) statsSnapshot(ctx context.Context, q database.Querier, userID uuid.UUID) (*stats.UserStats, error) {
	query := `
	SELECT ` + statsColumns + `
	FROM user_stats
	WHERE user_id = $1
	`

	st, err := scanStats(q.QueryRow(ctx, query, userID))
	if err != nil {
		// Never contributed: evaluate against zeros.
		return &stats.UserStats{UserID: userID}, nil
	}
	return st, nil
}

type candidate struct {
	id           uuid.UUID
	title        string
	icon         string
	points       int
	category     achievement.Category
	requirements []*achievement.Requirement
}

// EvaluateTx re-evaluates every not-yet-completed achievement against the
// given stats snapshot inside the caller's transaction. Newly completed ones
// are marked unlocked and returned with the sum of their point values; the
// caller credits those points through the ledger in the same transaction.
// Completed rows are terminal and never touched again, so re-running for an
// already unlocked achievement is a no-op. A malformed requirement only takes
// down its own achievement.
func (s *AchievementService) EvaluateTx(ctx context.Context, q database.Querier, userID uuid.UUID, st *stats.UserStats, now time.Time) ([]*achievement.Unlocked, int, error) {
	candidates, err := s.loadCandidates(ctx, q, userID)
	if err != nil {
		return nil, 0, err
	}

	upsertQuery := `
	INSERT INTO user_achievements (id, user_id, achievement_id, progress, completed, unlocked_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, achievement_id) DO UPDATE
	SET progress = EXCLUDED.progress,
		completed = EXCLUDED.completed,
		unlocked_at = COALESCE(user_achievements.unlocked_at, EXCLUDED.unlocked_at)
	WHERE user_achievements.completed = false
	`

	var unlocked []*achievement.Unlocked
	totalPoints := 0

	for _, c := range candidates {
		progress, allMet := achievementProgress(c.requirements, st)
		if progress == 0 && !allMet {
			// Per-user record is created on first progress, not before.
			continue
		}

		var unlockedAt *time.Time
		if allMet {
			unlockedAt = &now
			progress = 100
		}

		_, err := q.Exec(ctx, upsertQuery, uuid.New(), userID, c.id, progress, allMet, unlockedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to upsert achievement progress: %w", err)
		}

		if allMet {
			unlocked = append(unlocked, &achievement.Unlocked{
				ID:         c.id,
				Title:      c.title,
				Icon:       c.icon,
				Points:     c.points,
				Category:   c.category,
				UnlockedAt: now,
			})
			totalPoints += c.points
		}
	}

	return unlocked, totalPoints, nil
}

func (s *AchievementService) loadCandidates(ctx context.Context, q database.Querier, userID uuid.UUID) ([]*candidate, error) {
	query := `
	SELECT a.id, a.title, a.icon, a.points, a.category
	FROM achievements a
	LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
	WHERE COALESCE(ua.completed, false) = false
	ORDER BY a.tier, a.id
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*candidate
	byID := make(map[uuid.UUID]*candidate)
	for rows.Next() {
		c := &candidate{}
		if err := rows.Scan(&c.id, &c.title, &c.icon, &c.points, &c.category); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
		byID[c.id] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	reqQuery := `
	SELECT id, achievement_id, metric, operator, value, description
	FROM achievement_requirements
	ORDER BY achievement_id
	`

	reqRows, err := q.Query(ctx, reqQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load requirements: %w", err)
	}
	defer reqRows.Close()

	for reqRows.Next() {
		req := &achievement.Requirement{}
		if err := reqRows.Scan(&req.ID, &req.AchievementID, &req.Metric, &req.Operator, &req.Value, &req.Description); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		if c, ok := byID[req.AchievementID]; ok {
			c.requirements = append(c.requirements, req)
		}
	}
	if err := reqRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirements: %w", err)
	}

	return candidates, nil
}
