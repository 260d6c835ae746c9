package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"signalMapAPI/internal/database"
	"signalMapAPI/internal/errvalues"
	"signalMapAPI/internal/types/measurement"
	"signalMapAPI/internal/types/stats"
	"signalMapAPI/utils"
)

// goodFixThresholdM is the GPS accuracy below which a measurement counts as a
// good fix for the accuracy rate.
const goodFixThresholdM = 50

type MeasurementService struct {
	db           database.PgConnection
	stats        *StatsService
	achievements *AchievementService
	points       *PointsService
	notifier     utils.NotificationCreator
}

func NewMeasurementService(db database.PgConnection, stats *StatsService, achievements *AchievementService, points *PointsService) *MeasurementService {
	return &MeasurementService{db: db, stats: stats, achievements: achievements, points: points}
}

func (s *MeasurementService) SetNotifier(n utils.NotificationCreator) {
	s.notifier = n
}

// Geocell collapses a coordinate to a ~100m grid key used to detect repeat
// locations. It is a dedup key, not a spatial index.
func Geocell(lat, lon float64) string {
	return fmt.Sprintf("%.3f:%.3f", lat, lon)
}

// ProcessMeasurement persists the measurement, folds it into the user's
// stats, evaluates achievements and credits their points, all in one
// transaction scoped to the user's rows.
func (s *MeasurementService) ProcessMeasurement(ctx context.Context, userID uuid.UUID, req *measurement.SubmitRequest) (*measurement.SubmitResponse, error) {
	if err := validateSubmitRequest(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	measuredAt := now
	if req.MeasuredAt != nil {
		measuredAt = req.MeasuredAt.UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin measurement: %w", err)
	}
	defer tx.Rollback(ctx)

	cell := Geocell(req.Latitude, req.Longitude)

	var seenCell bool
	existsQuery := `SELECT EXISTS(SELECT 1 FROM measurements WHERE user_id = $1 AND geocell = $2)`
	if err := tx.QueryRow(ctx, existsQuery, userID, cell).Scan(&seenCell); err != nil {
		return nil, fmt.Errorf("failed to check geocell: %w", err)
	}

	m := &measurement.Measurement{
		ID:             uuid.New(),
		UserID:         userID,
		SignalStrength: req.SignalStrength,
		Technology:     req.Technology,
		Provider:       req.Provider,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		AccuracyM:      req.AccuracyM,
		Geocell:        cell,
		Rural:          req.Rural,
		MeasuredAt:     measuredAt,
		CreatedAt:      now,
	}

	insertQuery := `
	INSERT INTO measurements (id, user_id, signal_strength, technology, provider, latitude, longitude, accuracy_m, geocell, rural, measured_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, insertQuery,
		m.ID, m.UserID, m.SignalStrength, m.Technology, m.Provider,
		m.Latitude, m.Longitude, m.AccuracyM, m.Geocell, m.Rural, m.MeasuredAt, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert measurement: %w", err)
	}

	current, err := s.stats.LockTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	delta := measurementDelta(current, req, !seenCell)

	updated, err := s.stats.ApplyTx(ctx, tx, current, delta, now)
	if err != nil {
		return nil, err
	}

	unlocked, achievementPoints, err := s.achievements.EvaluateTx(ctx, tx, userID, updated, now)
	if err != nil {
		return nil, err
	}

	if achievementPoints > 0 {
		total, err := s.points.CreditTx(ctx, tx, userID, achievementPoints, now)
		if err != nil {
			return nil, err
		}
		updated.Points = total
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit measurement: %w", err)
	}

	if s.notifier != nil && len(unlocked) > 0 {
		go utils.AchievementsUnlocked(s.notifier, userID, unlocked)
	}

	log.Printf("ProcessMeasurement: user %s total=%d unlocked=%d", userID, updated.TotalMeasurements, len(unlocked))

	return &measurement.SubmitResponse{
		Measurement:  m,
		Stats:        updated,
		Unlocked:     unlocked,
		PointsEarned: achievementPoints,
	}, nil
}

// ReportHotspot records a WiFi hotspot report and feeds the verified-spot and
// helpful-action counters through the same pipeline.
func (s *MeasurementService) ReportHotspot(ctx context.Context, userID uuid.UUID, req *measurement.HotspotRequest) (*measurement.HotspotResponse, error) {
	if req.SSID == "" {
		return nil, fmt.Errorf("%w: ssid is required", errvalues.ErrValidation)
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin hotspot report: %w", err)
	}
	defer tx.Rollback(ctx)

	h := &measurement.Hotspot{
		ID:        uuid.New(),
		UserID:    userID,
		SSID:      req.SSID,
		Security:  req.Security,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Verified:  req.Verified,
		CreatedAt: now,
	}

	insertQuery := `
	INSERT INTO wifi_hotspots (id, user_id, ssid, security, latitude, longitude, verified, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, insertQuery, h.ID, h.UserID, h.SSID, h.Security, h.Latitude, h.Longitude, h.Verified, h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert hotspot: %w", err)
	}

	current, err := s.stats.LockTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	delta := &stats.Delta{HelpfulActions: 1}
	if req.Verified {
		delta.VerifiedSpots = 1
	}

	updated, err := s.stats.ApplyTx(ctx, tx, current, delta, now)
	if err != nil {
		return nil, err
	}

	unlocked, achievementPoints, err := s.achievements.EvaluateTx(ctx, tx, userID, updated, now)
	if err != nil {
		return nil, err
	}

	if achievementPoints > 0 {
		total, err := s.points.CreditTx(ctx, tx, userID, achievementPoints, now)
		if err != nil {
			return nil, err
		}
		updated.Points = total
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit hotspot report: %w", err)
	}

	if s.notifier != nil && len(unlocked) > 0 {
		go utils.AchievementsUnlocked(s.notifier, userID, unlocked)
	}

	return &measurement.HotspotResponse{Hotspot: h, Stats: updated, Unlocked: unlocked}, nil
}

// measurementDelta derives the stats delta for one measurement, including the
// running quality and accuracy averages.
func measurementDelta(current *stats.UserStats, req *measurement.SubmitRequest, newLocation bool) *stats.Delta {
	n := float64(current.TotalMeasurements)

	qualitySample := 100 - req.AccuracyM
	if qualitySample < 0 {
		qualitySample = 0
	}
	if qualitySample > 100 {
		qualitySample = 100
	}
	newQuality := (current.QualityScore*n + qualitySample) / (n + 1)

	fixSample := 0.0
	if req.AccuracyM <= goodFixThresholdM {
		fixSample = 100
	}
	newAccuracy := (current.AccuracyRate*n + fixSample) / (n + 1)

	delta := &stats.Delta{
		Measurements: 1,
		DistanceKM:   req.DistanceKM,
		QualityScore: &newQuality,
		AccuracyRate: &newAccuracy,
	}
	if req.Rural {
		delta.RuralMeasurements = 1
	}
	if newLocation {
		delta.UniqueLocations = 1
	}
	return delta
}

func validateSubmitRequest(req *measurement.SubmitRequest) error {
	if !req.Technology.Valid() {
		return fmt.Errorf("%w: unknown technology %q", errvalues.ErrValidation, req.Technology)
	}
	if req.Provider == "" {
		return fmt.Errorf("%w: provider is required", errvalues.ErrValidation)
	}
	if req.Technology != measurement.TechWiFi && (req.SignalStrength < -140 || req.SignalStrength > -20) {
		return fmt.Errorf("%w: signal_strength %d dBm out of range", errvalues.ErrValidation, req.SignalStrength)
	}
	if req.AccuracyM < 0 {
		return fmt.Errorf("%w: accuracy_m must be non-negative", errvalues.ErrValidation)
	}
	if req.DistanceKM < 0 {
		return fmt.Errorf("%w: distance_km must be non-negative", errvalues.ErrValidation)
	}
	return validateCoordinates(req.Latitude, req.Longitude)
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %.6f out of range", errvalues.ErrValidation, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %.6f out of range", errvalues.ErrValidation, lon)
	}
	return nil
}
