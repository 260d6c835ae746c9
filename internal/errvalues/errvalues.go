package errvalues

import "errors"

var (
	// ErrValidation - a stats update would violate an invariant or range
	// constraint. Nothing is written when this is returned.
	ErrValidation = errors.New("stats validation failed")
	// ErrUnknownMetric - a requirement references a metric that is not a
	// recognized stats field. Catalog misconfiguration.
	ErrUnknownMetric = errors.New("unknown requirement metric")
	// ErrUnknownOperator - a requirement carries an unrecognized operator.
	ErrUnknownOperator = errors.New("unknown requirement operator")
	// ErrInvalidAmount - a negative point credit was requested.
	ErrInvalidAmount = errors.New("point amount must be non-negative")
	// ErrNotFound - a record that must exist does not.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTimeframe - leaderboard timeframe outside daily/weekly/monthly/allTime.
	ErrInvalidTimeframe = errors.New("invalid leaderboard timeframe")
)
