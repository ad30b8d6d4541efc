package checkup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/solace/internal/domain"
)

// DefaultIntervalDays is used when no valid interval is configured.
const DefaultIntervalDays = 14

// Store is the persistence the checkup package needs.
type Store interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	InsertCheckup(ctx context.Context, rec *domain.CheckupRecord) error
}

// IsDue reports whether a new cycle should start. A nil last date means a
// checkup never ran. Elapsed time is counted in whole days, truncated.
func IsDue(now time.Time, last *time.Time, intervalDays int) bool {
	if last == nil {
		return true
	}
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	return WholeDays(*last, now) >= intervalDays
}

// WholeDays returns the number of complete 24h periods from start to end.
// The result is negative when end precedes start.
func WholeDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}

// Scheduler decides when a checkup is due based on the stored last date.
type Scheduler struct {
	store        Store
	intervalDays int
	now          func() time.Time
	logger       *slog.Logger
}

// NewScheduler creates a scheduler. A non-positive interval uses DefaultIntervalDays.
func NewScheduler(store Store, intervalDays int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	return &Scheduler{
		store:        store,
		intervalDays: intervalDays,
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// IntervalDays returns the effective interval.
func (s *Scheduler) IntervalDays() int {
	return s.intervalDays
}

// LastCheckup returns the stored completion time, or nil when it is absent,
// unreadable or malformed.
func (s *Scheduler) LastCheckup(ctx context.Context) *time.Time {
	raw, ok, err := s.store.GetValue(ctx, domain.LastCheckupKey)
	if err != nil {
		s.logger.Warn("Failed to read last checkup date, treating as absent", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("Malformed last checkup date, treating as absent", "value", raw, "error", err)
		return nil
	}
	return &last
}

// Due reports whether a checkup cycle should start now.
func (s *Scheduler) Due(ctx context.Context) bool {
	return IsDue(s.now(), s.LastCheckup(ctx), s.intervalDays)
}

// MarkCompleted stores at as the last checkup date.
func (s *Scheduler) MarkCompleted(ctx context.Context, at time.Time) error {
	if err := s.store.SetValue(ctx, domain.LastCheckupKey, at.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save checkup date: %w", err)
	}
	return nil
}
