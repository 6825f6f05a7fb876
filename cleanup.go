package main

import (
	"fmt"

	"gorm.io/gorm"
)

// Retention sweeps shorter than a week would erase counters that are still
// useful when investigating abuse reports.
const minRetentionDays = 7

// RetentionSweeper deletes spam tracking rows whose window expired long
// ago. Connections and the message log are never touched: connection rows
// are soft-deleted only, and provenance records are kept for audit.
type RetentionSweeper struct {
	db    *gorm.DB
	clock Clock
	days  int
}

func NewRetentionSweeper(db *gorm.DB, cfg *Config, clock Clock) *RetentionSweeper {
	return &RetentionSweeper{db: db, clock: clock, days: cfg.RetentionDays}
}

// Run sweeps with the configured retention window. Used by the scheduler.
func (s *RetentionSweeper) Run() {
	if _, err := s.Sweep(s.days); err != nil {
		ErrorLogger.Printf("Retention sweep failed: %v", err)
	}
}

// Sweep deletes spam tracking entries older than the given number of days
// and returns how many rows were removed.
func (s *RetentionSweeper) Sweep(days int) (int64, error) {
	if days < minRetentionDays {
		return 0, fmt.Errorf("retention period must be at least %d days, got %d", minRetentionDays, days)
	}

	cutoff := s.clock.Now().AddDate(0, 0, -days)
	res := s.db.Where("last_message_time < ?", cutoff).Delete(&SpamTracking{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep spam tracking entries: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		InfoLogger.Printf("Retention sweep removed %d spam tracking entries older than %d days", res.RowsAffected, days)
	}
	return res.RowsAffected, nil
}
