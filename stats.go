package main

import (
	"fmt"

	"gorm.io/gorm"
)

// DatabaseStats is the global totals snapshot for the admin surface.
type DatabaseStats struct {
	ActiveConnections int64
	TotalMessages     int64
	TotalServers      int64
}

func getDatabaseStats(db *gorm.DB) (DatabaseStats, error) {
	var stats DatabaseStats

	err := db.Model(&Connection{}).Where("active = ?", true).Count(&stats.ActiveConnections).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count active connections: %w", err)
	}
	if err := db.Model(&MessageLogEntry{}).Count(&stats.TotalMessages).Error; err != nil {
		return stats, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := db.Model(&ServerSettings{}).Count(&stats.TotalServers).Error; err != nil {
		return stats, fmt.Errorf("failed to count servers: %w", err)
	}

	return stats, nil
}

// MessageStats aggregates the message log for one connection over a recent
// day window.
type MessageStats struct {
	TotalMessages int64
	UniqueUsers   int64
}

func getMessageStats(db *gorm.DB, clock Clock, connectionID uint, days int) (MessageStats, error) {
	var stats MessageStats
	cutoff := clock.Now().AddDate(0, 0, -days)

	base := db.Model(&MessageLogEntry{}).
		Where("connection_id = ? AND timestamp >= ?", connectionID, cutoff)

	if err := base.Count(&stats.TotalMessages).Error; err != nil {
		return stats, fmt.Errorf("failed to count messages for connection %d: %w", connectionID, err)
	}
	err := db.Model(&MessageLogEntry{}).
		Where("connection_id = ? AND timestamp >= ?", connectionID, cutoff).
		Distinct("author_id").
		Count(&stats.UniqueUsers).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count unique users for connection %d: %w", connectionID, err)
	}

	return stats, nil
}
