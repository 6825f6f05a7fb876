package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// SpamTracker maintains one sliding-window counter per (user, server,
// channel). Calls for the same key are serialized through a per-key mutex so
// the read-modify-write on the counter row never loses updates; calls for
// different keys do not contend.
type SpamTracker struct {
	db        *gorm.DB
	clock     Clock
	threshold int
	window    time.Duration

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewSpamTracker(db *gorm.DB, cfg *Config, clock Clock) *SpamTracker {
	return &SpamTracker{
		db:        db,
		clock:     clock,
		threshold: cfg.SpamThreshold,
		window:    cfg.SpamTimeWindow,
		keyLocks:  make(map[string]*sync.Mutex),
	}
}

func (t *SpamTracker) keyLock(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		t.keyLocks[key] = lock
	}
	return lock
}

// RecordAndCheck counts one message for the key and returns the post-update
// count together with the block decision. A blocked user stays blocked until
// the window expires naturally; a message after expiry starts a fresh window
// at count 1.
func (t *SpamTracker) RecordAndCheck(userID, serverID, channelID string) (int, bool, error) {
	key := userID + "/" + serverID + "/" + channelID
	lock := t.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := t.clock.Now()

	var entry SpamTracking
	err := t.db.Where("user_id = ? AND server_id = ? AND channel_id = ?",
		userID, serverID, channelID).First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = SpamTracking{
			UserID:           userID,
			ServerID:         serverID,
			ChannelID:        channelID,
			MessageCount:     1,
			FirstMessageTime: now,
			LastMessageTime:  now,
			Blocked:          false,
		}
		if err := t.db.Create(&entry).Error; err != nil {
			return 0, false, fmt.Errorf("failed to create spam tracking entry: %w", err)
		}
		return 1, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read spam tracking entry: %w", err)
	}

	if now.Sub(entry.LastMessageTime) >= t.window {
		// Window elapsed: the old entry is logically expired, start over.
		entry.MessageCount = 1
		entry.FirstMessageTime = now
		entry.Blocked = false
	} else {
		entry.MessageCount++
		entry.Blocked = entry.MessageCount >= t.threshold
	}
	entry.LastMessageTime = now

	if err := t.db.Save(&entry).Error; err != nil {
		return 0, false, fmt.Errorf("failed to update spam tracking entry: %w", err)
	}
	return entry.MessageCount, entry.Blocked, nil
}
