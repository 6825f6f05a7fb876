package main

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRecordAndCheck_BlocksAtThreshold tests the sliding window: the user is
// blocked once the configured message count is reached and released after the
// window elapses.
func TestRecordAndCheck_BlocksAtThreshold(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	mockClock := &MockClock{currentTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tracker := NewSpamTracker(db, cfg, mockClock)

	// Messages below the threshold pass.
	for i := 1; i < cfg.SpamThreshold; i++ {
		count, blocked, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
		assert.NoError(t, err)
		assert.Equal(t, i, count)
		assert.False(t, blocked, "message %d should not be blocked", i)
		mockClock.Advance(time.Second)
	}

	// The threshold message flips the block.
	count, blocked, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
	assert.NoError(t, err)
	assert.Equal(t, cfg.SpamThreshold, count)
	assert.True(t, blocked)

	// Still blocked while inside the window.
	mockClock.Advance(time.Second)
	_, blocked, err = tracker.RecordAndCheck("user1", "guild1", "chan1")
	assert.NoError(t, err)
	assert.True(t, blocked)

	// After the window expires the counter restarts at 1.
	mockClock.Advance(cfg.SpamTimeWindow)
	count, blocked, err = tracker.RecordAndCheck("user1", "guild1", "chan1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, blocked)
}

// TestRecordAndCheck_IndependentKeys tests that counters are scoped to the
// (user, server, channel) triple.
func TestRecordAndCheck_IndependentKeys(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.SpamThreshold = 2
	mockClock := &MockClock{currentTime: time.Now()}
	tracker := NewSpamTracker(db, cfg, mockClock)

	_, _, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
	assert.NoError(t, err)
	_, blocked, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
	assert.NoError(t, err)
	assert.True(t, blocked)

	// Same user, different channel: fresh counter.
	count, blocked, err := tracker.RecordAndCheck("user1", "guild1", "chan2")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, blocked)

	// Different user, same channel: fresh counter.
	count, blocked, err = tracker.RecordAndCheck("user2", "guild1", "chan1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.False(t, blocked)
}

// TestRecordAndCheck_Concurrent tests that concurrent calls for the same key
// never lose a count.
func TestRecordAndCheck_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.SpamThreshold = 1000
	mockClock := &MockClock{currentTime: time.Now()}
	tracker := NewSpamTracker(db, cfg, mockClock)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var entry SpamTracking
	err := db.Where("user_id = ? AND server_id = ? AND channel_id = ?",
		"user1", "guild1", "chan1").First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, workers, entry.MessageCount)
}

func TestRecordAndCheck_BlockedUntilWindowExpires(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.SpamThreshold = 2
	cfg.SpamTimeWindow = 10 * time.Second
	mockClock := &MockClock{currentTime: time.Now()}
	tracker := NewSpamTracker(db, cfg, mockClock)

	for i := 0; i < 2; i++ {
		_, _, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
		assert.NoError(t, err)
	}

	// Every further message inside the window extends it and stays blocked.
	for i := 0; i < 3; i++ {
		mockClock.Advance(5 * time.Second)
		count, blocked, err := tracker.RecordAndCheck("user1", "guild1", "chan1")
		assert.NoError(t, err)
		assert.Equal(t, 3+i, count, fmt.Sprintf("message %d", 3+i))
		assert.True(t, blocked)
	}
}
