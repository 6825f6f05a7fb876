package main

import (
	"time"
)

// Connection is an active bidirectional relay link between two channels on
// two distinct servers. Soft-deleted by flipping Active; rows are never
// removed so the relay history stays auditable.
type Connection struct {
	ID          uint   `gorm:"primaryKey"`
	Server1ID   string `gorm:"index;not null"`
	Channel1ID  string `gorm:"index:idx_connections_channels;not null"`
	Server2ID   string `gorm:"index;not null"`
	Channel2ID  string `gorm:"index:idx_connections_channels;not null"`
	Name        string `gorm:"not null"`
	CreatedBy   string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Active      bool   `gorm:"index;default:true"`
	CreatedAt   time.Time
}

// OppositeChannel returns the endpoint on the other side of the link, or ""
// if the given channel is not part of this connection.
func (c *Connection) OppositeChannel(channelID string) string {
	switch channelID {
	case c.Channel1ID:
		return c.Channel2ID
	case c.Channel2ID:
		return c.Channel1ID
	}
	return ""
}

// HasServer reports whether the guild is one of the two endpoints.
func (c *Connection) HasServer(serverID string) bool {
	return c.Server1ID == serverID || c.Server2ID == serverID
}

// MessageLogEntry is the provenance record written once per successful
// forward. ContentHash is nil for messages without text.
type MessageLogEntry struct {
	ID                 uint      `gorm:"primaryKey"`
	OriginalMessageID  string    `gorm:"not null"`
	ForwardedMessageID string    `gorm:"not null"`
	AuthorID           string    `gorm:"not null"`
	ConnectionID       uint      `gorm:"index;not null"`
	Timestamp          time.Time `gorm:"index"`
	ContentHash        *string
}

func (MessageLogEntry) TableName() string {
	return "message_history"
}

// ServerSettings holds per-guild configuration, one row per guild that has
// ever interacted with the bot. Created lazily with defaults on first access.
type ServerSettings struct {
	ServerID             string `gorm:"primaryKey"`
	Prefix               string
	Enabled              bool `gorm:"default:true"`
	ModRoleID            string
	LogChannelID         string
	SpamProtection       bool `gorm:"default:true"`
	ProfanityFilter      bool `gorm:"default:true"`
	AutoDeleteCommands   bool `gorm:"default:false"`
	WebhookNotifications bool `gorm:"default:false"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SpamTracking is the sliding-window counter per (user, server, channel).
// An entry whose LastMessageTime has aged past the spam window is treated as
// absent; physical deletion is deferred to the retention sweep.
type SpamTracking struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           string `gorm:"index:idx_spam_tracking_user;not null"`
	ServerID         string `gorm:"index:idx_spam_tracking_user;not null"`
	ChannelID        string `gorm:"not null"`
	MessageCount     int    `gorm:"default:1"`
	FirstMessageTime time.Time
	LastMessageTime  time.Time
	Blocked          bool `gorm:"default:false"`
}

func (SpamTracking) TableName() string {
	return "spam_tracking"
}
