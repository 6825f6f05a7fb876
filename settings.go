package main

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// SettingKey is the closed set of server settings that can be changed
// through the admin command. Keys map to typed struct fields; a key is never
// interpolated into a query.
type SettingKey string

const (
	SettingPrefix               SettingKey = "prefix"
	SettingEnabled              SettingKey = "enabled"
	SettingSpamProtection       SettingKey = "spam_protection"
	SettingProfanityFilter      SettingKey = "profanity_filter"
	SettingAutoDeleteCommands   SettingKey = "auto_delete_commands"
	SettingWebhookNotifications SettingKey = "webhook_notifications"
)

var settingKeys = []SettingKey{
	SettingPrefix,
	SettingEnabled,
	SettingSpamProtection,
	SettingProfanityFilter,
	SettingAutoDeleteCommands,
	SettingWebhookNotifications,
}

// ParseSettingKey validates a user-supplied setting name.
func ParseSettingKey(name string) (SettingKey, bool) {
	key := SettingKey(strings.ToLower(name))
	for _, k := range settingKeys {
		if k == key {
			return key, true
		}
	}
	return "", false
}

// SettingsStore owns the server_settings table. Settings rows are created
// lazily with defaults the first time a guild is seen.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetOrCreate returns the settings row for the guild, creating it with
// defaults (enabled, spam protection and profanity filter on) when absent.
func (s *SettingsStore) GetOrCreate(serverID string) (*ServerSettings, error) {
	var settings ServerSettings
	err := s.db.Where("server_id = ?", serverID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = ServerSettings{
			ServerID:        serverID,
			Enabled:         true,
			SpamProtection:  true,
			ProfanityFilter: true,
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create settings for server %s: %w", serverID, err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings for server %s: %w", serverID, err)
	}
	return &settings, nil
}

// Set updates one setting from its textual representation. Boolean settings
// accept true/1/yes/on as truthy.
func (s *SettingsStore) Set(serverID string, key SettingKey, value string) (*ServerSettings, error) {
	settings, err := s.GetOrCreate(serverID)
	if err != nil {
		return nil, err
	}

	switch key {
	case SettingPrefix:
		settings.Prefix = value
	case SettingEnabled:
		settings.Enabled = parseBoolValue(value)
	case SettingSpamProtection:
		settings.SpamProtection = parseBoolValue(value)
	case SettingProfanityFilter:
		settings.ProfanityFilter = parseBoolValue(value)
	case SettingAutoDeleteCommands:
		settings.AutoDeleteCommands = parseBoolValue(value)
	case SettingWebhookNotifications:
		settings.WebhookNotifications = parseBoolValue(value)
	default:
		return nil, fmt.Errorf("unknown setting %q", key)
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to save settings for server %s: %w", serverID, err)
	}
	return settings, nil
}

func parseBoolValue(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
