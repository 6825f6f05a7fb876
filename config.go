package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every runtime knob of the bot. Constructed once at startup
// from the environment and passed by pointer to every component; there is no
// ambient global configuration.
type Config struct {
	BotToken string
	Prefix   string

	DatabasePath string

	SpamThreshold  int
	SpamTimeWindow time.Duration

	MaxMessageLength        int
	MaxConnectionsPerServer int
	MaxFileSize             int64
	MaxAttachmentsPerSend   int

	RetentionDays        int
	MassMentionThreshold int

	BlockedDomains []string
	ProfanityWords []string
}

// Domains that are blocked regardless of the BLOCKED_DOMAINS environment
// value: link shorteners abused for scams, IP loggers and fake gift sites.
var defaultBlockedDomains = []string{
	"bit.ly", "tinyurl.com", "grabify.link", "iplogger.org",
	"2no.co", "cutt.ly", "discord.gift", "discordnitro.info",
	"discord-nitro.org", "discordgift.site",
	"steamcommunity-net.org", "steemcommunity.org", "stemcommunity.org",
	"iplogger.com", "iplogger.net", "iplogger.co",
	"yip.su", "iplis.ru", "ip-api.io",
	"bmwforum.co", "leancoding.co", "quickmessage.io", "spottyfly.com",
}

// loadConfig reads configuration from the environment, falling back to a
// .env file when present.
func loadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		InfoLogger.Println("No .env file found, using process environment")
	}

	cfg := &Config{
		BotToken:                os.Getenv("BOT_TOKEN"),
		Prefix:                  envString("PREFIX", "!"),
		DatabasePath:            envString("DATABASE_URL", "interserver_bot.db"),
		SpamThreshold:           envInt("SPAM_THRESHOLD", 5),
		SpamTimeWindow:          time.Duration(envInt("SPAM_TIME_WINDOW", 10)) * time.Second,
		MaxMessageLength:        envInt("MAX_MESSAGE_LENGTH", 2000),
		MaxConnectionsPerServer: envInt("MAX_CONNECTIONS_PER_SERVER", 10),
		MaxFileSize:             int64(envInt("MAX_FILE_SIZE", 8388608)),
		MaxAttachmentsPerSend:   10,
		RetentionDays:           envInt("CLEANUP_RETENTION_DAYS", 30),
		MassMentionThreshold:    envInt("MASS_MENTION_THRESHOLD", 3),
		BlockedDomains:          append(envList("BLOCKED_DOMAINS"), defaultBlockedDomains...),
		ProfanityWords:          envList("PROFANITY_WORDS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is not set")
	}
	if c.SpamThreshold < 1 {
		return fmt.Errorf("SPAM_THRESHOLD must be at least 1, got %d", c.SpamThreshold)
	}
	if c.SpamTimeWindow <= 0 {
		return fmt.Errorf("SPAM_TIME_WINDOW must be positive")
	}
	if c.MaxConnectionsPerServer < 1 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_SERVER must be at least 1, got %d", c.MaxConnectionsPerServer)
	}
	if c.RetentionDays < minRetentionDays {
		return fmt.Errorf("CLEANUP_RETENTION_DAYS must be at least %d, got %d", minRetentionDays, c.RetentionDays)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		ErrorLogger.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
