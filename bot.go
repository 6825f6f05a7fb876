package main

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Embed colors.
const (
	colorSuccess = 0x00ff00
	colorError   = 0xff0000
	colorWarning = 0xffaa00
	colorInfo    = 0x0099ff
	colorDefault = 0x7289da
)

// Outbound sends per target channel are throttled to stay under the
// platform per-channel limit.
const (
	sendRatePerSecond = 5
	sendBurst         = 5
)

type Bot struct {
	dg          DiscordClient
	db          *gorm.DB
	cfg         *Config
	clock       Clock
	registry    *ConnectionRegistry
	settings    *SettingsStore
	spam        *SpamTracker
	filter      *ContentFilter
	attachments AttachmentFetcher
	confirms    *signalWaiter
	sweeper     *RetentionSweeper

	// The bot's own user id arrives with the Ready event while message
	// handlers may already be running on other goroutines, so access
	// goes through self/setSelf.
	selfID    atomic.Value
	startedAt time.Time

	sendLimitersMu sync.Mutex
	sendLimiters   map[string]*rate.Limiter

	ctx context.Context
}

func NewBot(db *gorm.DB, cfg *Config, clock Clock, dg DiscordClient) *Bot {
	return &Bot{
		dg:           dg,
		db:           db,
		cfg:          cfg,
		clock:        clock,
		registry:     NewConnectionRegistry(db, cfg),
		settings:     NewSettingsStore(db),
		spam:         NewSpamTracker(db, cfg, clock),
		filter:       NewContentFilter(cfg),
		attachments:  newAttachmentFetcher(),
		confirms:     newSignalWaiter(),
		sweeper:      NewRetentionSweeper(db, cfg, clock),
		startedAt:    clock.Now(),
		sendLimiters: make(map[string]*rate.Limiter),
	}
}

// Start binds the bot to a lifetime context. Event handlers derive their
// contexts from it, so cancelling it stops in-flight waits on shutdown.
func (b *Bot) Start(ctx context.Context) {
	b.ctx = ctx
}

func (b *Bot) baseCtx() context.Context {
	if b.ctx != nil {
		return b.ctx
	}
	return context.Background()
}

func (b *Bot) self() string {
	if id, ok := b.selfID.Load().(string); ok {
		return id
	}
	return ""
}

func (b *Bot) setSelf(id string) {
	b.selfID.Store(id)
}

// handleReady records the bot's own user id for self-message and
// permission checks. Ready fires again on every re-identify.
func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.setSelf(r.User.ID)
	InfoLogger.Printf("Connected as %s on %d guilds", r.User.Username, len(r.Guilds))
}

// handleMessageCreate routes each inbound message either to the command
// dispatcher or through the relay pipeline. discordgo runs every handler
// call on its own goroutine, so messages are processed concurrently.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg := m.Message
	if msg.Author == nil || msg.Author.Bot || msg.Author.ID == b.self() {
		return
	}
	if msg.GuildID == "" {
		// Direct messages are neither commands nor relayed.
		return
	}

	ctx := b.baseCtx()

	if msg.Type == discordgo.MessageTypeDefault &&
		len(msg.Content) > len(b.cfg.Prefix) &&
		strings.HasPrefix(msg.Content, b.cfg.Prefix) {
		settings, err := b.settings.GetOrCreate(msg.GuildID)
		if err != nil {
			ErrorLogger.Printf("Failed to load settings for guild %s: %v", msg.GuildID, err)
			return
		}
		b.handleCommand(ctx, msg, settings)
		return
	}

	b.relayMessage(ctx, msg)
}

// handleReactionAdd feeds confirmation reactions to a waiting workflow.
func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	name := r.Emoji.Name
	if name != emojiConfirm && name != emojiDecline {
		return
	}
	b.confirms.Deliver(r.MessageID, r.UserID, name)
}

// handleGuildCreate lazily creates default settings for a newly seen guild.
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if _, err := b.settings.GetOrCreate(g.ID); err != nil {
		ErrorLogger.Printf("Failed to create settings for guild %s: %v", g.ID, err)
		return
	}
	InfoLogger.Printf("Joined guild %s (%s)", g.Name, g.ID)
}

// handleGuildDelete deactivates every connection referencing a guild the
// bot was removed from.
func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if err := b.registry.DeactivateAllForServer(g.ID); err != nil {
		ErrorLogger.Printf("Failed to deactivate connections for guild %s: %v", g.ID, err)
		return
	}
	InfoLogger.Printf("Removed from guild %s, connections deactivated", g.ID)
}

func (b *Bot) sendLimiter(channelID string) *rate.Limiter {
	b.sendLimitersMu.Lock()
	defer b.sendLimitersMu.Unlock()
	limiter, ok := b.sendLimiters[channelID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second/sendRatePerSecond), sendBurst)
		b.sendLimiters[channelID] = limiter
	}
	return limiter
}

// hasPermission reports whether the user holds the permission in the
// channel. Administrators pass every check.
func (b *Bot) hasPermission(userID, channelID string, perm int64) bool {
	perms, err := b.dg.UserChannelPermissions(userID, channelID)
	if err != nil {
		ErrorLogger.Printf("Failed to resolve permissions for user %s in channel %s: %v", userID, channelID, err)
		return false
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&perm == perm
}

// sendEmbed sends an embed, logging failures instead of surfacing them.
func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) *discordgo.Message {
	msg, err := b.dg.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		ErrorLogger.Printf("Failed to send message to channel %s: %v", channelID, err)
		return nil
	}
	return msg
}
