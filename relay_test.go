package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := migrate(db); err != nil {
		t.Fatalf("Failed to migrate database schema: %v", err)
	}
	return db
}

func testConfig() *Config {
	return &Config{
		BotToken:                "test_token",
		Prefix:                  "!",
		SpamThreshold:           5,
		SpamTimeWindow:          10 * time.Second,
		MaxMessageLength:        2000,
		MaxConnectionsPerServer: 10,
		MaxFileSize:             8388608,
		MaxAttachmentsPerSend:   10,
		RetentionDays:           30,
		MassMentionThreshold:    3,
		BlockedDomains:          defaultBlockedDomains,
	}
}

func newTestBot(db *gorm.DB, cfg *Config, clock Clock, dg DiscordClient) *Bot {
	b := NewBot(db, cfg, clock, dg)
	b.setSelf("bot_self")
	return b
}

// mockAttachmentFetcher returns canned bytes instead of hitting the CDN.
type mockAttachmentFetcher struct {
	FetchFunc func(ctx context.Context, url string, maxSize int64) ([]byte, error)
}

func (m *mockAttachmentFetcher) Fetch(ctx context.Context, url string, maxSize int64) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url, maxSize)
	}
	return []byte("data"), nil
}

func forwardPerms(userID, channelID string) (int64, error) {
	return int64(discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks |
		discordgo.PermissionAttachFiles), nil
}

func namedGuild(guildID string) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Guild " + guildID}, nil
}

func userMessage(guildID, channelID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "msg1",
		GuildID:   guildID,
		ChannelID: channelID,
		Content:   content,
		Type:      discordgo.MessageTypeDefault,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Author:    &discordgo.User{ID: "user1", Username: "testuser"},
	}
}

func TestRelayMessage_ForwardsAcrossConnection(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	mockClock := &MockClock{currentTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		GuildFunc:       namedGuild,
	}
	b := newTestBot(db, cfg, mockClock, mockDg)

	conn, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	var sentChannel string
	var sentData *discordgo.MessageSend
	mockDg.SendComplexFunc = func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
		sentChannel = channelID
		sentData = data
		return &discordgo.Message{ID: "fwd1", ChannelID: channelID}, nil
	}

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "hello across"))

	assert.Equal(t, "chan2", sentChannel)
	if assert.NotNil(t, sentData) && assert.Len(t, sentData.Embeds, 1) {
		embed := sentData.Embeds[0]
		assert.Equal(t, "hello across", embed.Description)
		assert.Equal(t, "testuser (Guild guild1)", embed.Author.Name)
		assert.Contains(t, embed.Footer.Text, "bridge")
	}

	var entry MessageLogEntry
	err = db.Where("original_message_id = ?", "msg1").First(&entry).Error
	assert.NoError(t, err)
	assert.Equal(t, "fwd1", entry.ForwardedMessageID)
	assert.Equal(t, "user1", entry.AuthorID)
	assert.Equal(t, conn.ID, entry.ConnectionID)
	if assert.NotNil(t, entry.ContentHash) {
		assert.Len(t, *entry.ContentHash, 64)
	}
}

func TestRelayMessage_BlockedLinkDropped(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	sends := 0
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sends++
			return &discordgo.Message{ID: "fwd1"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	// Shortener link without a scheme must still be caught.
	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "check bit.ly/abc now"))

	assert.Equal(t, 0, sends)
	var count int64
	db.Model(&MessageLogEntry{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRelayMessage_DisabledServer(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	sends := 0
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sends++
			return &discordgo.Message{ID: "fwd1"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)
	_, err = b.settings.Set("guild1", SettingEnabled, "false")
	assert.NoError(t, err)

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "hello"))

	assert.Equal(t, 0, sends)
}

func TestRelayMessage_SpamThreshold(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	mockClock := &MockClock{currentTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	sends := 0
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		GuildFunc:       namedGuild,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sends++
			return &discordgo.Message{ID: fmt.Sprintf("fwd%d", sends)}, nil
		},
	}
	b := newTestBot(db, cfg, mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	// Threshold is 5: the first four messages pass, the fifth and sixth
	// are dropped silently.
	for i := 0; i < 6; i++ {
		m := userMessage("guild1", "chan1", fmt.Sprintf("message %d", i))
		m.ID = fmt.Sprintf("msg%d", i)
		b.relayMessage(context.Background(), m)
		mockClock.Advance(time.Second)
	}

	assert.Equal(t, 4, sends)
}

func TestRelayMessage_EmptyContentPlaceholder(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	var sentData *discordgo.MessageSend
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		GuildFunc:       namedGuild,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sentData = data
			return &discordgo.Message{ID: "fwd1"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", ""))

	if assert.NotNil(t, sentData) && assert.Len(t, sentData.Embeds, 1) {
		assert.Equal(t, emptyMessagePlaceholder, sentData.Embeds[0].Description)
	}

	var entry MessageLogEntry
	err = db.First(&entry).Error
	assert.NoError(t, err)
	assert.Nil(t, entry.ContentHash)
}

func TestRelayMessage_SiblingConnectionIsolation(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		GuildFunc:       namedGuild,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			if channelID == "chan2" {
				return nil, errors.New("channel gone")
			}
			return &discordgo.Message{ID: "fwd_ok"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "broken", "creator", "")
	assert.NoError(t, err)
	_, err = b.registry.Create("guild1", "chan1", "guild3", "chan3", "working", "creator", "")
	assert.NoError(t, err)

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "hello"))

	// The failing sibling must not prevent delivery to the working one.
	var entries []MessageLogEntry
	db.Find(&entries)
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "fwd_ok", entries[0].ForwardedMessageID)
	}
}

func TestRelayMessage_MissingSendPermission(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	sends := 0
	mockDg := &MockDiscordClient{
		PermissionsFunc: func(userID, channelID string) (int64, error) {
			return 0, nil
		},
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sends++
			return &discordgo.Message{ID: "fwd1"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "hello"))

	assert.Equal(t, 0, sends)
}

func TestRelayMessage_IgnoresBotsAndCommands(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	sends := 0
	mockDg := &MockDiscordClient{
		PermissionsFunc: forwardPerms,
		SendComplexFunc: func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
			sends++
			return &discordgo.Message{ID: "fwd1"}, nil
		},
	}
	b := newTestBot(db, testConfig(), mockClock, mockDg)

	_, err := b.registry.Create("guild1", "chan1", "guild2", "chan2", "bridge", "creator", "")
	assert.NoError(t, err)

	botMsg := userMessage("guild1", "chan1", "hello")
	botMsg.Author.Bot = true
	b.relayMessage(context.Background(), botMsg)

	selfMsg := userMessage("guild1", "chan1", "hello")
	selfMsg.Author.ID = b.self()
	b.relayMessage(context.Background(), selfMsg)

	b.relayMessage(context.Background(), userMessage("guild1", "chan1", "!connect list"))

	assert.Equal(t, 0, sends)
}

func TestCollectAttachments_SkipsOversized(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.MaxFileSize = 1024
	mockClock := &MockClock{currentTime: time.Now()}
	b := newTestBot(db, cfg, mockClock, &MockDiscordClient{})
	b.attachments = &mockAttachmentFetcher{
		FetchFunc: func(ctx context.Context, url string, maxSize int64) ([]byte, error) {
			return []byte("small file"), nil
		},
	}

	m := userMessage("guild1", "chan1", "with files")
	m.Attachments = []*discordgo.MessageAttachment{
		{ID: "a1", Filename: "ok.png", Size: 100, URL: "https://cdn.example/ok.png"},
		{ID: "a2", Filename: "huge.bin", Size: 4096, URL: "https://cdn.example/huge.bin"},
	}

	files := b.collectAttachments(context.Background(), m)
	if assert.Len(t, files, 1) {
		assert.Equal(t, "ok.png", files[0].Name)
	}
}

func TestCollectAttachments_FetchErrorSkipsFile(t *testing.T) {
	db := setupTestDB(t)
	mockClock := &MockClock{currentTime: time.Now()}
	b := newTestBot(db, testConfig(), mockClock, &MockDiscordClient{})
	b.attachments = &mockAttachmentFetcher{
		FetchFunc: func(ctx context.Context, url string, maxSize int64) ([]byte, error) {
			return nil, errors.New("cdn unavailable")
		},
	}

	m := userMessage("guild1", "chan1", "with files")
	m.Attachments = []*discordgo.MessageAttachment{
		{ID: "a1", Filename: "gone.png", Size: 100, URL: "https://cdn.example/gone.png"},
	}

	files := b.collectAttachments(context.Background(), m)
	assert.Empty(t, files)
}

func TestContentHash(t *testing.T) {
	assert.Nil(t, contentHash(""))

	h1 := contentHash("hello")
	h2 := contentHash("hello")
	h3 := contentHash("world")
	if assert.NotNil(t, h1) && assert.NotNil(t, h2) && assert.NotNil(t, h3) {
		assert.Equal(t, *h1, *h2)
		assert.NotEqual(t, *h1, *h3)
		assert.Len(t, *h1, 64)
	}
}
