package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zeebo/blake3"
)

const emptyMessagePlaceholder = "*Message without text*"

// relayMessage is the per-message relay pipeline. It terminates at the
// first blocking condition; every drop is silent towards the sender so the
// abuse signal does not leak. Failures reading settings or the spam counter
// abort the whole relay (fail-closed).
func (b *Bot) relayMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == b.self() {
		return
	}
	if m.Type != discordgo.MessageTypeDefault {
		return
	}
	if strings.HasPrefix(m.Content, b.cfg.Prefix) {
		// Commands are never relayed.
		return
	}

	settings, err := b.settings.GetOrCreate(m.GuildID)
	if err != nil {
		ErrorLogger.Printf("Aborting relay of message %s: %v", m.ID, err)
		return
	}
	if !settings.Enabled {
		return
	}

	if settings.SpamProtection {
		_, blocked, err := b.spam.RecordAndCheck(m.Author.ID, m.GuildID, m.ChannelID)
		if err != nil {
			ErrorLogger.Printf("Aborting relay of message %s: %v", m.ID, err)
			return
		}
		if blocked {
			return
		}
	}

	connections, err := b.registry.ListByChannel(m.ChannelID)
	if err != nil {
		ErrorLogger.Printf("Aborting relay of message %s: %v", m.ID, err)
		return
	}
	if len(connections) == 0 {
		return
	}

	result := b.filter.Classify(m.Content, FilterOptions{
		CheckProfanity: settings.ProfanityFilter,
		CheckLinks:     true,
		CheckSpam:      true,
		CheckTokens:    true,
	})
	if !result.Allowed {
		InfoLogger.Printf("Dropped message %s from user %s: %v", m.ID, m.Author.ID, result.Reasons)
		return
	}

	// Each connection is forwarded independently; one target's failure
	// must not block its siblings.
	for i := range connections {
		b.forwardMessage(ctx, m, &connections[i])
	}
}

// forwardMessage mirrors one message into the opposite endpoint of a single
// connection. Permission and transport errors are logged and contained
// here; there is no retry, delivery is at most once.
func (b *Bot) forwardMessage(ctx context.Context, m *discordgo.Message, conn *Connection) {
	targetID := conn.OppositeChannel(m.ChannelID)
	if targetID == "" {
		return
	}

	perms, err := b.dg.UserChannelPermissions(b.self(), targetID)
	if err != nil {
		ErrorLogger.Printf("Target channel %s unreachable for connection %d: %v", targetID, conn.ID, err)
		return
	}
	if perms&discordgo.PermissionSendMessages == 0 {
		InfoLogger.Printf("Missing send permission in channel %s, skipping connection %d", targetID, conn.ID)
		return
	}

	embed := b.buildForwardEmbed(m, conn)
	files := b.collectAttachments(ctx, m)

	if err := b.sendLimiter(targetID).Wait(ctx); err != nil {
		return
	}

	sent, err := b.dg.ChannelMessageSendComplex(targetID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  files,
	})
	if err != nil {
		ErrorLogger.Printf("Failed to forward message %s over connection %d: %v", m.ID, conn.ID, err)
		return
	}

	entry := MessageLogEntry{
		OriginalMessageID:  m.ID,
		ForwardedMessageID: sent.ID,
		AuthorID:           m.Author.ID,
		ConnectionID:       conn.ID,
		Timestamp:          b.clock.Now(),
		ContentHash:        contentHash(m.Content),
	}
	if err := b.db.Create(&entry).Error; err != nil {
		ErrorLogger.Printf("Failed to log forwarded message %s: %v", m.ID, err)
	}
}

// buildForwardEmbed renders the forwarded representation: original text (or
// a placeholder), author display name with origin guild, original
// timestamp, and the connection provenance in the footer.
func (b *Bot) buildForwardEmbed(m *discordgo.Message, conn *Connection) *discordgo.MessageEmbed {
	description := m.Content
	if description == "" {
		description = emptyMessagePlaceholder
	}

	authorName := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		authorName = m.Member.Nick
	}

	guildName := m.GuildID
	if guild, err := b.dg.Guild(m.GuildID); err == nil && guild != nil {
		guildName = guild.Name
	}

	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorDefault,
		Timestamp:   m.Timestamp.Format(time.RFC3339),
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s (%s)", authorName, guildName),
			IconURL: m.Author.AvatarURL(""),
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Connection: %s • ID: %d", conn.Name, conn.ID),
		},
	}
}

// collectAttachments re-downloads the original attachments for re-upload.
// Oversized or unreadable attachments are skipped, not the whole message.
func (b *Bot) collectAttachments(ctx context.Context, m *discordgo.Message) []*discordgo.File {
	var files []*discordgo.File
	for _, att := range m.Attachments {
		if len(files) >= b.cfg.MaxAttachmentsPerSend {
			break
		}
		if int64(att.Size) > b.cfg.MaxFileSize {
			InfoLogger.Printf("Skipping oversized attachment %s (%d bytes) on message %s", att.Filename, att.Size, m.ID)
			continue
		}
		data, err := b.attachments.Fetch(ctx, att.URL, b.cfg.MaxFileSize)
		if err != nil {
			ErrorLogger.Printf("Failed to fetch attachment %s on message %s: %v", att.Filename, m.ID, err)
			continue
		}
		files = append(files, &discordgo.File{
			Name:        att.Filename,
			ContentType: att.ContentType,
			Reader:      bytes.NewReader(data),
		})
	}
	return files
}

// contentHash returns the hex digest of the message text for dedupe and
// audit, or nil for messages without text.
func contentHash(text string) *string {
	if text == "" {
		return nil
	}
	sum := blake3.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])
	return &digest
}
