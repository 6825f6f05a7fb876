package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// handleCommand dispatches one prefix command. Unknown commands stay
// silent. When the server enabled auto-delete, the invoking message is
// removed after the command ran, best effort.
func (b *Bot) handleCommand(ctx context.Context, m *discordgo.Message, settings *ServerSettings) {
	fields := strings.Fields(strings.TrimPrefix(m.Content, b.cfg.Prefix))
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "connect", "conn":
		b.cmdConnect(ctx, m, fields[1:])
	case "admin":
		b.cmdAdmin(ctx, m, fields[1:])
	case "help":
		b.cmdHelp(m)
	case "invite":
		b.cmdInvite(m)
	default:
		return
	}

	if settings.AutoDeleteCommands {
		if err := b.dg.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			InfoLogger.Printf("Could not auto-delete command message %s: %v", m.ID, err)
		}
	}
}

// === CONNECTION COMMANDS ===

func (b *Bot) cmdConnect(ctx context.Context, m *discordgo.Message, args []string) {
	if len(args) == 0 {
		b.sendEmbed(m.ChannelID, b.connectHelpEmbed())
		return
	}

	switch args[0] {
	case "create", "add", "new":
		b.cmdConnectCreate(m, args[1:])
	case "list", "ls", "show":
		b.cmdConnectList(m, args[1:])
	case "info", "details":
		b.cmdConnectInfo(m, args[1:])
	case "remove", "delete", "rm":
		b.cmdConnectRemove(ctx, m, args[1:])
	default:
		b.sendEmbed(m.ChannelID, b.connectHelpEmbed())
	}
}

func (b *Bot) connectHelpEmbed() *discordgo.MessageEmbed {
	p := b.cfg.Prefix
	return &discordgo.MessageEmbed{
		Title:       "🔗 Inter-server connections",
		Description: "Commands for managing connections:",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Create a connection", Value: fmt.Sprintf("`%sconnect create <channel ID> <name>`", p)},
			{Name: "List connections", Value: fmt.Sprintf("`%sconnect list [page]`", p)},
			{Name: "Connection details", Value: fmt.Sprintf("`%sconnect info <ID>`", p)},
			{Name: "Remove a connection", Value: fmt.Sprintf("`%sconnect remove <ID>`", p)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Creating connections requires the Manage Channels permission"},
	}
}

func (b *Bot) cmdConnectCreate(m *discordgo.Message, args []string) {
	if !b.hasPermission(m.Author.ID, m.ChannelID, discordgo.PermissionManageChannels) {
		b.sendEmbed(m.ChannelID, errorEmbed("Insufficient permissions",
			"Creating connections requires the Manage Channels permission."))
		return
	}
	if len(args) < 2 {
		b.sendEmbed(m.ChannelID, errorEmbed("Missing arguments",
			fmt.Sprintf("Usage: `%sconnect create <channel ID> <name>`", b.cfg.Prefix)))
		return
	}

	targetID := args[0]
	name := strings.Join(args[1:], " ")

	target, err := b.dg.Channel(targetID)
	if err != nil || target == nil {
		b.sendEmbed(m.ChannelID, errorEmbed("Channel not found",
			fmt.Sprintf("Channel `%s` does not exist or the bot cannot see it.", targetID)))
		return
	}

	required := int64(discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks |
		discordgo.PermissionAttachFiles)
	perms, err := b.dg.UserChannelPermissions(b.self(), target.ID)
	if err != nil || perms&required != required {
		b.sendEmbed(m.ChannelID, errorEmbed("Insufficient permissions in the target channel",
			fmt.Sprintf("The bot needs Send Messages, Embed Links and Attach Files in <#%s>.", target.ID)))
		return
	}

	description := fmt.Sprintf("Connection between %s and %s",
		b.guildName(m.GuildID), b.guildName(target.GuildID))

	conn, err := b.registry.Create(m.GuildID, m.ChannelID, target.GuildID, target.ID,
		name, m.Author.ID, description)
	if err != nil {
		switch {
		case errors.Is(err, ErrSameServer):
			b.sendEmbed(m.ChannelID, errorEmbed("Invalid target",
				"Both channels belong to the same server. Connections are cross-server only."))
		case errors.Is(err, ErrQuotaExceeded):
			b.sendEmbed(m.ChannelID, errorEmbed("Connection limit reached",
				fmt.Sprintf("A server can have at most %d active connections.", b.cfg.MaxConnectionsPerServer)))
		case errors.Is(err, ErrDuplicateConnection):
			b.sendEmbed(m.ChannelID, warningEmbed("Connection already exists",
				"An active connection already links these two channels."))
		default:
			ErrorLogger.Printf("Failed to create connection: %v", err)
			b.sendEmbed(m.ChannelID, errorEmbed("Connection failed",
				"Something went wrong while creating the connection. Try again later."))
		}
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "✅ Connection created!",
		Description: fmt.Sprintf("**%s** (ID: %d)", conn.Name, conn.ID),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel 1", Value: fmt.Sprintf("<#%s> (%s)", conn.Channel1ID, b.guildName(conn.Server1ID)), Inline: true},
			{Name: "Channel 2", Value: fmt.Sprintf("<#%s> (%s)", conn.Channel2ID, b.guildName(conn.Server2ID)), Inline: true},
			{Name: "Created by", Value: fmt.Sprintf("<@%s>", conn.CreatedBy), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Messages will now be relayed between the channels"},
	}
	b.sendEmbed(m.ChannelID, embed)

	notification := *embed
	notification.Title = "🔗 New connection established!"
	b.sendEmbed(target.ID, &notification)

	InfoLogger.Printf("Created connection %d: %s#%s <-> %s#%s",
		conn.ID, conn.Server1ID, conn.Channel1ID, conn.Server2ID, conn.Channel2ID)
}

func (b *Bot) cmdConnectList(m *discordgo.Message, args []string) {
	connections, err := b.registry.ListByServer(m.GuildID)
	if err != nil {
		ErrorLogger.Printf("Failed to list connections: %v", err)
		b.sendEmbed(m.ChannelID, errorEmbed("Listing failed", "Could not load the connection list."))
		return
	}

	if len(connections) == 0 {
		b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
			Title:       "ℹ️ No active connections",
			Description: fmt.Sprintf("This server has no connections yet. Create one with `%sconnect create <channel ID> <name>`.", b.cfg.Prefix),
			Color:       colorInfo,
		})
		return
	}

	const perPage = 10
	pages := (len(connections) + perPage - 1) / perPage

	page := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			b.sendEmbed(m.ChannelID, errorEmbed("Invalid page",
				fmt.Sprintf("`%s` is not a page number.", args[0])))
			return
		}
		page = parsed
	}
	if page > pages {
		b.sendEmbed(m.ChannelID, errorEmbed("Page out of range",
			fmt.Sprintf("There are only %d pages.", pages)))
		return
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(connections) {
		end = len(connections)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔗 Inter-server connections",
		Description: fmt.Sprintf("Total: %d", len(connections)),
		Color:       colorInfo,
	}
	if pages > 1 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d of %d • %sconnect list <page>", page, pages, b.cfg.Prefix),
		}
	}
	for _, conn := range connections[start:end] {
		local, remote := conn.Channel1ID, conn.Channel2ID
		remoteServer := conn.Server2ID
		if conn.Server2ID == m.GuildID {
			local, remote = conn.Channel2ID, conn.Channel1ID
			remoteServer = conn.Server1ID
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("🏠 %s (ID: %d)", conn.Name, conn.ID),
			Value: fmt.Sprintf("**Local:** <#%s>\n**Remote:** <#%s> (%s)",
				local, remote, b.guildName(remoteServer)),
		})
	}
	b.sendEmbed(m.ChannelID, embed)
}

func (b *Bot) cmdConnectInfo(m *discordgo.Message, args []string) {
	conn, ok := b.resolveConnectionArg(m, args)
	if !ok {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("ℹ️ %s", conn.Name),
		Description: conn.Description,
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Connection ID", Value: strconv.FormatUint(uint64(conn.ID), 10), Inline: true},
			{Name: "Status", Value: "🟢 Active", Inline: true},
			{Name: "Created", Value: fmt.Sprintf("<t:%d:R>", conn.CreatedAt.Unix()), Inline: true},
			{Name: "Server 1", Value: fmt.Sprintf("**%s**\n<#%s>", b.guildName(conn.Server1ID), conn.Channel1ID), Inline: true},
			{Name: "Server 2", Value: fmt.Sprintf("**%s**\n<#%s>", b.guildName(conn.Server2ID), conn.Channel2ID), Inline: true},
			{Name: "Creator", Value: fmt.Sprintf("<@%s>", conn.CreatedBy), Inline: true},
		},
	}

	if stats, err := getMessageStats(b.db, b.clock, conn.ID, 7); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Stats (7 days)",
			Value: fmt.Sprintf("Messages: %d\nUsers: %d", stats.TotalMessages, stats.UniqueUsers),
		})
	}

	b.sendEmbed(m.ChannelID, embed)
}

func (b *Bot) cmdConnectRemove(ctx context.Context, m *discordgo.Message, args []string) {
	conn, ok := b.resolveConnectionArg(m, args)
	if !ok {
		return
	}

	if conn.CreatedBy != m.Author.ID &&
		!b.hasPermission(m.Author.ID, m.ChannelID, discordgo.PermissionAdministrator) {
		b.sendEmbed(m.ChannelID, errorEmbed("Insufficient permissions",
			"Only the creator or a server administrator can remove a connection."))
		return
	}

	prompt := b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "⚠️ Confirm removal",
		Description: fmt.Sprintf("Remove connection **%s** (ID: %d)?", conn.Name, conn.ID),
		Color:       colorWarning,
		Footer:      &discordgo.MessageEmbedFooter{Text: "React ✅ to confirm or ❌ to cancel"},
	})
	if prompt == nil {
		return
	}
	b.addConfirmReactions(m.ChannelID, prompt.ID)

	var result *discordgo.MessageEmbed
	switch awaitConfirmation(ctx, b.confirms, prompt.ID, m.Author.ID) {
	case ConfirmApproved:
		deleted, err := b.registry.SoftDelete(conn.ID)
		if err != nil || !deleted {
			result = errorEmbed("Removal failed", "Could not remove the connection. Try again later.")
			break
		}
		result = successEmbed("Connection removed",
			fmt.Sprintf("Connection **%s** has been removed.", conn.Name))
		if other := conn.OppositeChannel(m.ChannelID); other != "" {
			b.sendEmbed(other, &discordgo.MessageEmbed{
				Title:       "ℹ️ Connection closed",
				Description: fmt.Sprintf("Connection **%s** was removed.", conn.Name),
				Color:       colorInfo,
			})
		}
		InfoLogger.Printf("Removed connection %d on request of user %s", conn.ID, m.Author.ID)
	case ConfirmDeclined:
		result = infoEmbed("Removal cancelled", "The connection was not removed.")
	case ConfirmExpired:
		result = warningEmbed("Confirmation expired", "No reaction within 30 seconds. The connection was not removed.")
	}

	if _, err := b.dg.ChannelMessageEditEmbed(m.ChannelID, prompt.ID, result); err != nil {
		ErrorLogger.Printf("Failed to update confirmation message %s: %v", prompt.ID, err)
	}
}

// resolveConnectionArg parses the <ID> argument, loads the connection and
// verifies the invoking guild is one of its endpoints.
func (b *Bot) resolveConnectionArg(m *discordgo.Message, args []string) (*Connection, bool) {
	if len(args) < 1 {
		b.sendEmbed(m.ChannelID, errorEmbed("Missing argument", "Specify a connection ID."))
		return nil, false
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		b.sendEmbed(m.ChannelID, errorEmbed("Invalid ID", fmt.Sprintf("`%s` is not a connection ID.", args[0])))
		return nil, false
	}

	conn, err := b.registry.GetByID(uint(id))
	if errors.Is(err, ErrNotFound) {
		b.sendEmbed(m.ChannelID, errorEmbed("Connection not found",
			fmt.Sprintf("Connection %d does not exist or is inactive.", id)))
		return nil, false
	}
	if err != nil {
		ErrorLogger.Printf("Failed to load connection %d: %v", id, err)
		b.sendEmbed(m.ChannelID, errorEmbed("Lookup failed", "Could not load the connection."))
		return nil, false
	}

	if !conn.HasServer(m.GuildID) {
		b.sendEmbed(m.ChannelID, errorEmbed("No access", "You can only manage connections of your own server."))
		return nil, false
	}
	return conn, true
}

// === ADMIN COMMANDS ===

func (b *Bot) cmdAdmin(ctx context.Context, m *discordgo.Message, args []string) {
	if !b.hasPermission(m.Author.ID, m.ChannelID, discordgo.PermissionAdministrator) {
		b.sendEmbed(m.ChannelID, errorEmbed("Insufficient permissions",
			"Admin commands require the Administrator permission."))
		return
	}

	if len(args) == 0 {
		b.sendEmbed(m.ChannelID, b.adminHelpEmbed())
		return
	}

	switch args[0] {
	case "settings":
		b.cmdAdminSettings(m)
	case "set":
		b.cmdAdminSet(m, args[1:])
	case "stats":
		b.cmdAdminStats(m)
	case "serverstats":
		b.cmdAdminServerStats(m)
	case "cleanup":
		b.cmdAdminCleanup(ctx, m, args[1:])
	case "test":
		b.cmdAdminTest(m, args[1:])
	default:
		b.sendEmbed(m.ChannelID, b.adminHelpEmbed())
	}
}

func (b *Bot) adminHelpEmbed() *discordgo.MessageEmbed {
	p := b.cfg.Prefix
	return &discordgo.MessageEmbed{
		Title:       "👑 Admin panel",
		Description: "Available admin commands:",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⚙️ Settings", Value: fmt.Sprintf("`%sadmin settings` show server settings\n`%sadmin set <setting> <value>` change a setting", p, p)},
			{Name: "📊 Stats", Value: fmt.Sprintf("`%sadmin stats` bot statistics\n`%sadmin serverstats` statistics for this server", p, p)},
			{Name: "🛠️ Maintenance", Value: fmt.Sprintf("`%sadmin cleanup [days]` purge old tracking data\n`%sadmin test <ID>` test a connection", p, p)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Admin commands require the Administrator permission"},
	}
}

func (b *Bot) cmdAdminSettings(m *discordgo.Message) {
	settings, err := b.settings.GetOrCreate(m.GuildID)
	if err != nil {
		ErrorLogger.Printf("Failed to load settings for guild %s: %v", m.GuildID, err)
		b.sendEmbed(m.ChannelID, errorEmbed("Lookup failed", "Could not load the server settings."))
		return
	}

	prefix := settings.Prefix
	if prefix == "" {
		prefix = b.cfg.Prefix
	}

	count, _ := b.registry.CountActiveForServer(m.GuildID)

	embed := &discordgo.MessageEmbed{
		Title:       "⚙️ Server settings",
		Description: fmt.Sprintf("Current settings for **%s**", b.guildName(m.GuildID)),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "General", Value: fmt.Sprintf("**Prefix:** `%s`\n**%s:** %s",
				prefix, settingLabel(SettingEnabled), onOff(settings.Enabled)), Inline: true},
			{Name: "Moderation", Value: fmt.Sprintf("**%s:** %s\n**%s:** %s",
				settingLabel(SettingSpamProtection), onOff(settings.SpamProtection),
				settingLabel(SettingProfanityFilter), onOff(settings.ProfanityFilter)), Inline: true},
			{Name: "Extras", Value: fmt.Sprintf("**%s:** %s\n**%s:** %s",
				settingLabel(SettingAutoDeleteCommands), onOff(settings.AutoDeleteCommands),
				settingLabel(SettingWebhookNotifications), onOff(settings.WebhookNotifications)), Inline: true},
			{Name: "Connections", Value: fmt.Sprintf("%d/%d active", count, b.cfg.MaxConnectionsPerServer)},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Use '%sadmin set <setting> <value>' to change a setting", b.cfg.Prefix),
		},
	}
	b.sendEmbed(m.ChannelID, embed)
}

func (b *Bot) cmdAdminSet(m *discordgo.Message, args []string) {
	if len(args) < 2 {
		b.sendEmbed(m.ChannelID, errorEmbed("Missing arguments",
			fmt.Sprintf("Usage: `%sadmin set <setting> <value>`", b.cfg.Prefix)))
		return
	}

	key, ok := ParseSettingKey(args[0])
	if !ok {
		names := make([]string, len(settingKeys))
		for i, k := range settingKeys {
			names[i] = string(k)
		}
		b.sendEmbed(m.ChannelID, errorEmbed("Unknown setting",
			fmt.Sprintf("Available settings: %s", strings.Join(names, ", "))))
		return
	}

	value := strings.Join(args[1:], " ")
	if _, err := b.settings.Set(m.GuildID, key, value); err != nil {
		ErrorLogger.Printf("Failed to update setting %s for guild %s: %v", key, m.GuildID, err)
		b.sendEmbed(m.ChannelID, errorEmbed("Update failed", "Could not save the setting."))
		return
	}

	b.sendEmbed(m.ChannelID, successEmbed("Setting updated",
		fmt.Sprintf("**%s** is now `%s`.", settingLabel(key), value)))
}

func (b *Bot) cmdAdminStats(m *discordgo.Message) {
	stats, err := getDatabaseStats(b.db)
	if err != nil {
		ErrorLogger.Printf("Failed to collect stats: %v", err)
		b.sendEmbed(m.ChannelID, errorEmbed("Stats unavailable", "Could not collect statistics."))
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	uptime := b.clock.Now().Sub(b.startedAt).Round(time.Second)

	embed := &discordgo.MessageEmbed{
		Title: "📊 Bot statistics",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🏠 Servers and connections", Value: fmt.Sprintf(
				"**Servers:** %d\n**Active connections:** %d", stats.TotalServers, stats.ActiveConnections), Inline: true},
			{Name: "📨 Messages", Value: fmt.Sprintf("**Relayed total:** %d", stats.TotalMessages), Inline: true},
			{Name: "💻 Process", Value: fmt.Sprintf(
				"**Heap:** %.1f MB\n**Goroutines:** %d\n**Uptime:** %s",
				float64(mem.HeapAlloc)/1024/1024, runtime.NumGoroutine(), uptime), Inline: true},
		},
	}
	b.sendEmbed(m.ChannelID, embed)
}

// cmdAdminServerStats aggregates the message log for the invoking guild:
// connection usage against the quota, relayed totals over 30 days and the
// busiest connections of the last week.
func (b *Bot) cmdAdminServerStats(m *discordgo.Message) {
	connections, err := b.registry.ListByServer(m.GuildID)
	if err != nil {
		ErrorLogger.Printf("Failed to list connections for guild %s: %v", m.GuildID, err)
		b.sendEmbed(m.ChannelID, errorEmbed("Stats unavailable", "Could not collect server statistics."))
		return
	}

	type connActivity struct {
		conn   Connection
		weekly MessageStats
	}

	var total30 int64
	activity := make([]connActivity, 0, len(connections))
	for _, conn := range connections {
		monthly, err := getMessageStats(b.db, b.clock, conn.ID, 30)
		if err != nil {
			ErrorLogger.Printf("Failed to collect stats for connection %d: %v", conn.ID, err)
			continue
		}
		weekly, err := getMessageStats(b.db, b.clock, conn.ID, 7)
		if err != nil {
			ErrorLogger.Printf("Failed to collect stats for connection %d: %v", conn.ID, err)
			continue
		}
		total30 += monthly.TotalMessages
		activity = append(activity, connActivity{conn: conn, weekly: weekly})
	}

	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].weekly.TotalMessages > activity[j].weekly.TotalMessages
	})

	top := "No activity in the last 7 days."
	if len(activity) > 0 && activity[0].weekly.TotalMessages > 0 {
		var lines []string
		for i, a := range activity {
			if i >= 3 || a.weekly.TotalMessages == 0 {
				break
			}
			lines = append(lines, fmt.Sprintf("**%s** (ID: %d): %d messages, %d users",
				a.conn.Name, a.conn.ID, a.weekly.TotalMessages, a.weekly.UniqueUsers))
		}
		top = strings.Join(lines, "\n")
	}

	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "📊 Server statistics",
		Description: fmt.Sprintf("Statistics for **%s**", b.guildName(m.GuildID)),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔗 Connections", Value: fmt.Sprintf("%d/%d active",
				len(connections), b.cfg.MaxConnectionsPerServer), Inline: true},
			{Name: "📨 Messages (30 days)", Value: fmt.Sprintf("%d relayed", total30), Inline: true},
			{Name: "🏆 Top connections (7 days)", Value: top},
		},
	})
}

func (b *Bot) cmdAdminCleanup(ctx context.Context, m *discordgo.Message, args []string) {
	days := b.cfg.RetentionDays
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			b.sendEmbed(m.ChannelID, errorEmbed("Invalid argument", fmt.Sprintf("`%s` is not a number of days.", args[0])))
			return
		}
		days = parsed
	}
	if days < minRetentionDays {
		b.sendEmbed(m.ChannelID, errorEmbed("Invalid period",
			fmt.Sprintf("The minimum cleanup period is %d days.", minRetentionDays)))
		return
	}

	prompt := b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title: "⚠️ Confirm cleanup",
		Description: fmt.Sprintf(
			"Spam tracking data older than **%d days** will be deleted. Continue?", days),
		Color:  colorWarning,
		Footer: &discordgo.MessageEmbedFooter{Text: "React ✅ to confirm or ❌ to cancel"},
	})
	if prompt == nil {
		return
	}
	b.addConfirmReactions(m.ChannelID, prompt.ID)

	var result *discordgo.MessageEmbed
	switch awaitConfirmation(ctx, b.confirms, prompt.ID, m.Author.ID) {
	case ConfirmApproved:
		removed, err := b.sweeper.Sweep(days)
		if err != nil {
			ErrorLogger.Printf("Cleanup failed: %v", err)
			result = errorEmbed("Cleanup failed", "Could not delete the old data.")
			break
		}
		result = successEmbed("Cleanup complete",
			fmt.Sprintf("Removed %d tracking entries older than %d days.", removed, days))
	case ConfirmDeclined:
		result = infoEmbed("Cleanup cancelled", "No data was deleted.")
	case ConfirmExpired:
		result = warningEmbed("Confirmation expired", "Cleanup was cancelled after 30 seconds without a reaction.")
	}

	if _, err := b.dg.ChannelMessageEditEmbed(m.ChannelID, prompt.ID, result); err != nil {
		ErrorLogger.Printf("Failed to update confirmation message %s: %v", prompt.ID, err)
	}
}

func (b *Bot) cmdAdminTest(m *discordgo.Message, args []string) {
	conn, ok := b.resolveConnectionArg(m, args)
	if !ok {
		return
	}

	var results []string

	ch1, err1 := b.dg.Channel(conn.Channel1ID)
	ch2, err2 := b.dg.Channel(conn.Channel2ID)
	switch {
	case err1 == nil && ch1 != nil && err2 == nil && ch2 != nil:
		results = append(results, "✅ Both channels are reachable")
	case (err1 == nil && ch1 != nil) || (err2 == nil && ch2 != nil):
		results = append(results, "⚠️ One of the channels is unreachable")
	default:
		results = append(results, "❌ Both channels are unreachable")
	}

	required := int64(discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks |
		discordgo.PermissionAttachFiles)
	permsOK := true
	for _, channelID := range []string{conn.Channel1ID, conn.Channel2ID} {
		perms, err := b.dg.UserChannelPermissions(b.self(), channelID)
		if err != nil || perms&required != required {
			permsOK = false
		}
	}
	if permsOK {
		results = append(results, "✅ Bot permissions are in order")
	} else {
		results = append(results, "❌ Bot permissions are missing")
	}

	enabledOK := true
	for _, serverID := range []string{conn.Server1ID, conn.Server2ID} {
		settings, err := b.settings.GetOrCreate(serverID)
		if err != nil || !settings.Enabled {
			enabledOK = false
		}
	}
	if enabledOK {
		results = append(results, "✅ The bot is enabled on both servers")
	} else {
		results = append(results, "⚠️ The bot is disabled on one of the servers")
	}

	results = append(results, "✅ Connection is active")

	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "ℹ️ Connection test",
		Description: fmt.Sprintf("Results for **%s** (ID: %d)", conn.Name, conn.ID),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Results", Value: strings.Join(results, "\n")},
		},
	})
}

// === GENERAL COMMANDS ===

func (b *Bot) cmdHelp(m *discordgo.Message) {
	p := b.cfg.Prefix
	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "🤖 InterServer Bot",
		Description: "Relays messages between channels of different servers.",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔗 Connections", Value: fmt.Sprintf(
				"`%sconnect create <channel ID> <name>` create\n`%sconnect list [page]` list\n`%sconnect info <ID>` details\n`%sconnect remove <ID>` remove", p, p, p, p)},
			{Name: "⚙️ Administration", Value: fmt.Sprintf(
				"`%sadmin settings` server settings\n`%sadmin stats` bot statistics\n`%sinvite` invite the bot", p, p, p)},
			{Name: "📋 Requirements", Value: "The bot must be a member of both servers, with Manage Channels for whoever creates the connection."},
		},
	})
}

func (b *Bot) cmdInvite(m *discordgo.Message) {
	permissions := discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionEmbedLinks |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionManageMessages |
		discordgo.PermissionAddReactions |
		discordgo.PermissionUseExternalEmojis

	inviteURL := fmt.Sprintf(
		"https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands",
		b.self(), permissions)

	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "🤖 Invite the bot",
		Description: fmt.Sprintf("[Add the bot to another server](%s)", inviteURL),
		Color:       colorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: "The bot must be on both servers before a connection can be created"},
	})
}

// === HELPERS ===

func (b *Bot) addConfirmReactions(channelID, messageID string) {
	for _, emoji := range []string{emojiConfirm, emojiDecline} {
		if err := b.dg.MessageReactionAdd(channelID, messageID, emoji); err != nil {
			ErrorLogger.Printf("Failed to add reaction to message %s: %v", messageID, err)
		}
	}
}

// guildName resolves a guild id to its display name, falling back to the
// raw id when the guild cannot be fetched.
func (b *Bot) guildName(guildID string) string {
	guild, err := b.dg.Guild(guildID)
	if err != nil || guild == nil {
		return guildID
	}
	return guild.Name
}

func settingLabel(key SettingKey) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(key), "_", " "))
}

func onOff(enabled bool) string {
	if enabled {
		return "🟢 Enabled"
	}
	return "🔴 Disabled"
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "✅ " + title, Description: description, Color: colorSuccess}
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "❌ " + title, Description: description, Color: colorError}
}

func warningEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "⚠️ " + title, Description: description, Color: colorWarning}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "ℹ️ " + title, Description: description, Color: colorInfo}
}
