// discord_client_mock.go
package main

import (
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
)

// MockDiscordClient is a mock implementation of DiscordClient for testing.
// Individual methods can be overridden through the function fields; methods
// without an override fall back to testify expectations.
type MockDiscordClient struct {
	mock.Mock
	SendComplexFunc func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	SendEmbedFunc   func(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
	PermissionsFunc func(userID, channelID string) (int64, error)
	ChannelFunc     func(channelID string) (*discordgo.Channel, error)
	GuildFunc       func(guildID string) (*discordgo.Guild, error)
}

func (m *MockDiscordClient) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.SendComplexFunc != nil {
		return m.SendComplexFunc(channelID, data)
	}
	args := m.Called(channelID, data)
	if msg, ok := args.Get(0).(*discordgo.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiscordClient) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.SendEmbedFunc != nil {
		return m.SendEmbedFunc(channelID, embed)
	}
	args := m.Called(channelID, embed)
	if msg, ok := args.Get(0).(*discordgo.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiscordClient) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	args := m.Called(channelID, messageID, embed)
	if msg, ok := args.Get(0).(*discordgo.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiscordClient) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	args := m.Called(channelID, messageID)
	return args.Error(0)
}

func (m *MockDiscordClient) MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error {
	args := m.Called(channelID, messageID, emojiID)
	return args.Error(0)
}

func (m *MockDiscordClient) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	if m.PermissionsFunc != nil {
		return m.PermissionsFunc(userID, channelID)
	}
	args := m.Called(userID, channelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiscordClient) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ChannelFunc != nil {
		return m.ChannelFunc(channelID)
	}
	args := m.Called(channelID)
	if ch, ok := args.Get(0).(*discordgo.Channel); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiscordClient) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if m.GuildFunc != nil {
		return m.GuildFunc(guildID)
	}
	args := m.Called(guildID)
	if g, ok := args.Get(0).(*discordgo.Guild); ok {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}
