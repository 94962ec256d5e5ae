/* mock_session.go
 * Contains mock implementation of DiscordSession for testing purposes
 */

package bot

import "github.com/bwmarrin/discordgo"

// MockDiscordSession implements DiscordSession for testing purposes
type MockDiscordSession struct {
	// SentMessages stores all messages sent during tests
	SentMessages []MockMessage
	// DMChannels records the recipients DM channels were opened for
	DMChannels []string
	// GuildMembers is the set of user ids treated as members of any guild
	GuildMembers map[string]bool
	// CreatedChannels records GuildChannelCreateComplex calls
	CreatedChannels []discordgo.GuildChannelCreateData
	// ChannelEdits records ChannelEditComplex calls per channel id
	ChannelEdits map[string][]*discordgo.ChannelEdit
	// DeletedChannels records ChannelDelete calls
	DeletedChannels []string
	// CreatedInvites records ChannelInviteCreate calls
	CreatedInvites []MockInvite

	// ErrorToReturn allows tests to simulate errors on every call
	ErrorToReturn error
	// SendErrFor fails ChannelMessageSend for specific channel ids
	SendErrFor map[string]error
	// MemberLookupErr fails GuildMember lookups with a non not-found error
	MemberLookupErr error
	// MissingChannels makes ChannelEditComplex/ChannelDelete answer 404 for these ids
	MissingChannels map[string]bool

	nextChannelID int
}

// MockMessage represents a message sent to a channel
type MockMessage struct {
	ChannelID string
	Content   string
}

// MockInvite represents an invite created on a channel
type MockInvite struct {
	ChannelID string
	Invite    discordgo.Invite
}

// NewMockDiscordSession creates a new MockDiscordSession for testing
func NewMockDiscordSession() *MockDiscordSession {
	return &MockDiscordSession{
		GuildMembers:    make(map[string]bool),
		ChannelEdits:    make(map[string][]*discordgo.ChannelEdit),
		SendErrFor:      make(map[string]error),
		MissingChannels: make(map[string]bool),
	}
}

func unknownChannelErr() error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"}}
}

// ChannelMessageSend implements DiscordSession.ChannelMessageSend
func (m *MockDiscordSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	if err, ok := m.SendErrFor[channelID]; ok {
		return nil, err
	}

	m.SentMessages = append(m.SentMessages, MockMessage{
		ChannelID: channelID,
		Content:   content,
	})

	return &discordgo.Message{
		ID:        "mock_message_id",
		ChannelID: channelID,
		Content:   content,
	}, nil
}

// UserChannelCreate implements DiscordSession.UserChannelCreate. The returned DM
// channel id is deterministic so tests can target it with SendErrFor.
func (m *MockDiscordSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	m.DMChannels = append(m.DMChannels, recipientID)
	return &discordgo.Channel{ID: "dm_" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

// GuildMember implements DiscordSession.GuildMember
func (m *MockDiscordSession) GuildMember(guildID string, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if m.MemberLookupErr != nil {
		return nil, m.MemberLookupErr
	}
	if !m.GuildMembers[userID] {
		return nil, &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember, Message: "Unknown Member"}}
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}, nil
}

// ChannelInviteCreate implements DiscordSession.ChannelInviteCreate
func (m *MockDiscordSession) ChannelInviteCreate(channelID string, invite discordgo.Invite, options ...discordgo.RequestOption) (*discordgo.Invite, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	m.CreatedInvites = append(m.CreatedInvites, MockInvite{ChannelID: channelID, Invite: invite})
	created := invite
	created.Code = "mockinvite"
	return &created, nil
}

// GuildChannelCreateComplex implements DiscordSession.GuildChannelCreateComplex
func (m *MockDiscordSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	m.CreatedChannels = append(m.CreatedChannels, data)
	m.nextChannelID++
	return &discordgo.Channel{
		ID:                   "chan_" + data.Name,
		Name:                 data.Name,
		GuildID:              guildID,
		PermissionOverwrites: data.PermissionOverwrites,
	}, nil
}

// ChannelEditComplex implements DiscordSession.ChannelEditComplex
func (m *MockDiscordSession) ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	if m.MissingChannels[channelID] {
		return nil, unknownChannelErr()
	}
	m.ChannelEdits[channelID] = append(m.ChannelEdits[channelID], data)
	return &discordgo.Channel{ID: channelID, PermissionOverwrites: data.PermissionOverwrites}, nil
}

// ChannelDelete implements DiscordSession.ChannelDelete
func (m *MockDiscordSession) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	if m.MissingChannels[channelID] {
		return nil, unknownChannelErr()
	}
	m.DeletedChannels = append(m.DeletedChannels, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

// GetLastMessage returns the last message sent, or empty MockMessage if none
func (m *MockDiscordSession) GetLastMessage() MockMessage {
	if len(m.SentMessages) == 0 {
		return MockMessage{}
	}
	return m.SentMessages[len(m.SentMessages)-1]
}

// ClearMessages clears all stored messages
func (m *MockDiscordSession) ClearMessages() {
	m.SentMessages = nil
}
