/* bot.go
 * Contains logic used for creating the bot. Requires a discord bot token, the guild and
 * channel ids the bot operates on, and an APIPtr, all of which are passed in from main.go
 */

package bot

import (
	"fmt"

	"tourney-bot/api/api"
)

type Bot struct {
	BotToken        string
	GuildID         string
	AdminChannelID  string
	InviteChannelID string
	// Optional category the team channels are created under
	TeamCategoryID string
	APIPtr         *api.API

	notifier *Notifier
	gate     *GuildGate
	channels *ChannelSync
}

func NewBot(botToken string, guildID string, adminChannelID string, inviteChannelID string, teamCategoryID string, apiPtr *api.API) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if guildID == "" {
		return nil, fmt.Errorf("guildID is required but none was provided")
	}
	if apiPtr == nil {
		return nil, fmt.Errorf("apiPtr is required but none was provided")
	}

	return &Bot{
		BotToken:        botToken,
		GuildID:         guildID,
		AdminChannelID:  adminChannelID,
		InviteChannelID: inviteChannelID,
		TeamCategoryID:  teamCategoryID,
		APIPtr:          apiPtr,
	}, nil
}

// attachSession wires the session-backed components once a Discord session exists.
// Called from Run with the live session and from tests with a mock.
func (b *Bot) attachSession(session DiscordSession, botUserID string) {
	b.notifier = NewNotifierWithSession(session)
	b.gate = NewGuildGate(session, b.GuildID, b.InviteChannelID, b.notifier)
	b.channels = NewChannelSync(session, b.GuildID, botUserID, b.TeamCategoryID, b.gate)
	b.APIPtr.SetNotifier(b.notifier)
	b.APIPtr.SetTeamChannels(b.channels)
}
