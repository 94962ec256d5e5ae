/* guild.go
 * Contains the guild membership gate: membership checks and invite issuance. The two
 * operations treat failure differently on purpose: a membership check is best-effort
 * and never fatal to its caller, while a failed invite must be surfaced because the
 * player is left with no way into the guild.
 */

package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Single-use invites expire after a day
const inviteMaxAgeSeconds = 24 * 60 * 60

// GuildGate tracks whether a Discord identity belongs to the target guild and hands
// out invites to those who are not in yet
type GuildGate struct {
	session DiscordSession
	guildID string
	// Channel the invite is anchored to; Discord invites always target a channel
	inviteChannelID string
	notifier        *Notifier
}

// NewGuildGate creates a gate for the given guild
func NewGuildGate(session DiscordSession, guildID string, inviteChannelID string, notifier *Notifier) *GuildGate {
	return &GuildGate{
		session:         session,
		guildID:         guildID,
		inviteChannelID: inviteChannelID,
		notifier:        notifier,
	}
}

// IsMember reports whether the given discord id is currently a member of the guild.
// Lookup failures are swallowed and reported as false: callers use this on paths where
// an unreachable Discord must not break anything.
func (g *GuildGate) IsMember(discordID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	_, err := g.session.GuildMember(g.guildID, discordID, discordgo.WithContext(ctx))
	if err != nil {
		if !isUnknownMember(err) {
			log.Println("guild membership check failed, treating as non-member:", err)
		}
		return false
	}
	return true
}

// EnsureInvited issues a single-use, 24 hour invite and DMs it to the user if they are
// not already a guild member. Each call issues a fresh invite; deduplication is the
// caller's job via IsMember. Failures here propagate.
// Preconditions: Receives the discord id of the user to invite
// Postconditions: Invite DM delivered, or an error if issuance or delivery failed
func (g *GuildGate) EnsureInvited(discordID string) error {
	if g.IsMember(discordID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	invite, err := g.session.ChannelInviteCreate(g.inviteChannelID, discordgo.Invite{
		MaxAge:  inviteMaxAgeSeconds,
		MaxUses: 1,
		Unique:  true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to create guild invite: %w", err)
	}

	text := fmt.Sprintf("You need to join the tournament Discord server to receive lobby details. This invite is single-use and valid for 24 hours: https://discord.gg/%s", invite.Code)
	return g.notifier.SendDirectMessage(discordID, text)
}

func isUnknownMember(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember
}
