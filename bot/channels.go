/* channels.go
 * Contains the team channel synchronizer. A team's private channel mirrors its roster:
 * visible to the bot and the roster members who are actually in the guild, denied to
 * everyone else. Permission state is always recomputed in full from the current roster
 * and replaced wholesale, so stale overwrites can never accumulate.
 */

package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const memberChannelPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory

const botChannelPermissions = memberChannelPermissions |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageRoles

// ChannelSync creates and maintains private team channels
type ChannelSync struct {
	session   DiscordSession
	guildID   string
	botUserID string
	// Optional category the team channels are grouped under
	parentID string
	gate     *GuildGate
}

// NewChannelSync creates a synchronizer for the given guild
func NewChannelSync(session DiscordSession, guildID string, botUserID string, parentID string, gate *GuildGate) *ChannelSync {
	return &ChannelSync{
		session:   session,
		guildID:   guildID,
		botUserID: botUserID,
		parentID:  parentID,
		gate:      gate,
	}
}

// ComputeOverwrites builds the full permission overwrite set for a team channel: the
// guild's everyone role (whose id equals the guild id) is denied view, the bot gets
// management access and every roster member gets read/write. Pure function, called
// fresh on every create and sync.
func ComputeOverwrites(botUserID string, guildID string, memberIDs []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    botUserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: botChannelPermissions,
		},
	}
	for _, id := range memberIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberChannelPermissions,
		})
	}
	return overwrites
}

// CreateTeamChannel creates a private text channel for a team. Roster members who are
// not in the guild are skipped with a warning, not an error; they gain access on the
// next sync after joining.
// Preconditions: Receives the team name and the members' discord ids
// Postconditions: Returns the created channel's id, or an error
func (cs *ChannelSync) CreateTeamChannel(teamName string, memberIDs []string) (string, error) {
	present := cs.filterGuildMembers(memberIDs)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	channel, err := cs.session.GuildChannelCreateComplex(cs.guildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(teamName),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             cs.parentID,
		PermissionOverwrites: ComputeOverwrites(cs.botUserID, cs.guildID, present),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create team channel for %q: %w", teamName, err)
	}
	return channel.ID, nil
}

// UpdateChannelPermissions replaces the channel's entire overwrite set with one
// recomputed from the current roster. Idempotent; safe to call after every roster
// change or just on suspicion.
func (cs *ChannelSync) UpdateChannelPermissions(channelID string, memberIDs []string) error {
	present := cs.filterGuildMembers(memberIDs)
	overwrites := ComputeOverwrites(cs.botUserID, cs.guildID, present)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	_, err := cs.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to sync permissions on channel %s: %w", channelID, err)
	}
	return nil
}

// DeleteTeamChannel removes a team channel. Best-effort: a channel that is already
// gone counts as deleted.
func (cs *ChannelSync) DeleteTeamChannel(channelID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if _, err := cs.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		if isUnknownChannel(err) {
			return nil
		}
		return fmt.Errorf("failed to delete channel %s: %w", channelID, err)
	}
	return nil
}

// filterGuildMembers drops roster members who are not verifiably in the guild.
// Departed members lose channel visibility here without being touched in the team
// roster itself.
func (cs *ChannelSync) filterGuildMembers(memberIDs []string) []string {
	var present []string
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if !cs.gate.IsMember(id) {
			log.Printf("skipping %s for channel permissions: not a guild member\n", id)
			continue
		}
		present = append(present, id)
	}
	return present
}

func channelName(teamName string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(teamName), " ", "-"))
}

func isUnknownChannel(err error) bool {
	restErr, ok := err.(*discordgo.RESTError)
	return ok && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}
