/* models.go
 * This file contains the structs and helper functions that are shared between sub packages
 */

package shared

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tournament types. Turbo and 5v5 are team modes, 1v1 is solo.
const (
	Type1v1   = "1v1"
	Type5v5   = "5v5"
	TypeTurbo = "turbo"
)

// User represents a registered player. The steam id is the stable external key;
// the discord id is optional and linked after signup.
type User struct {
	Id                 primitive.ObjectID `bson:"_id,omitempty"`
	SteamID            string             `bson:"steam_id"`
	Username           string             `bson:"username"`
	DiscordID          string             `bson:"discord_id,omitempty"`
	RankTier           *int               `bson:"rank_tier,omitempty"`
	PublicMatchHistory bool               `bson:"public_match_history"`
	TeamID             string             `bson:"team_id,omitempty"`
	// Last-known-good cache of guild membership so we don't re-query Discord on every page load
	JoinedGuildServer bool `bson:"joined_guild_server"`
}

// Team represents a player team. The captain is always present in MemberIDs and is
// the only member allowed to perform team level actions.
type Team struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CaptainID string             `bson:"captain_id"`
	MemberIDs []string           `bson:"member_ids"`
	// Discord channel mirroring this team's roster, empty until created
	ChannelID string `bson:"channel_id,omitempty"`
}

// PlayerSlot is the denormalised display object appended to a tournament roster
// when a player joins
type PlayerSlot struct {
	SteamID   string `bson:"steam_id"`
	Username  string `bson:"username"`
	DiscordID string `bson:"discord_id,omitempty"`
}

// TeamSlot is the denormalised snapshot appended to a tournament roster when a
// team joins. Members are captured at join time.
type TeamSlot struct {
	TeamID    string       `bson:"team_id"`
	Name      string       `bson:"name"`
	CaptainID string       `bson:"captain_id"`
	Members   []PlayerSlot `bson:"members"`
}

// Tournament represents a tournament document. CurrentSlots never exceeds MaxSlots
// and IsLocked is set exactly once, by the join that fills the last slot.
type Tournament struct {
	Id            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Type          string             `bson:"type"`
	Bracket       string             `bson:"bracket"`
	MaxSlots      int                `bson:"max_slots"`
	CurrentSlots  int                `bson:"current_slots"`
	IsLocked      bool               `bson:"is_locked"`
	GraceStart    *time.Time         `bson:"grace_start,omitempty"`
	Players       []string           `bson:"players,omitempty"`
	PlayerObjects []PlayerSlot       `bson:"player_objects,omitempty"`
	Teams         []string           `bson:"teams,omitempty"`
	TeamObjects   []TeamSlot         `bson:"team_objects,omitempty"`
	LobbyName     string             `bson:"lobby_name,omitempty"`
	LobbyPassword string             `bson:"lobby_password,omitempty"`
	ServerRegion  string             `bson:"server_region,omitempty"`
}

// IsTeamMode returns true if the tournament is joined by teams rather than
// individual players
func (t *Tournament) IsTeamMode() bool {
	return t.Type != Type1v1
}

// Participant is a tagged union over the two roster shapes: a solo player or a
// team flattened to its members. Exactly one of Player or Team is set.
type Participant struct {
	Player *PlayerSlot
	Team   *TeamSlot
}

// Recipient is a single notifiable identity, produced by flattening participants
type Recipient struct {
	SteamID   string
	Username  string
	DiscordID string
}

// Participants returns the registered participants of a tournament as a uniform
// slice, regardless of mode
func (t *Tournament) Participants() []Participant {
	var out []Participant
	if t.IsTeamMode() {
		for i := range t.TeamObjects {
			out = append(out, Participant{Team: &t.TeamObjects[i]})
		}
		return out
	}
	for i := range t.PlayerObjects {
		out = append(out, Participant{Player: &t.PlayerObjects[i]})
	}
	return out
}

// Recipients flattens a participant to the individual identities that should
// receive direct messages. Team rosters are expanded member by member.
func (p Participant) Recipients() []Recipient {
	if p.Player != nil {
		return []Recipient{{SteamID: p.Player.SteamID, Username: p.Player.Username, DiscordID: p.Player.DiscordID}}
	}
	var out []Recipient
	if p.Team != nil {
		for _, m := range p.Team.Members {
			out = append(out, Recipient{SteamID: m.SteamID, Username: m.Username, DiscordID: m.DiscordID})
		}
	}
	return out
}

// FlattenRecipients expands every registered participant of a tournament to the
// full list of notifiable identities
func (t *Tournament) FlattenRecipients() []Recipient {
	var out []Recipient
	for _, p := range t.Participants() {
		out = append(out, p.Recipients()...)
	}
	return out
}
