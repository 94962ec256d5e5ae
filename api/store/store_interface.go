/* store_interface.go
 * Contains the Store interface for dependency injection and testing
 */

package store

import (
	"context"

	"tourney-bot/api/shared"
)

// Interface defines the methods that Store implements.
// This allows for mocking in tests.
type Interface interface {
	// Tournament operations
	CreateTournament(t *shared.Tournament) error
	GetTournament(name string) (*shared.Tournament, error)
	ListTournaments() ([]shared.Tournament, error)
	DeleteTournament(name string) error
	JoinTournamentPlayer(name string, slot shared.PlayerSlot) (*shared.Tournament, error)
	JoinTournamentTeam(name string, slot shared.TeamSlot) (*shared.Tournament, error)
	LockTournament(name string) (bool, error)
	LeaveTournamentPlayer(name string, steamID string) error
	LeaveTournamentTeam(name string, teamID string) error
	SetLobby(name, lobbyName, lobbyPassword, region string) error

	// User operations
	GetUserBySteamID(steamID string) (*shared.User, error)
	GetUserByDiscordID(discordID string) (*shared.User, error)
	GetUsersBySteamIDs(steamIDs []string) ([]shared.User, error)
	UpsertUser(u *shared.User) error
	SetUserTeam(steamID string, teamID string) error
	SetGuildJoined(discordID string, joined bool) error

	// Team operations
	CreateTeam(team *shared.Team) error
	GetTeamByName(name string) (*shared.Team, error)
	AddTeamMember(name string, steamID string) error
	RemoveTeamMember(name string, steamID string) error
	SetTeamChannel(name string, channelID string) error

	// Getter methods for accessing fields
	GetClient() interface{ Disconnect(context.Context) error }
}

// Ensure Store implements Interface
var _ Interface = (*Store)(nil)

// GetClient returns the MongoDB client
func (s *Store) GetClient() interface{ Disconnect(context.Context) error } {
	return s.Client
}
