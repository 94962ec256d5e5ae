/* test_mocks.go
 * Contains mock structures for testing the API package and its consumers. The mock
 * store reproduces the conditional-update semantics of the real store so join races,
 * lock transitions and leave behavior can be exercised without a database.
 */

package api

import (
	"context"
	"fmt"
	"time"

	"tourney-bot/api/shared"
	"tourney-bot/api/store"
)

// MockStore implements the store.Interface for testing
type MockStore struct {
	Tournaments map[string]*shared.Tournament
	Users       map[string]*shared.User // keyed by steam id
	Teams       map[string]*shared.Team

	LockCalls int

	// Error injection for testing error paths
	JoinError   error
	LockError   error
	LobbyError  error
	CreateError error
}

var _ store.Interface = (*MockStore)(nil)

// NewMockStore creates a MockStore with empty collections
func NewMockStore() *MockStore {
	return &MockStore{
		Tournaments: make(map[string]*shared.Tournament),
		Users:       make(map[string]*shared.User),
		Teams:       make(map[string]*shared.Team),
	}
}

func (m *MockStore) CreateTournament(t *shared.Tournament) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.Tournaments[t.Name]; ok {
		return shared.ErrTournamentNameConflict
	}
	m.Tournaments[t.Name] = t
	return nil
}

func (m *MockStore) GetTournament(name string) (*shared.Tournament, error) {
	t, ok := m.Tournaments[name]
	if !ok {
		return nil, shared.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MockStore) ListTournaments() ([]shared.Tournament, error) {
	var out []shared.Tournament
	for _, t := range m.Tournaments {
		out = append(out, *t)
	}
	return out, nil
}

func (m *MockStore) DeleteTournament(name string) error {
	if _, ok := m.Tournaments[name]; !ok {
		return shared.ErrTournamentNotFound
	}
	delete(m.Tournaments, name)
	return nil
}

func (m *MockStore) JoinTournamentPlayer(name string, slot shared.PlayerSlot) (*shared.Tournament, error) {
	if m.JoinError != nil {
		return nil, m.JoinError
	}
	t, ok := m.Tournaments[name]
	if !ok {
		return nil, shared.ErrTournamentNotFound
	}
	for _, id := range t.Players {
		if id == slot.SteamID {
			return nil, shared.ErrAlreadyJoined
		}
	}
	if t.IsLocked {
		return nil, shared.ErrTournamentLocked
	}
	if t.CurrentSlots >= t.MaxSlots {
		return nil, shared.ErrTournamentFull
	}
	t.CurrentSlots++
	t.Players = append(t.Players, slot.SteamID)
	t.PlayerObjects = append(t.PlayerObjects, slot)
	copied := *t
	return &copied, nil
}

func (m *MockStore) JoinTournamentTeam(name string, slot shared.TeamSlot) (*shared.Tournament, error) {
	if m.JoinError != nil {
		return nil, m.JoinError
	}
	t, ok := m.Tournaments[name]
	if !ok {
		return nil, shared.ErrTournamentNotFound
	}
	for _, id := range t.Teams {
		if id == slot.TeamID {
			return nil, shared.ErrAlreadyJoined
		}
	}
	if t.IsLocked {
		return nil, shared.ErrTournamentLocked
	}
	if t.CurrentSlots >= t.MaxSlots {
		return nil, shared.ErrTournamentFull
	}
	t.CurrentSlots++
	t.Teams = append(t.Teams, slot.TeamID)
	t.TeamObjects = append(t.TeamObjects, slot)
	copied := *t
	return &copied, nil
}

func (m *MockStore) LockTournament(name string) (bool, error) {
	m.LockCalls++
	if m.LockError != nil {
		return false, m.LockError
	}
	t, ok := m.Tournaments[name]
	if !ok {
		return false, shared.ErrTournamentNotFound
	}
	if t.IsLocked || t.CurrentSlots < t.MaxSlots {
		return false, nil
	}
	now := time.Now().UTC()
	t.IsLocked = true
	t.GraceStart = &now
	return true, nil
}

func (m *MockStore) LeaveTournamentPlayer(name string, steamID string) error {
	t, ok := m.Tournaments[name]
	if !ok {
		return shared.ErrTournamentNotFound
	}
	for i, id := range t.Players {
		if id == steamID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			t.PlayerObjects = append(t.PlayerObjects[:i], t.PlayerObjects[i+1:]...)
			t.CurrentSlots--
			return nil
		}
	}
	return shared.ErrParticipantNotFound
}

func (m *MockStore) LeaveTournamentTeam(name string, teamID string) error {
	t, ok := m.Tournaments[name]
	if !ok {
		return shared.ErrTournamentNotFound
	}
	for i, id := range t.Teams {
		if id == teamID {
			t.Teams = append(t.Teams[:i], t.Teams[i+1:]...)
			t.TeamObjects = append(t.TeamObjects[:i], t.TeamObjects[i+1:]...)
			t.CurrentSlots--
			return nil
		}
	}
	return shared.ErrParticipantNotFound
}

func (m *MockStore) SetLobby(name, lobbyName, lobbyPassword, region string) error {
	if m.LobbyError != nil {
		return m.LobbyError
	}
	t, ok := m.Tournaments[name]
	if !ok {
		return shared.ErrTournamentNotFound
	}
	t.LobbyName = lobbyName
	t.LobbyPassword = lobbyPassword
	t.ServerRegion = region
	return nil
}

func (m *MockStore) GetUserBySteamID(steamID string) (*shared.User, error) {
	u, ok := m.Users[steamID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return u, nil
}

func (m *MockStore) GetUserByDiscordID(discordID string) (*shared.User, error) {
	for _, u := range m.Users {
		if u.DiscordID == discordID {
			return u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (m *MockStore) GetUsersBySteamIDs(steamIDs []string) ([]shared.User, error) {
	var out []shared.User
	for _, id := range steamIDs {
		if u, ok := m.Users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MockStore) UpsertUser(u *shared.User) error {
	m.Users[u.SteamID] = u
	return nil
}

func (m *MockStore) SetUserTeam(steamID string, teamID string) error {
	u, ok := m.Users[steamID]
	if !ok {
		return shared.ErrUserNotFound
	}
	u.TeamID = teamID
	return nil
}

func (m *MockStore) SetGuildJoined(discordID string, joined bool) error {
	for _, u := range m.Users {
		if u.DiscordID == discordID {
			u.JoinedGuildServer = joined
			return nil
		}
	}
	return shared.ErrUserNotFound
}

func (m *MockStore) CreateTeam(team *shared.Team) error {
	if _, ok := m.Teams[team.Name]; ok {
		return shared.ErrTeamNameConflict
	}
	m.Teams[team.Name] = team
	return nil
}

func (m *MockStore) GetTeamByName(name string) (*shared.Team, error) {
	team, ok := m.Teams[name]
	if !ok {
		return nil, shared.ErrTeamNotFound
	}
	return team, nil
}

func (m *MockStore) AddTeamMember(name string, steamID string) error {
	team, ok := m.Teams[name]
	if !ok {
		return shared.ErrTeamNotFound
	}
	for _, id := range team.MemberIDs {
		if id == steamID {
			return nil
		}
	}
	team.MemberIDs = append(team.MemberIDs, steamID)
	return nil
}

func (m *MockStore) RemoveTeamMember(name string, steamID string) error {
	team, ok := m.Teams[name]
	if !ok {
		return shared.ErrTeamNotFound
	}
	if team.CaptainID == steamID {
		return shared.ErrNotCaptain
	}
	for i, id := range team.MemberIDs {
		if id == steamID {
			team.MemberIDs = append(team.MemberIDs[:i], team.MemberIDs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockStore) SetTeamChannel(name string, channelID string) error {
	team, ok := m.Teams[name]
	if !ok {
		return shared.ErrTeamNotFound
	}
	team.ChannelID = channelID
	return nil
}

type mockClient struct{}

func (mockClient) Disconnect(context.Context) error { return nil }

// GetClient returns a no-op client handle
func (m *MockStore) GetClient() interface{ Disconnect(context.Context) error } {
	return mockClient{}
}

// MockHistory implements MatchHistory with fixed per-player counts
type MockHistory struct {
	Counts map[string]int
	// Default is returned for players without an entry in Counts
	Default int
}

func (m *MockHistory) CountRankedMatches(accountID string) int {
	if n, ok := m.Counts[accountID]; ok {
		return n
	}
	return m.Default
}

// MockTeamChannels implements TeamChannels and records every resync request
type MockTeamChannels struct {
	Syncs []MockChannelSync

	// SyncError fails every UpdateChannelPermissions call
	SyncError error
}

// MockChannelSync is a single recorded permission resync
type MockChannelSync struct {
	ChannelID string
	MemberIDs []string
}

func (m *MockTeamChannels) UpdateChannelPermissions(channelID string, memberIDs []string) error {
	if m.SyncError != nil {
		return m.SyncError
	}
	m.Syncs = append(m.Syncs, MockChannelSync{ChannelID: channelID, MemberIDs: memberIDs})
	return nil
}

// MockNotifier implements Notifier and records everything sent through it
type MockNotifier struct {
	DirectMessages  []MockDelivery
	ChannelMessages []MockDelivery
	Broadcasts      [][]shared.Recipient

	// FailFor maps discord ids to a failure reason for Broadcast and SendDirectMessage
	FailFor map[string]string
}

// MockDelivery is a single recorded send
type MockDelivery struct {
	Target string
	Text   string
}

func (m *MockNotifier) SendDirectMessage(discordID string, text string) error {
	if reason, ok := m.FailFor[discordID]; ok {
		return fmt.Errorf("%s", reason)
	}
	m.DirectMessages = append(m.DirectMessages, MockDelivery{Target: discordID, Text: text})
	return nil
}

func (m *MockNotifier) SendChannelMessage(channelID string, text string) error {
	m.ChannelMessages = append(m.ChannelMessages, MockDelivery{Target: channelID, Text: text})
	return nil
}

func (m *MockNotifier) Broadcast(recipients []shared.Recipient, text string) error {
	m.Broadcasts = append(m.Broadcasts, recipients)
	var failed []shared.DeliveryFailure
	for _, r := range recipients {
		if err := m.SendDirectMessage(r.DiscordID, text); err != nil {
			failed = append(failed, shared.DeliveryFailure{Recipient: r, Reason: err.Error()})
		}
	}
	if len(failed) > 0 {
		return &shared.PartialDeliveryError{Failed: failed}
	}
	return nil
}
