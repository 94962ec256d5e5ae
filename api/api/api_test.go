/* api_test.go
 * Contains unit tests for the join coordinator and lobby assignment
 */

package api

import (
	"errors"
	"testing"

	"tourney-bot/api/eligibility"
	"tourney-bot/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

// newTestAPI builds an API over the in-memory mocks with a handful of players: s1-s4
// are calibrated Archon/Legend players, s5 has a private history and s6 is uncalibrated
func newTestAPI() (*API, *MockStore, *MockNotifier) {
	ms := NewMockStore()
	ms.Users["s1"] = &shared.User{SteamID: "s1", Username: "carry", DiscordID: "d1", RankTier: intPtr(45), PublicMatchHistory: true}
	ms.Users["s2"] = &shared.User{SteamID: "s2", Username: "mid", DiscordID: "d2", RankTier: intPtr(52), PublicMatchHistory: true}
	ms.Users["s3"] = &shared.User{SteamID: "s3", Username: "offlane", DiscordID: "d3", RankTier: intPtr(48), PublicMatchHistory: true}
	ms.Users["s4"] = &shared.User{SteamID: "s4", Username: "support", DiscordID: "d4", RankTier: intPtr(55), PublicMatchHistory: true}
	ms.Users["s5"] = &shared.User{SteamID: "s5", Username: "anon", DiscordID: "d5", RankTier: intPtr(45), PublicMatchHistory: false}
	ms.Users["s6"] = &shared.User{SteamID: "s6", Username: "fresh", DiscordID: "d6", PublicMatchHistory: true}

	notifier := &MockNotifier{FailFor: map[string]string{}}
	a := &API{
		Store:            ms,
		History:          &MockHistory{Default: 300, Counts: map[string]int{}},
		Notifier:         notifier,
		MinRankedMatches: eligibility.DefaultMinRankedMatches,
		OperatorSteamIDs: []string{"op"},
		AdminChannelID:   "admin-chan",
	}
	return a, ms, notifier
}

func TestJoinTournament_SoloSuccess(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["weekly-cup"] = &shared.Tournament{Name: "weekly-cup", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 8}

	res, err := a.JoinTournament("weekly-cup", "s1")
	require.NoError(t, err)
	assert.False(t, res.Locked)
	assert.Equal(t, 1, res.Tournament.CurrentSlots)
	assert.Contains(t, res.Tournament.Players, "s1")
	require.Len(t, res.Tournament.PlayerObjects, 1)
	assert.Equal(t, "d1", res.Tournament.PlayerObjects[0].DiscordID)
}

func TestJoinTournament_NotEligible_MatchCount(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["weekly-cup"] = &shared.Tournament{Name: "weekly-cup", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 8}
	a.History.(*MockHistory).Counts["s1"] = 150

	_, err := a.JoinTournament("weekly-cup", "s1")
	var notEligible *shared.NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Len(t, notEligible.Violations, 1)
	assert.Contains(t, notEligible.Violations[0], "150 ranked matches")
}

// Every violated rule comes back in one response
func TestJoinTournament_NotEligible_AllRulesReported(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["herald-cup"] = &shared.Tournament{Name: "herald-cup", Type: shared.Type1v1, Bracket: "Herald", MaxSlots: 8}
	a.History.(*MockHistory).Counts["s5"] = 10

	_, err := a.JoinTournament("herald-cup", "s5")
	var notEligible *shared.NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	assert.Len(t, notEligible.Violations, 3)
}

func TestJoinTournament_AlreadyJoined(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["weekly-cup"] = &shared.Tournament{Name: "weekly-cup", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 8}

	_, err := a.JoinTournament("weekly-cup", "s1")
	require.NoError(t, err)
	_, err = a.JoinTournament("weekly-cup", "s1")
	assert.ErrorIs(t, err, shared.ErrAlreadyJoined)
}

func TestJoinTournament_UnknownBracketIsExplicitError(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["broken"] = &shared.Tournament{Name: "broken", Type: shared.Type1v1, Bracket: "Platinum", MaxSlots: 8}

	_, err := a.JoinTournament("broken", "s1")
	assert.ErrorIs(t, err, shared.ErrUnknownBracket)
}

// The join that fills the last slot performs the lock transition and the admin alert
// fires exactly once, no matter how many later joins bounce off the locked document
func TestJoinTournament_FillLocksExactlyOnce(t *testing.T) {
	a, ms, notifier := newTestAPI()
	ms.Tournaments["duel"] = &shared.Tournament{Name: "duel", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 2}

	res, err := a.JoinTournament("duel", "s1")
	require.NoError(t, err)
	assert.False(t, res.Locked)
	assert.Empty(t, notifier.ChannelMessages)

	res, err = a.JoinTournament("duel", "s2")
	require.NoError(t, err)
	assert.True(t, res.Locked)
	assert.True(t, res.Tournament.IsLocked)

	_, err = a.JoinTournament("duel", "s3")
	assert.ErrorIs(t, err, shared.ErrTournamentLocked)

	require.Len(t, notifier.ChannelMessages, 1)
	assert.Equal(t, "admin-chan", notifier.ChannelMessages[0].Target)
	assert.Contains(t, notifier.ChannelMessages[0].Text, "duel")

	tournament, err := ms.GetTournament("duel")
	require.NoError(t, err)
	assert.NotNil(t, tournament.GraceStart)
	assert.Equal(t, 2, tournament.CurrentSlots)
}

func TestJoinTournament_TeamMode_NoTeam(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["clash"] = &shared.Tournament{Name: "clash", Type: shared.Type5v5, Bracket: "Archon-Legend", MaxSlots: 4}

	_, err := a.JoinTournament("clash", "s1")
	assert.ErrorIs(t, err, shared.ErrNoTeam)
}

func TestJoinTournament_TeamMode_NotCaptain(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["clash"] = &shared.Tournament{Name: "clash", Type: shared.Type5v5, Bracket: "Archon-Legend", MaxSlots: 4}
	ms.Teams["alpha"] = &shared.Team{Name: "alpha", CaptainID: "s1", MemberIDs: []string{"s1", "s2"}}
	ms.Users["s2"].TeamID = "alpha"

	_, err := a.JoinTournament("clash", "s2")
	assert.ErrorIs(t, err, shared.ErrNotCaptain)
}

func TestJoinTournament_TeamMode_Success(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["clash"] = &shared.Tournament{Name: "clash", Type: shared.TypeTurbo, Bracket: "Archon-Legend", MaxSlots: 4}
	ms.Teams["alpha"] = &shared.Team{Name: "alpha", CaptainID: "s1", MemberIDs: []string{"s1", "s2", "s6"}}
	ms.Users["s1"].TeamID = "alpha"
	ms.Users["s2"].TeamID = "alpha"
	ms.Users["s6"].TeamID = "alpha"

	// s6 is uncalibrated: excluded from the average (45+52)/2 = 49, inside Archon-Legend
	res, err := a.JoinTournament("clash", "s1")
	require.NoError(t, err)
	assert.Contains(t, res.Tournament.Teams, "alpha")
	require.Len(t, res.Tournament.TeamObjects, 1)
	assert.Len(t, res.Tournament.TeamObjects[0].Members, 3)
}

// Leaving a locked tournament frees the slot count but never clears the lock, so the
// freed slot cannot be re-filled through join
func TestLeaveTournament_KeepsLock(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["duel"] = &shared.Tournament{Name: "duel", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 2}

	_, err := a.JoinTournament("duel", "s1")
	require.NoError(t, err)
	_, err = a.JoinTournament("duel", "s2")
	require.NoError(t, err)

	require.NoError(t, a.LeaveTournament("duel", "s2"))

	tournament, err := ms.GetTournament("duel")
	require.NoError(t, err)
	assert.Equal(t, 1, tournament.CurrentSlots)
	assert.True(t, tournament.IsLocked)

	_, err = a.JoinTournament("duel", "s3")
	assert.ErrorIs(t, err, shared.ErrTournamentLocked)
}

func TestAssignLobby_RequiresOperator(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["duel"] = &shared.Tournament{Name: "duel", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 2}

	err := a.AssignLobby("duel", "lobby", "pass", "EU West", "s1")
	assert.ErrorIs(t, err, shared.ErrNotOperator)
}

func TestAssignLobby_RequiresAllFields(t *testing.T) {
	a, _, _ := newTestAPI()

	err := a.AssignLobby("duel", "lobby", "", "EU West", "op")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

// Team rosters are flattened so every individual member gets the credentials
func TestAssignLobby_FlattensTeamRosters(t *testing.T) {
	a, ms, notifier := newTestAPI()
	ms.Tournaments["clash"] = &shared.Tournament{
		Name: "clash", Type: shared.Type5v5, Bracket: "Archon-Legend", MaxSlots: 2, CurrentSlots: 2, IsLocked: true,
		Teams: []string{"alpha", "beta"},
		TeamObjects: []shared.TeamSlot{
			{TeamID: "alpha", Name: "alpha", CaptainID: "s1", Members: []shared.PlayerSlot{
				{SteamID: "s1", Username: "carry", DiscordID: "d1"},
				{SteamID: "s2", Username: "mid", DiscordID: "d2"},
			}},
			{TeamID: "beta", Name: "beta", CaptainID: "s3", Members: []shared.PlayerSlot{
				{SteamID: "s3", Username: "offlane", DiscordID: "d3"},
				{SteamID: "s4", Username: "support", DiscordID: "d4"},
			}},
		},
	}

	err := a.AssignLobby("clash", "Clash Lobby", "hunter2", "EU West", "op")
	require.NoError(t, err)
	assert.Len(t, notifier.DirectMessages, 4)
	assert.Contains(t, notifier.DirectMessages[0].Text, "hunter2")

	tournament, err := ms.GetTournament("clash")
	require.NoError(t, err)
	assert.Equal(t, "Clash Lobby", tournament.LobbyName)
}

// One blocked recipient must not abort delivery to the rest, and the credentials stay
// assigned even though the batch partially failed
func TestAssignLobby_PartialDelivery(t *testing.T) {
	a, ms, notifier := newTestAPI()
	ms.Tournaments["duel"] = &shared.Tournament{
		Name: "duel", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 5, CurrentSlots: 5, IsLocked: true,
		Players: []string{"s1", "s2", "s3", "s4", "s5"},
		PlayerObjects: []shared.PlayerSlot{
			{SteamID: "s1", Username: "carry", DiscordID: "d1"},
			{SteamID: "s2", Username: "mid", DiscordID: "d2"},
			{SteamID: "s3", Username: "offlane", DiscordID: "d3"},
			{SteamID: "s4", Username: "support", DiscordID: "d4"},
			{SteamID: "s5", Username: "anon", DiscordID: "d5"},
		},
	}
	notifier.FailFor["d3"] = "cannot send messages to this user"

	err := a.AssignLobby("duel", "Duel Lobby", "hunter2", "EU West", "op")
	var partial *shared.PartialDeliveryError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "offlane", partial.Failed[0].Recipient.Username)
	assert.Len(t, notifier.DirectMessages, 4)

	tournament, getErr := ms.GetTournament("duel")
	require.NoError(t, getErr)
	assert.Equal(t, "Duel Lobby", tournament.LobbyName)
}

func TestCreateTournament_Validation(t *testing.T) {
	a, _, _ := newTestAPI()

	assert.ErrorIs(t, a.CreateTournament("x", shared.Type1v1, "Herald", 8, "s1"), shared.ErrNotOperator)
	assert.ErrorIs(t, a.CreateTournament("", shared.Type1v1, "Herald", 8, "op"), shared.ErrValidation)
	assert.ErrorIs(t, a.CreateTournament("x", "2v2", "Herald", 8, "op"), shared.ErrInvalidTournamentType)
	assert.ErrorIs(t, a.CreateTournament("x", shared.Type1v1, "Herald", 0, "op"), shared.ErrInvalidCapacity)
	assert.ErrorIs(t, a.CreateTournament("x", shared.Type1v1, "Platinum", 8, "op"), shared.ErrUnknownBracket)
}

func TestCreateTournament_Success(t *testing.T) {
	a, ms, _ := newTestAPI()

	require.NoError(t, a.CreateTournament("weekly-cup", shared.Type1v1, "Archon-Legend", 8, "op"))
	tournament, err := ms.GetTournament("weekly-cup")
	require.NoError(t, err)
	assert.Equal(t, 8, tournament.MaxSlots)
	assert.False(t, tournament.IsLocked)
}

func TestCreateTeam_And_Membership(t *testing.T) {
	a, ms, _ := newTestAPI()

	require.NoError(t, a.CreateTeam("alpha", "s1"))
	assert.Equal(t, "alpha", ms.Users["s1"].TeamID)

	// Captain adds a member, a stranger cannot
	assert.ErrorIs(t, a.AddTeamMember("alpha", "s3", "s2"), shared.ErrNotCaptain)
	require.NoError(t, a.AddTeamMember("alpha", "s1", "s2"))
	assert.Equal(t, "alpha", ms.Users["s2"].TeamID)

	// A member may remove themselves, the captain may not be removed
	require.NoError(t, a.RemoveTeamMember("alpha", "s2", "s2"))
	assert.Equal(t, "", ms.Users["s2"].TeamID)
	assert.ErrorIs(t, a.RemoveTeamMember("alpha", "s1", "s1"), shared.ErrNotCaptain)

	err := a.CreateTeam("beta", "s1")
	assert.True(t, errors.Is(err, shared.ErrUserAlreadyInTeam))
}

func TestJoinTournament_DuplicateAnsweredBeforeEligibility(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Tournaments["duel"] = &shared.Tournament{
		Name: "duel", Type: shared.Type1v1, Bracket: "Archon-Legend", MaxSlots: 8,
		CurrentSlots: 1,
		Players:      []string{"s1"},
		PlayerObjects: []shared.PlayerSlot{
			{SteamID: "s1", Username: "carry", DiscordID: "d1"},
		},
	}
	// Simulate the history provider being down: every count reads as zero, which
	// would fail the ranked-matches gate if eligibility were evaluated
	a.History = &MockHistory{Default: 0}

	_, err := a.JoinTournament("duel", "s1")
	assert.ErrorIs(t, err, shared.ErrAlreadyJoined)

	var notEligible *shared.NotEligibleError
	assert.False(t, errors.As(err, &notEligible))
}

func TestJoinTournament_TeamMode_DuplicateAnsweredBeforeEligibility(t *testing.T) {
	a, ms, _ := newTestAPI()
	ms.Teams["alpha"] = &shared.Team{Name: "alpha", CaptainID: "s1", MemberIDs: []string{"s1", "s2"}}
	ms.Users["s1"].TeamID = "alpha"
	ms.Users["s2"].TeamID = "alpha"
	ms.Tournaments["clash"] = &shared.Tournament{
		Name: "clash", Type: shared.Type5v5, Bracket: "Archon-Legend", MaxSlots: 4,
		CurrentSlots: 1,
		Teams:        []string{"alpha"},
	}
	a.History = &MockHistory{Default: 0}

	// Even a non-captain member of the registered team gets the duplicate answer
	_, err := a.JoinTournament("clash", "s2")
	assert.ErrorIs(t, err, shared.ErrAlreadyJoined)
}

func TestTeamMembership_RosterChangeSyncsChannel(t *testing.T) {
	a, ms, _ := newTestAPI()
	channels := &MockTeamChannels{}
	a.SetTeamChannels(channels)

	require.NoError(t, a.CreateTeam("alpha", "s1"))
	ms.Teams["alpha"].ChannelID = "chan_alpha"

	require.NoError(t, a.AddTeamMember("alpha", "s1", "s2"))
	require.Len(t, channels.Syncs, 1)
	assert.Equal(t, "chan_alpha", channels.Syncs[0].ChannelID)
	assert.Equal(t, []string{"d1", "d2"}, channels.Syncs[0].MemberIDs)

	// Removal re-syncs without the departed member
	require.NoError(t, a.RemoveTeamMember("alpha", "s2", "s2"))
	require.Len(t, channels.Syncs, 2)
	assert.Equal(t, []string{"d1"}, channels.Syncs[1].MemberIDs)
}

func TestTeamMembership_NoChannelNoSync(t *testing.T) {
	a, _, _ := newTestAPI()
	channels := &MockTeamChannels{}
	a.SetTeamChannels(channels)

	require.NoError(t, a.CreateTeam("alpha", "s1"))
	require.NoError(t, a.AddTeamMember("alpha", "s1", "s2"))

	assert.Empty(t, channels.Syncs)
}

func TestTeamMembership_SyncFailureDoesNotRevertRoster(t *testing.T) {
	a, ms, _ := newTestAPI()
	channels := &MockTeamChannels{SyncError: errors.New("discord is down")}
	a.SetTeamChannels(channels)

	require.NoError(t, a.CreateTeam("alpha", "s1"))
	ms.Teams["alpha"].ChannelID = "chan_alpha"

	require.NoError(t, a.AddTeamMember("alpha", "s1", "s2"))
	assert.Contains(t, ms.Teams["alpha"].MemberIDs, "s2")
}
