/* handlers_test.go
 * Contains unit tests for the HTTP handlers using httptest against the chi router
 */

package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourney-bot/api/api"
	"tourney-bot/api/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(tier int) *int { return &tier }

func newTestServer(t *testing.T) (*Server, *api.MockStore, *api.MockNotifier) {
	t.Helper()

	mockStore := api.NewMockStore()
	mockStore.Users["s1"] = &shared.User{SteamID: "s1", Username: "carry", DiscordID: "d1", RankTier: rank(55), PublicMatchHistory: true}
	mockStore.Users["s2"] = &shared.User{SteamID: "s2", Username: "mid", DiscordID: "d2", RankTier: rank(52), PublicMatchHistory: true}
	mockStore.Users["s3"] = &shared.User{SteamID: "s3", Username: "herald", DiscordID: "d3", RankTier: rank(12), PublicMatchHistory: true}
	mockStore.Users["op"] = &shared.User{SteamID: "op", Username: "operator", DiscordID: "d-op", RankTier: rank(58), PublicMatchHistory: true}
	mockStore.Tournaments["autumn-brawl"] = &shared.Tournament{Name: "autumn-brawl", Type: shared.Type1v1, Bracket: "Legend", MaxSlots: 8}

	notifier := &api.MockNotifier{FailFor: make(map[string]string)}
	apiPtr := &api.API{
		Store:            mockStore,
		History:          &api.MockHistory{Default: 400},
		Notifier:         notifier,
		MinRankedMatches: 200,
		OperatorSteamIDs: []string{"op"},
		AdminChannelID:   "admin-chan",
	}
	return NewServer(apiPtr), mockStore, notifier
}

func doRequest(server *Server, method, path, steamID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if steamID != "" {
		req.Header.Set(steamIDHeader, steamID)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestListTournaments(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/tournaments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res []tournamentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res, 1)
	assert.Equal(t, "autumn-brawl", res[0].Name)
	assert.Equal(t, 8, res[0].MaxSlots)
}

func TestCreateTournament_RequiresActor(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments", "", createTournamentRequest{Name: "Cup", Type: "1v1", Bracket: "Herald", MaxSlots: 4})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTournament_OperatorOnly(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments", "s1", createTournamentRequest{Name: "Cup", Type: "1v1", Bracket: "Herald", MaxSlots: 4})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateTournament_Success(t *testing.T) {
	server, mockStore, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments", "op", createTournamentRequest{Name: "Winter Cup", Type: "1v1", Bracket: "Archon-Legend", MaxSlots: 16})
	require.Equal(t, http.StatusCreated, w.Code)

	var res tournamentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Winter Cup", res.Name)
	assert.Equal(t, 16, res.MaxSlots)
	assert.NotNil(t, mockStore.Tournaments["Winter Cup"])
}

func TestCreateTournament_UnknownBracket(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments", "op", createTournamentRequest{Name: "Cup", Type: "1v1", Bracket: "Challenger", MaxSlots: 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTournament_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/tournaments/Unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinTournament_Success(t *testing.T) {
	server, mockStore, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res joinResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 1, res.Tournament.CurrentSlots)
	assert.False(t, res.Locked)
	assert.Equal(t, []string{"s1"}, mockStore.Tournaments["autumn-brawl"].Players)
}

func TestJoinTournament_NotEligibleReturns422WithViolations(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s3", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var res errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.NotEmpty(t, res.Violations)
}

func TestJoinTournament_DuplicateReturns409(t *testing.T) {
	server, _, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil).Code)
	assert.Equal(t, http.StatusConflict, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil).Code)
}

func TestJoinTournament_LockedReturns409(t *testing.T) {
	server, mockStore, _ := newTestServer(t)
	mockStore.Tournaments["autumn-brawl"].IsLocked = true

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestJoinTournament_FillingLastSlotReportsLock(t *testing.T) {
	server, mockStore, notifier := newTestServer(t)
	mockStore.Tournaments["autumn-brawl"].MaxSlots = 1

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res joinResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Locked)
	assert.True(t, res.Tournament.IsLocked)

	// The lock alert went to the admin channel exactly once
	require.Len(t, notifier.ChannelMessages, 1)
	assert.Equal(t, "admin-chan", notifier.ChannelMessages[0].Target)
}

func TestLeaveTournament_Success(t *testing.T) {
	server, mockStore, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil).Code)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/leave", "s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, mockStore.Tournaments["autumn-brawl"].Players)
}

func TestLeaveTournament_NotRegistered(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/leave", "s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignLobby_Success(t *testing.T) {
	server, mockStore, notifier := newTestServer(t)
	require.Equal(t, http.StatusOK, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil).Code)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/lobby", "op", assignLobbyRequest{LobbyName: "lobby1", LobbyPassword: "hunter2", Region: "europe"})
	require.Equal(t, http.StatusOK, w.Code)

	var res lobbyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "delivered", res.Status)
	assert.Empty(t, res.Failed)
	assert.Len(t, notifier.DirectMessages, 1)
	assert.Equal(t, "lobby1", mockStore.Tournaments["autumn-brawl"].LobbyName)
}

func TestAssignLobby_PartialDeliveryStillCommits(t *testing.T) {
	server, mockStore, notifier := newTestServer(t)
	require.Equal(t, http.StatusOK, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s1", nil).Code)
	require.Equal(t, http.StatusOK, doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/join", "s2", nil).Code)
	notifier.FailFor["d2"] = "cannot send messages to this user"

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/lobby", "op", assignLobbyRequest{LobbyName: "lobby1", LobbyPassword: "hunter2", Region: "europe"})
	require.Equal(t, http.StatusOK, w.Code)

	var res lobbyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "partial", res.Status)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "mid", res.Failed[0].Username)
	assert.Equal(t, "lobby1", mockStore.Tournaments["autumn-brawl"].LobbyName)
}

func TestAssignLobby_NotOperator(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/lobby", "s1", assignLobbyRequest{LobbyName: "lobby1", LobbyPassword: "hunter2", Region: "europe"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignLobby_MissingFields(t *testing.T) {
	server, _, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/tournaments/autumn-brawl/lobby", "op", assignLobbyRequest{LobbyName: "lobby1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTournament_OperatorOnly(t *testing.T) {
	server, mockStore, _ := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, doRequest(server, http.MethodDelete, "/tournaments/autumn-brawl", "s1", nil).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(server, http.MethodDelete, "/tournaments/autumn-brawl", "op", nil).Code)
	assert.Nil(t, mockStore.Tournaments["autumn-brawl"])
}

func TestCreateTeam_Success(t *testing.T) {
	server, mockStore, _ := newTestServer(t)

	w := doRequest(server, http.MethodPost, "/teams", "s1", createTeamRequest{Name: "dire-wolves"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mockStore.Teams["dire-wolves"])
	assert.Equal(t, "s1", mockStore.Teams["dire-wolves"].CaptainID)
	assert.Equal(t, "dire-wolves", mockStore.Users["s1"].TeamID)
}

func TestTeamMembership_Flow(t *testing.T) {
	server, mockStore, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, doRequest(server, http.MethodPost, "/teams", "s1", createTeamRequest{Name: "dire-wolves"}).Code)

	// Only the captain can add members
	assert.Equal(t, http.StatusForbidden, doRequest(server, http.MethodPost, "/teams/dire-wolves/members", "s2", teamMemberRequest{SteamID: "s3"}).Code)

	require.Equal(t, http.StatusNoContent, doRequest(server, http.MethodPost, "/teams/dire-wolves/members", "s1", teamMemberRequest{SteamID: "s2"}).Code)
	assert.Contains(t, mockStore.Teams["dire-wolves"].MemberIDs, "s2")

	// A member can remove themselves
	require.Equal(t, http.StatusNoContent, doRequest(server, http.MethodDelete, "/teams/dire-wolves/members/s2", "s2", nil).Code)
	assert.NotContains(t, mockStore.Teams["dire-wolves"].MemberIDs, "s2")
	assert.Empty(t, mockStore.Users["s2"].TeamID)
}

func TestGetTeam(t *testing.T) {
	server, _, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, doRequest(server, http.MethodPost, "/teams", "s1", createTeamRequest{Name: "dire-wolves"}).Code)

	w := doRequest(server, http.MethodGet, "/teams/dire-wolves", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "dire-wolves", res["name"])
	assert.Equal(t, "s1", res["captain_id"])
}

func TestMalformedBodyReturns400(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/tournaments", bytes.NewBufferString("not json"))
	req.Header.Set(steamIDHeader, "op")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
