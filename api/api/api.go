/* api.go
 * This file contains the public methods for interacting with this package: the join
 * coordinator, lobby assignment and the team operations. For consistent results,
 * functions should only be called from this file, not the sub packages for store and
 * eligibility.
 */

package api

import (
	"fmt"
	"log"
	"strings"

	"tourney-bot/api/eligibility"
	"tourney-bot/api/external"
	"tourney-bot/api/shared"
	"tourney-bot/api/store"
)

// MatchHistory is the read-only match history provider used for ranked match counts
type MatchHistory interface {
	CountRankedMatches(accountID string) int
}

// Notifier is the capability the coordinator uses to reach Discord. It is injected by
// the bot once its session is up; a nil notifier downgrades notifications to log lines
// so the core actions still commit.
type Notifier interface {
	SendDirectMessage(discordID string, text string) error
	SendChannelMessage(channelID string, text string) error
	Broadcast(recipients []shared.Recipient, text string) error
}

// TeamChannels keeps a team's private Discord channel in step with its roster. Injected
// by the bot like Notifier; nil means no channel to maintain.
type TeamChannels interface {
	UpdateChannelPermissions(channelID string, memberIDs []string) error
}

// API provides methods for interacting with the tournament data layer
type API struct {
	Store    store.Interface
	History  MatchHistory
	Notifier Notifier
	Channels TeamChannels

	MinRankedMatches int
	OperatorSteamIDs []string
	AdminChannelID   string
}

// JoinResult reports the outcome of a successful join
type JoinResult struct {
	Tournament *shared.Tournament
	// Locked is true when this join filled the last slot and performed the lock transition
	Locked bool
}

// NewAPI creates a new API instance with the provided configuration
func NewAPI(dbName string, mongoURI string, openDotaURL string, operators []string, adminChannelID string) (*API, error) {
	s, err := store.NewStore(dbName, mongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return &API{
		Store:            s,
		History:          external.NewClient(openDotaURL),
		MinRankedMatches: eligibility.DefaultMinRankedMatches,
		OperatorSteamIDs: operators,
		AdminChannelID:   adminChannelID,
	}, nil
}

// SetNotifier installs the Discord capability once the bot session is running
func (a *API) SetNotifier(n Notifier) {
	a.Notifier = n
}

// SetTeamChannels installs the channel synchronizer once the bot session is running
func (a *API) SetTeamChannels(c TeamChannels) {
	a.Channels = c
}

// IsOperator reports whether a steam id belongs to a tournament operator
func (a *API) IsOperator(steamID string) bool {
	for _, id := range a.OperatorSteamIDs {
		if id == steamID {
			return true
		}
	}
	return false
}

// CreateTournament validates and stores a new tournament. The bracket label is checked
// here so a typo fails loudly at creation instead of silently rejecting every join later.
// Preconditions: Receives the tournament fields and the acting operator's steam id
// Postconditions: Tournament document is created, or an error describing the rejection
func (a *API) CreateTournament(name, ttype, bracket string, maxSlots int, actorSteamID string) error {
	if !a.IsOperator(actorSteamID) {
		return shared.ErrNotOperator
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: tournament name is required", shared.ErrValidation)
	}
	if ttype != shared.Type1v1 && ttype != shared.Type5v5 && ttype != shared.TypeTurbo {
		return fmt.Errorf("%w: %q", shared.ErrInvalidTournamentType, ttype)
	}
	if maxSlots <= 0 {
		return shared.ErrInvalidCapacity
	}
	if _, err := eligibility.ParseBracket(bracket); err != nil {
		return err
	}

	return a.Store.CreateTournament(&shared.Tournament{
		Name:     strings.TrimSpace(name),
		Type:     ttype,
		Bracket:  bracket,
		MaxSlots: maxSlots,
	})
}

// GetTournament returns a tournament by name
func (a *API) GetTournament(name string) (*shared.Tournament, error) {
	return a.Store.GetTournament(name)
}

// ListTournaments returns all tournaments
func (a *API) ListTournaments() ([]shared.Tournament, error) {
	return a.Store.ListTournaments()
}

// DeleteTournament removes a tournament outright, operator only
func (a *API) DeleteTournament(name string, actorSteamID string) error {
	if !a.IsOperator(actorSteamID) {
		return shared.ErrNotOperator
	}
	return a.Store.DeleteTournament(name)
}

// JoinTournament admits the acting player (or their team, in team modes) into a
// tournament. Eligibility is evaluated first so the caller gets every violation in one
// response; the slot claim itself is a single atomic conditional update in the store,
// and the lock transition is detected through the store's one-shot lock update so the
// admin alert fires exactly once no matter how many joins raced to fill the bracket.
// Preconditions: Receives the tournament name and the acting player's steam id
// Postconditions: Returns the updated tournament and whether this join locked it
func (a *API) JoinTournament(name string, steamID string) (*JoinResult, error) {
	user, err := a.Store.GetUserBySteamID(steamID)
	if err != nil {
		return nil, err
	}
	t, err := a.Store.GetTournament(name)
	if err != nil {
		return nil, err
	}
	// A duplicate join is answered from the fetched document before eligibility runs,
	// so it never costs a match-history call and a provider outage cannot turn
	// AlreadyJoined into NotEligible. The CAS filter stays authoritative for races.
	if alreadyRegistered(t, user) {
		return nil, shared.ErrAlreadyJoined
	}
	bracket, err := eligibility.ParseBracket(t.Bracket)
	if err != nil {
		return nil, err
	}

	var updated *shared.Tournament
	if t.IsTeamMode() {
		updated, err = a.joinAsTeam(t, user, bracket)
	} else {
		updated, err = a.joinAsPlayer(t, user, bracket)
	}
	if err != nil {
		return nil, err
	}

	res := &JoinResult{Tournament: updated}
	if updated.CurrentSlots >= updated.MaxSlots {
		locked, lockErr := a.Store.LockTournament(t.Name)
		if lockErr != nil {
			// The join itself committed; losing the lock marker is recoverable on the
			// next full join attempt, so report and carry on
			log.Println("failed to lock filled tournament:", lockErr)
		} else if locked {
			res.Locked = true
			updated.IsLocked = true
			a.notifyLock(updated)
		}
	}
	return res, nil
}

// alreadyRegistered reports whether the actor (or their team) is on the roster of the
// given tournament snapshot
func alreadyRegistered(t *shared.Tournament, user *shared.User) bool {
	if t.IsTeamMode() {
		if user.TeamID == "" {
			return false
		}
		for _, id := range t.Teams {
			if id == user.TeamID {
				return true
			}
		}
		return false
	}
	for _, id := range t.Players {
		if id == user.SteamID {
			return true
		}
	}
	return false
}

func (a *API) joinAsPlayer(t *shared.Tournament, user *shared.User, bracket eligibility.RankRange) (*shared.Tournament, error) {
	info := eligibility.PlayerInfo{
		Username:           user.Username,
		RankTier:           user.RankTier,
		RankedMatches:      a.History.CountRankedMatches(user.SteamID),
		PublicMatchHistory: user.PublicMatchHistory,
	}
	if violations := eligibility.CheckPlayer(info, bracket, a.MinRankedMatches); len(violations) > 0 {
		return nil, &shared.NotEligibleError{Violations: violations}
	}

	slot := shared.PlayerSlot{SteamID: user.SteamID, Username: user.Username, DiscordID: user.DiscordID}
	return a.Store.JoinTournamentPlayer(t.Name, slot)
}

func (a *API) joinAsTeam(t *shared.Tournament, user *shared.User, bracket eligibility.RankRange) (*shared.Tournament, error) {
	if user.TeamID == "" {
		return nil, shared.ErrNoTeam
	}
	team, err := a.Store.GetTeamByName(user.TeamID)
	if err != nil {
		return nil, err
	}
	if team.CaptainID != user.SteamID {
		return nil, shared.ErrNotCaptain
	}

	members, err := a.Store.GetUsersBySteamIDs(team.MemberIDs)
	if err != nil {
		return nil, err
	}

	infos := make([]eligibility.PlayerInfo, 0, len(members))
	memberSlots := make([]shared.PlayerSlot, 0, len(members))
	for _, m := range members {
		infos = append(infos, eligibility.PlayerInfo{
			Username:           m.Username,
			RankTier:           m.RankTier,
			RankedMatches:      a.History.CountRankedMatches(m.SteamID),
			PublicMatchHistory: m.PublicMatchHistory,
		})
		memberSlots = append(memberSlots, shared.PlayerSlot{SteamID: m.SteamID, Username: m.Username, DiscordID: m.DiscordID})
	}
	if violations := eligibility.CheckTeam(infos, bracket, a.MinRankedMatches); len(violations) > 0 {
		return nil, &shared.NotEligibleError{Violations: violations}
	}

	slot := shared.TeamSlot{TeamID: team.Name, Name: team.Name, CaptainID: team.CaptainID, Members: memberSlots}
	return a.Store.JoinTournamentTeam(t.Name, slot)
}

// notifyLock sends the one-time admin alert after a tournament fills
func (a *API) notifyLock(t *shared.Tournament) {
	text := fmt.Sprintf("Tournament **%s** is full (%d/%d) and registration is locked. Assign lobby credentials with $lobby.", t.Name, t.CurrentSlots, t.MaxSlots)
	if a.Notifier == nil || a.AdminChannelID == "" {
		log.Println("lock notification (no notifier wired):", text)
		return
	}
	if err := a.Notifier.SendChannelMessage(a.AdminChannelID, text); err != nil {
		log.Println("failed to send lock notification:", err)
	}
}

// LeaveTournament removes the acting player (or their team, captain only) from a
// tournament. The freed slot count does not unlock a locked tournament; the lock is a
// one-way transition.
func (a *API) LeaveTournament(name string, steamID string) error {
	user, err := a.Store.GetUserBySteamID(steamID)
	if err != nil {
		return err
	}
	t, err := a.Store.GetTournament(name)
	if err != nil {
		return err
	}

	if !t.IsTeamMode() {
		return a.Store.LeaveTournamentPlayer(t.Name, user.SteamID)
	}

	if user.TeamID == "" {
		return shared.ErrNoTeam
	}
	team, err := a.Store.GetTeamByName(user.TeamID)
	if err != nil {
		return err
	}
	if team.CaptainID != user.SteamID {
		return shared.ErrNotCaptain
	}
	return a.Store.LeaveTournamentTeam(t.Name, team.Name)
}

// AssignLobby stores the lobby credentials for a tournament and fans the details out as
// a direct message to every registered participant, flattening team rosters to their
// individual members. Delivery is best-effort over the commit: a PartialDeliveryError
// reports the recipients that could not be reached, but the credentials stay assigned.
// Preconditions: Receives the tournament name, lobby fields and the acting operator
// Postconditions: Lobby fields stored; returns nil, a PartialDeliveryError, or a
// terminal error if the assignment itself was rejected
func (a *API) AssignLobby(name, lobbyName, lobbyPassword, region string, actorSteamID string) error {
	if !a.IsOperator(actorSteamID) {
		return shared.ErrNotOperator
	}
	if lobbyName == "" || lobbyPassword == "" || region == "" {
		return fmt.Errorf("%w: lobby name, password and region are all required", shared.ErrValidation)
	}

	t, err := a.Store.GetTournament(name)
	if err != nil {
		return err
	}
	if err := a.Store.SetLobby(t.Name, lobbyName, lobbyPassword, region); err != nil {
		return err
	}

	text := fmt.Sprintf("Lobby details for **%s**\nLobby name: %s\nPassword: %s\nRegion: %s\nGood luck, have fun!", t.Name, lobbyName, lobbyPassword, region)
	recipients := t.FlattenRecipients()
	if a.Notifier == nil {
		log.Printf("lobby assigned for %s, no notifier wired to DM %d participant(s)\n", t.Name, len(recipients))
		return nil
	}
	return a.Notifier.Broadcast(recipients, text)
}

// CreateTeam creates a team captained by the acting player
func (a *API) CreateTeam(name string, captainSteamID string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: team name is required", shared.ErrValidation)
	}
	user, err := a.Store.GetUserBySteamID(captainSteamID)
	if err != nil {
		return err
	}
	if user.TeamID != "" {
		return shared.ErrUserAlreadyInTeam
	}

	name = strings.TrimSpace(name)
	if err := a.Store.CreateTeam(&shared.Team{Name: name, CaptainID: user.SteamID, MemberIDs: []string{user.SteamID}}); err != nil {
		return err
	}
	return a.Store.SetUserTeam(user.SteamID, name)
}

// AddTeamMember adds a player to a team roster, captain only
func (a *API) AddTeamMember(teamName string, actorSteamID string, memberSteamID string) error {
	team, err := a.Store.GetTeamByName(teamName)
	if err != nil {
		return err
	}
	if team.CaptainID != actorSteamID {
		return shared.ErrNotCaptain
	}
	member, err := a.Store.GetUserBySteamID(memberSteamID)
	if err != nil {
		return err
	}
	if member.TeamID != "" {
		return shared.ErrUserAlreadyInTeam
	}

	if err := a.Store.AddTeamMember(teamName, member.SteamID); err != nil {
		return err
	}
	if err := a.Store.SetUserTeam(member.SteamID, teamName); err != nil {
		return err
	}
	a.syncTeamChannel(teamName)
	return nil
}

// RemoveTeamMember drops a player from a team roster. Allowed for the captain and for
// the member themselves; the captain can never be removed.
func (a *API) RemoveTeamMember(teamName string, actorSteamID string, memberSteamID string) error {
	team, err := a.Store.GetTeamByName(teamName)
	if err != nil {
		return err
	}
	if actorSteamID != team.CaptainID && actorSteamID != memberSteamID {
		return shared.ErrNotCaptain
	}

	if err := a.Store.RemoveTeamMember(teamName, memberSteamID); err != nil {
		return err
	}
	if err := a.Store.SetUserTeam(memberSteamID, ""); err != nil {
		return err
	}
	a.syncTeamChannel(teamName)
	return nil
}

// syncTeamChannel re-syncs a team's Discord channel to the roster after a membership
// change. Best-effort over the committed roster change, like notifyLock: a removed
// member must not be resurrected because Discord was unreachable.
func (a *API) syncTeamChannel(teamName string) {
	if a.Channels == nil {
		return
	}
	team, members, err := a.GetTeamRoster(teamName)
	if err != nil {
		log.Println("failed to load roster for channel sync:", err)
		return
	}
	if team.ChannelID == "" {
		return
	}

	discordIDs := make([]string, 0, len(members))
	for _, m := range members {
		if m.DiscordID != "" {
			discordIDs = append(discordIDs, m.DiscordID)
		}
	}
	if err := a.Channels.UpdateChannelPermissions(team.ChannelID, discordIDs); err != nil {
		log.Println("failed to sync team channel after roster change:", err)
	}
}

// GetTeamRoster returns a team and the full user records of its members, used by the
// channel synchronizer to resolve discord identities
func (a *API) GetTeamRoster(teamName string) (*shared.Team, []shared.User, error) {
	team, err := a.Store.GetTeamByName(teamName)
	if err != nil {
		return nil, nil, err
	}
	members, err := a.Store.GetUsersBySteamIDs(team.MemberIDs)
	if err != nil {
		return nil, nil, err
	}
	return team, members, nil
}
