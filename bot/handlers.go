/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface
 */

package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"tourney-bot/api/shared"

	"github.com/bwmarrin/discordgo"
	"github.com/go-andiamo/splitter"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// helpMessageHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpMessageHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("Tourney Bot v1.0\n")
	res.WriteString("`$tournaments`: lists open tournaments with their bracket, slot count and lock status\n")
	res.WriteString("`$join tournament`: joins a tournament. For 5v5 and turbo tournaments your team joins and only the captain can run this\n")
	res.WriteString("`$leave tournament`: withdraws you (or your team, captain only) from a tournament\n")
	res.WriteString("`$lobby \"lobby name\" \"password\" region tournament`: assigns lobby credentials and messages every registered player. Operators only\n")
	res.WriteString("`$teamchannel`: creates your team's private channel, or re-syncs its permissions to the current roster. Captain only\n")
	res.WriteString("`$invite`: DMs you a single-use invite to the tournament server if you are not in it yet\n")
	res.WriteString("There is fuzzy matching on tournament names. Names that contain two or more words need to be encased in \" (e.g. \"Autumn Brawl\")\n")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// tournamentsHandler handles the $tournaments command with a DiscordSession interface
func (b *Bot) tournamentsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tournaments, err := b.APIPtr.ListTournaments()
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured getting the tournament list")
		return
	}
	if len(tournaments) == 0 {
		session.ChannelMessageSend(message.ChannelID, "No tournaments are currently open")
		return
	}

	var res strings.Builder
	res.WriteString("Current tournaments:\n")
	for _, t := range tournaments {
		status := "open"
		if t.IsLocked {
			status = "locked"
		}
		res.WriteString(fmt.Sprintf("- %s (%s, %s): %d/%d slots, %s\n", t.Name, t.Type, t.Bracket, t.CurrentSlots, t.MaxSlots, status))
	}
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// joinHandler handles the $join command with a DiscordSession interface
func (b *Bot) joinHandler(session DiscordSession, message *discordgo.MessageCreate) {
	user, ok := b.resolveAuthor(session, message)
	if !ok {
		return
	}
	name, ok := b.resolveTournamentName(session, message, commandArgs(message.Content))
	if !ok {
		return
	}

	result, err := b.APIPtr.JoinTournament(name, user.SteamID)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, joinErrorMessage(user.Username, name, err))
		return
	}

	res := fmt.Sprintf("%s has joined **%s** (%d/%d slots)", user.Username, result.Tournament.Name, result.Tournament.CurrentSlots, result.Tournament.MaxSlots)
	if result.Tournament.IsTeamMode() {
		res = fmt.Sprintf("Team %s has joined **%s** (%d/%d slots)", user.TeamID, result.Tournament.Name, result.Tournament.CurrentSlots, result.Tournament.MaxSlots)
	}
	if result.Locked {
		res += "\nThat was the last slot, registration is now locked"
	}
	session.ChannelMessageSend(message.ChannelID, res)
}

// leaveHandler handles the $leave command with a DiscordSession interface
func (b *Bot) leaveHandler(session DiscordSession, message *discordgo.MessageCreate) {
	user, ok := b.resolveAuthor(session, message)
	if !ok {
		return
	}
	name, ok := b.resolveTournamentName(session, message, commandArgs(message.Content))
	if !ok {
		return
	}

	if err := b.APIPtr.LeaveTournament(name, user.SteamID); err != nil {
		switch {
		case errors.Is(err, shared.ErrParticipantNotFound):
			session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%s is not registered in %s", user.Username, name))
		case errors.Is(err, shared.ErrNotCaptain):
			session.ChannelMessageSend(message.ChannelID, "Only the team captain can withdraw the team")
		case errors.Is(err, shared.ErrTournamentNotFound):
			session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("No tournament named %s was found", name))
		default:
			log.Println(err)
			session.ChannelMessageSend(message.ChannelID, "An unexpected error occured")
		}
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%s has left %s", user.Username, name))
}

// lobbyHandler handles the $lobby command with a DiscordSession interface.
// Expected form: $lobby "lobby name" "password" region tournament
func (b *Bot) lobbyHandler(session DiscordSession, message *discordgo.MessageCreate) {
	user, ok := b.resolveAuthor(session, message)
	if !ok {
		return
	}

	args := commandArgs(message.Content)
	if len(args) < 4 {
		session.ChannelMessageSend(message.ChannelID, "Usage: $lobby \"lobby name\" \"password\" region tournament")
		return
	}
	lobbyName, password, region := args[0], args[1], args[2]
	name, ok := b.resolveTournamentName(session, message, args[3:])
	if !ok {
		return
	}

	err := b.APIPtr.AssignLobby(name, lobbyName, password, region, user.SteamID)
	var partial *shared.PartialDeliveryError
	switch {
	case err == nil:
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Lobby details for %s have been sent to all registered players", name))
	case errors.As(err, &partial):
		var res strings.Builder
		res.WriteString(fmt.Sprintf("Lobby details for %s are saved, but some players could not be messaged:\n", name))
		for _, f := range partial.Failed {
			res.WriteString(fmt.Sprintf("- %s: %s\n", f.Recipient.Username, f.Reason))
		}
		session.ChannelMessageSend(message.ChannelID, res.String())
	case errors.Is(err, shared.ErrNotOperator):
		session.ChannelMessageSend(message.ChannelID, "Only a tournament operator can assign lobbies")
	case errors.Is(err, shared.ErrValidation):
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Invalid lobby details: %s", err))
	case errors.Is(err, shared.ErrTournamentNotFound):
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("No tournament named %s was found", name))
	default:
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An unexpected error occured assigning the lobby")
	}
}

// teamChannelHandler handles the $teamchannel command with a DiscordSession interface.
// Creates the team's private channel on first use and re-syncs its permission
// overwrites to the current roster on every later use.
func (b *Bot) teamChannelHandler(session DiscordSession, message *discordgo.MessageCreate) {
	user, ok := b.resolveAuthor(session, message)
	if !ok {
		return
	}
	if user.TeamID == "" {
		session.ChannelMessageSend(message.ChannelID, "You are not in a team")
		return
	}

	team, members, err := b.APIPtr.GetTeamRoster(user.TeamID)
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured loading your team")
		return
	}
	if team.CaptainID != user.SteamID {
		session.ChannelMessageSend(message.ChannelID, "Only the team captain can manage the team channel")
		return
	}

	discordIDs := make([]string, 0, len(members))
	for _, m := range members {
		if m.DiscordID != "" {
			discordIDs = append(discordIDs, m.DiscordID)
		}
	}

	if team.ChannelID == "" {
		channelID, err := b.channels.CreateTeamChannel(team.Name, discordIDs)
		if err != nil {
			log.Println(err)
			session.ChannelMessageSend(message.ChannelID, "An error occured creating the team channel")
			return
		}
		if err := b.APIPtr.Store.SetTeamChannel(team.Name, channelID); err != nil {
			log.Println(err)
		}
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Created a private channel for %s", team.Name))
		return
	}

	if err := b.channels.UpdateChannelPermissions(team.ChannelID, discordIDs); err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured syncing the team channel")
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Synced channel permissions for %s", team.Name))
}

// inviteHandler handles the $invite command with a DiscordSession interface
func (b *Bot) inviteHandler(session DiscordSession, message *discordgo.MessageCreate) {
	user, ok := b.resolveAuthor(session, message)
	if !ok {
		return
	}

	if b.gate.IsMember(message.Author.ID) {
		if err := b.APIPtr.Store.SetGuildJoined(message.Author.ID, true); err != nil {
			log.Println(err)
		}
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%s is already in the tournament server", user.Username))
		return
	}

	if err := b.gate.EnsureInvited(message.Author.ID); err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured creating your invite")
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Check your DMs for an invite link")
}

// resolveAuthor maps the message author's discord id to a registered user. Sends the
// error reply itself so callers can just bail on !ok.
func (b *Bot) resolveAuthor(session DiscordSession, message *discordgo.MessageCreate) (*shared.User, bool) {
	user, err := b.APIPtr.Store.GetUserByDiscordID(message.Author.ID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%s, your discord account is not linked to a registered player", message.Author.Username))
		} else {
			log.Println(err)
			session.ChannelMessageSend(message.ChannelID, "An unexpected error occured")
		}
		return nil, false
	}
	return user, true
}

// resolveTournamentName fuzzy-matches the raw args against the stored tournament
// names, preferring an exact match when several candidates rank
func (b *Bot) resolveTournamentName(session DiscordSession, message *discordgo.MessageCreate, args []string) (string, bool) {
	if len(args) == 0 {
		session.ChannelMessageSend(message.ChannelID, "A tournament name is required")
		return "", false
	}
	raw := strings.Join(args, " ")

	tournaments, err := b.APIPtr.ListTournaments()
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, "An error occured getting the tournament list")
		return "", false
	}

	lookup := make(map[string]string)
	namesLower := make([]string, 0, len(tournaments))
	for _, t := range tournaments {
		lower := strings.ToLower(t.Name)
		lookup[lower] = t.Name // Preserve the original name, the match runs on the lowercase one
		namesLower = append(namesLower, lower)
	}

	lowerRaw := strings.ToLower(raw)
	fuzzyResults := fuzzy.RankFind(lowerRaw, namesLower)
	if len(fuzzyResults) == 0 {
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("No tournament named %s was found", raw))
		return "", false
	}
	// If there are multiple matches, check to see if theres an exact match with the input
	best := ""
	for i := range fuzzyResults {
		if fuzzyResults[i].Target == lowerRaw {
			best = fuzzyResults[i].Target
		}
	}
	// If no exact match was found, take the best ranked match
	if best == "" {
		best = fuzzyResults[0].Target
	}
	return lookup[best], true
}

// joinErrorMessage turns a JoinTournament error into a user-facing reply
func joinErrorMessage(username string, tournament string, err error) string {
	var notEligible *shared.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		var res strings.Builder
		res.WriteString(fmt.Sprintf("%s is not eligible for %s:\n", username, tournament))
		for _, v := range notEligible.Violations {
			res.WriteString(fmt.Sprintf("- %s\n", v))
		}
		return res.String()
	case errors.Is(err, shared.ErrAlreadyJoined):
		return fmt.Sprintf("%s is already registered in %s", username, tournament)
	case errors.Is(err, shared.ErrTournamentLocked):
		return fmt.Sprintf("%s is locked, registration has closed", tournament)
	case errors.Is(err, shared.ErrTournamentFull):
		return fmt.Sprintf("%s is full", tournament)
	case errors.Is(err, shared.ErrNoTeam):
		return "This tournament is joined by teams, but you are not in one"
	case errors.Is(err, shared.ErrNotCaptain):
		return "Only the team captain can register the team"
	case errors.Is(err, shared.ErrTournamentNotFound):
		return fmt.Sprintf("No tournament named %s was found", tournament)
	default:
		log.Println(err)
		return "An unexpected error occured"
	}
}

// commandArgs splits everything after the command word, keeping quoted phrases intact
func commandArgs(content string) []string {
	spaceSplitter, _ := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes) //we use splitter here instead of go's built in splitter because quoted names e.g. "Autumn Brawl" are recognised as one argument not two
	parts, _ := spaceSplitter.Split(content)
	args := make([]string, 0, len(parts))
	for _, p := range parts[1:] {
		p = strings.Trim(p, "\"")
		if p != "" {
			args = append(args, p)
		}
	}
	return args
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author.ID == botUserID {
		return
	}

	// Route to appropriate handler
	switch {
	case startsWith(message.Content, "$help"):
		b.helpMessageHandler(session, message)

	case startsWith(message.Content, "$tournaments"):
		b.tournamentsHandler(session, message)

	case startsWith(message.Content, "$join"):
		b.joinHandler(session, message)

	case startsWith(message.Content, "$leave"):
		b.leaveHandler(session, message)

	case startsWith(message.Content, "$lobby"):
		b.lobbyHandler(session, message)

	case startsWith(message.Content, "$teamchannel"):
		b.teamChannelHandler(session, message)

	case startsWith(message.Content, "$invite"):
		b.inviteHandler(session, message)
	}
}

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	return strings.HasPrefix(inputString, substring)
}
