/* test_helpers.go
 * Contains test helper functions and sample data builders for store package tests
 */

package store

import (
	"context"

	"tourney-bot/api/shared"
)

// CreateTestStore creates a Store connected to a test database.
// Returns the store and a cleanup function.
func CreateTestStore(mongoURI string) (*Store, func(), error) {
	store, err := NewStore("test_tourney", mongoURI)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if store.Client != nil {
			// Drop test database
			store.Database.Drop(context.TODO())
			// Disconnect client
			store.Client.Disconnect(context.TODO())
		}
	}

	return store, cleanup, nil
}

// CreateSampleTournament creates a tournament document for testing
func CreateSampleTournament(name string, ttype string, maxSlots int) *shared.Tournament {
	return &shared.Tournament{
		Name:     name,
		Type:     ttype,
		Bracket:  "Archon-Legend",
		MaxSlots: maxSlots,
	}
}

// CreateSampleUser creates a user document for testing
func CreateSampleUser(steamID, username, discordID string, rankTier int) *shared.User {
	return &shared.User{
		SteamID:            steamID,
		Username:           username,
		DiscordID:          discordID,
		RankTier:           &rankTier,
		PublicMatchHistory: true,
	}
}
