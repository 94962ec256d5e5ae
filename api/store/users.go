/* users.go
 * Contains the methods for interacting with the users collection. User records are owned
 * by the identity provider; this store only reads them for eligibility decisions and
 * caches the last known guild membership state.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"tourney-bot/api/shared"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetUserBySteamID does a DB lookup for a user by their steam id
func (s *Store) GetUserBySteamID(steamID string) (*shared.User, error) {
	return s.getUser(bson.M{"steam_id": steamID})
}

// GetUserByDiscordID does a DB lookup for a user by their linked discord id. Used by the
// bot to resolve the author of a command back to a player record.
func (s *Store) GetUserByDiscordID(discordID string) (*shared.User, error) {
	return s.getUser(bson.M{"discord_id": discordID})
}

func (s *Store) getUser(filter bson.M) (*shared.User, error) {
	var u shared.User
	err := s.Collections.Users.FindOne(context.TODO(), filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("error fetching user from db: %w", err)
	}
	return &u, nil
}

// GetUsersBySteamIDs fetches a batch of users, used to load a team roster in one query.
// Missing ids are simply absent from the result; the caller decides whether that matters.
func (s *Store) GetUsersBySteamIDs(steamIDs []string) ([]shared.User, error) {
	cursor, err := s.Collections.Users.Find(context.TODO(), bson.M{"steam_id": bson.M{"$in": steamIDs}})
	if err != nil {
		return nil, fmt.Errorf("error fetching users from db: %w", err)
	}

	var results []shared.User
	if err = cursor.All(context.TODO(), &results); err != nil {
		return nil, fmt.Errorf("error unpacking cursor into slice of users: %w", err)
	}
	return results, nil
}

// UpsertUser stores or updates a user record keyed by steam id
func (s *Store) UpsertUser(u *shared.User) error {
	filter := bson.M{"steam_id": u.SteamID}

	var existing shared.User
	err := s.Collections.Users.FindOne(context.TODO(), filter).Decode(&existing)
	notFound := errors.Is(err, mongo.ErrNoDocuments)
	if err != nil && !notFound {
		return fmt.Errorf("lookup for existing user failed: %w", err)
	}

	if notFound {
		if _, err := s.Collections.Users.InsertOne(context.TODO(), u); err != nil {
			return fmt.Errorf("failed to insert new user: %w", err)
		}
		return nil
	}

	if _, err := s.Collections.Users.UpdateOne(context.TODO(), filter, bson.M{"$set": u}); err != nil {
		return fmt.Errorf("failed to update existing user: %w", err)
	}
	return nil
}

// SetUserTeam updates a user's team affiliation. An empty teamID clears it.
func (s *Store) SetUserTeam(steamID string, teamID string) error {
	update := bson.M{"$set": bson.M{"team_id": teamID}}
	if teamID == "" {
		update = bson.M{"$unset": bson.M{"team_id": ""}}
	}
	res, err := s.Collections.Users.UpdateOne(context.TODO(), bson.M{"steam_id": steamID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user team: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// SetGuildJoined caches a guild membership check result on the user record so callers
// can skip re-querying Discord
func (s *Store) SetGuildJoined(discordID string, joined bool) error {
	res, err := s.Collections.Users.UpdateOne(context.TODO(),
		bson.M{"discord_id": discordID},
		bson.M{"$set": bson.M{"joined_guild_server": joined}})
	if err != nil {
		return fmt.Errorf("failed to update guild membership cache: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}
