/* teams.go
 * Contains the methods for interacting with the teams collection
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

// CreateTeam inserts a new team document. Team names are unique.
func (s *Store) CreateTeam(team *shared.Team) error {
	var existing shared.Team
	err := s.Collections.Teams.FindOne(context.TODO(), bson.M{"name": team.Name}).Decode(&existing)
	if err == nil {
		return shared.ErrTeamNameConflict
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("lookup for existing team failed: %w", err)
	}

	if _, err := s.Collections.Teams.InsertOne(context.TODO(), team); err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	return nil
}

// GetTeamByName does a DB lookup for a team by name
func (s *Store) GetTeamByName(name string) (*shared.Team, error) {
	var team shared.Team
	err := s.Collections.Teams.FindOne(context.TODO(), bson.M{"name": name}).Decode(&team)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrTeamNotFound
		}
		return nil, fmt.Errorf("error fetching team from db: %w", err)
	}
	return &team, nil
}

// AddTeamMember appends a member to the roster. $addToSet keeps the roster free of
// duplicates even if the call is repeated.
func (s *Store) AddTeamMember(name string, steamID string) error {
	res, err := s.Collections.Teams.UpdateOne(context.TODO(),
		bson.M{"name": name},
		bson.M{"$addToSet": bson.M{"member_ids": steamID}})
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrTeamNotFound
	}
	return nil
}

// RemoveTeamMember drops a member from the roster. Captain checks belong to the caller;
// the store only refuses to remove the captain because the invariant that the captain
// is always a member must hold at the document level.
func (s *Store) RemoveTeamMember(name string, steamID string) error {
	res, err := s.Collections.Teams.UpdateOne(context.TODO(),
		bson.M{"name": name, "captain_id": bson.M{"$ne": steamID}},
		bson.M{"$pull": bson.M{"member_ids": steamID}})
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetTeamByName(name); err != nil {
			return err
		}
		return shared.ErrNotCaptain
	}
	return nil
}

// SetTeamChannel records the Discord channel mirroring this team's roster. An empty
// channelID clears the link after the channel is deleted.
func (s *Store) SetTeamChannel(name string, channelID string) error {
	update := bson.M{"$set": bson.M{"channel_id": channelID}}
	if channelID == "" {
		update = bson.M{"$unset": bson.M{"channel_id": ""}}
	}
	res, err := s.Collections.Teams.UpdateOne(context.TODO(), bson.M{"name": name}, update)
	if err != nil {
		return fmt.Errorf("failed to update team channel: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrTeamNotFound
	}
	return nil
}
