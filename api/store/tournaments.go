/* tournaments.go
 * Contains the methods for interacting with the tournaments collection. The join path is
 * the only cross-request critical section in the system: slot increments go through a
 * single conditional FindOneAndUpdate so two joins racing for the last slot can never
 * both fill it.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourney-bot/api/shared"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateTournament inserts a new tournament document. Names are the external key, so a
// duplicate name is a conflict.
func (s *Store) CreateTournament(t *shared.Tournament) error {
	var existing shared.Tournament
	err := s.Collections.Tournaments.FindOne(context.TODO(), bson.M{"name": t.Name}).Decode(&existing)
	if err == nil {
		return shared.ErrTournamentNameConflict
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("lookup for existing tournament failed: %w", err)
	}

	if _, err := s.Collections.Tournaments.InsertOne(context.TODO(), t); err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

// GetTournament does a DB lookup for a tournament by name
func (s *Store) GetTournament(name string) (*shared.Tournament, error) {
	var t shared.Tournament
	err := s.Collections.Tournaments.FindOne(context.TODO(), bson.M{"name": name}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrTournamentNotFound
		}
		return nil, fmt.Errorf("error fetching tournament from db: %w", err)
	}
	return &t, nil
}

// ListTournaments returns every tournament document
func (s *Store) ListTournaments() ([]shared.Tournament, error) {
	cursor, err := s.Collections.Tournaments.Find(context.TODO(), bson.D{})
	if err != nil {
		return nil, fmt.Errorf("error fetching tournaments from db: %w", err)
	}

	var results []shared.Tournament
	if err = cursor.All(context.TODO(), &results); err != nil {
		return nil, fmt.Errorf("error unpacking cursor into slice of tournaments: %w", err)
	}
	return results, nil
}

// DeleteTournament removes a tournament outright. There is no soft delete state.
func (s *Store) DeleteTournament(name string) error {
	res, err := s.Collections.Tournaments.DeleteOne(context.TODO(), bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	if res.DeletedCount == 0 {
		return shared.ErrTournamentNotFound
	}
	return nil
}

// JoinTournamentPlayer atomically claims a slot for a solo player. The filter only
// matches an open, not-full tournament the player has not already joined, so the
// increment and the capacity check are a single compare-and-swap against the document.
// Preconditions: Receives the tournament name and the player's roster slot
// Postconditions: Returns the updated tournament document, or one of the join errors
func (s *Store) JoinTournamentPlayer(name string, slot shared.PlayerSlot) (*shared.Tournament, error) {
	filter := bson.M{
		"name":      name,
		"is_locked": false,
		"players":   bson.M{"$ne": slot.SteamID},
		"$expr":     bson.M{"$lt": bson.A{"$current_slots", "$max_slots"}},
	}
	update := bson.M{
		"$inc":  bson.M{"current_slots": 1},
		"$push": bson.M{"players": slot.SteamID, "player_objects": slot},
	}
	return s.joinTournament(name, slot.SteamID, filter, update)
}

// JoinTournamentTeam atomically claims a slot for a team, same contract as the player
// variant but keyed on the team id
func (s *Store) JoinTournamentTeam(name string, slot shared.TeamSlot) (*shared.Tournament, error) {
	filter := bson.M{
		"name":      name,
		"is_locked": false,
		"teams":     bson.M{"$ne": slot.TeamID},
		"$expr":     bson.M{"$lt": bson.A{"$current_slots", "$max_slots"}},
	}
	update := bson.M{
		"$inc":  bson.M{"current_slots": 1},
		"$push": bson.M{"teams": slot.TeamID, "team_objects": slot},
	}
	return s.joinTournament(name, slot.TeamID, filter, update)
}

func (s *Store) joinTournament(name, actorID string, filter, update bson.M) (*shared.Tournament, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated shared.Tournament
	err := s.Collections.Tournaments.FindOneAndUpdate(context.TODO(), filter, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("join update failed: %w", err)
	}

	// The conditional update matched nothing. Re-read the document to report why; the
	// read is only for the error message, the atomic path above already declined.
	return nil, s.classifyJoinRejection(name, actorID)
}

func (s *Store) classifyJoinRejection(name, actorID string) error {
	t, err := s.GetTournament(name)
	if err != nil {
		return err
	}
	for _, id := range append(append([]string{}, t.Players...), t.Teams...) {
		if id == actorID {
			return shared.ErrAlreadyJoined
		}
	}
	if t.IsLocked {
		return shared.ErrTournamentLocked
	}
	if t.CurrentSlots >= t.MaxSlots {
		return shared.ErrTournamentFull
	}
	return fmt.Errorf("concurrent update conflict joining tournament %q", name)
}

// LockTournament marks a tournament locked once it has filled. The is_locked: false
// condition guarantees that of all the joins racing past capacity exactly one caller
// sees modified == true, and that caller owns the one-time lock notification.
// Preconditions: Receives the tournament name
// Postconditions: Returns true if this call performed the lock transition
func (s *Store) LockTournament(name string) (bool, error) {
	now := time.Now().UTC()
	res, err := s.Collections.Tournaments.UpdateOne(context.TODO(), bson.M{
		"name":      name,
		"is_locked": false,
		"$expr":     bson.M{"$gte": bson.A{"$current_slots", "$max_slots"}},
	}, bson.M{
		"$set": bson.M{"is_locked": true, "grace_start": now},
	})
	if err != nil {
		return false, fmt.Errorf("lock update failed: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// LeaveTournamentPlayer removes a solo player from the roster and frees their slot
// count. Locking is a one-way transition: leaving a locked tournament does not clear
// is_locked, so the freed slot cannot be re-filled through join.
func (s *Store) LeaveTournamentPlayer(name string, steamID string) error {
	update := bson.M{
		"$pull": bson.M{"players": steamID, "player_objects": bson.M{"steam_id": steamID}},
		"$inc":  bson.M{"current_slots": -1},
	}
	return s.leaveTournament(name, bson.M{"name": name, "players": steamID}, update)
}

// LeaveTournamentTeam removes a team from the roster, same contract as the player variant
func (s *Store) LeaveTournamentTeam(name string, teamID string) error {
	update := bson.M{
		"$pull": bson.M{"teams": teamID, "team_objects": bson.M{"team_id": teamID}},
		"$inc":  bson.M{"current_slots": -1},
	}
	return s.leaveTournament(name, bson.M{"name": name, "teams": teamID}, update)
}

func (s *Store) leaveTournament(name string, filter, update bson.M) error {
	res, err := s.Collections.Tournaments.UpdateOne(context.TODO(), filter, update)
	if err != nil {
		return fmt.Errorf("leave update failed: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetTournament(name); err != nil {
			return err
		}
		return shared.ErrParticipantNotFound
	}
	return nil
}

// SetLobby stores the lobby credentials assigned by an operator after lock
func (s *Store) SetLobby(name, lobbyName, lobbyPassword, region string) error {
	res, err := s.Collections.Tournaments.UpdateOne(context.TODO(), bson.M{"name": name}, bson.M{
		"$set": bson.M{
			"lobby_name":     lobbyName,
			"lobby_password": lobbyPassword,
			"server_region":  region,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set lobby credentials: %w", err)
	}
	if res.MatchedCount == 0 {
		return shared.ErrTournamentNotFound
	}
	return nil
}
