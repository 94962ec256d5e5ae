/* store.go
 * Contains the store struct and NewStore function. The methods for this package are split
 * across three files: tournaments.go, users.go and teams.go. Each of these files contains
 * the methods for interacting with that collection.
 */

package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	Client      *mongo.Client
	Database    *mongo.Database
	Collections struct {
		Tournaments *mongo.Collection
		Users       *mongo.Collection
		Teams       *mongo.Collection
	}
}

// NewStore initialises the db connection and binds the collections. The client is a
// process wide handle, created once in main and reused by every request.
// Preconditions: Receives strings containing the database name and mongo URI
// Postconditions: Returns pointer to the Store object, or error if the connection fails
func NewStore(dbName string, mongoURI string) (*Store, error) {
	if dbName == "" || mongoURI == "" {
		return nil, fmt.Errorf("dbName and mongoURI cannot be empty")
	}

	client, err := mongo.Connect(context.TODO(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)

	return &Store{
		Client:   client,
		Database: db,
		Collections: struct {
			Tournaments *mongo.Collection
			Users       *mongo.Collection
			Teams       *mongo.Collection
		}{
			Tournaments: db.Collection("tournaments"),
			Users:       db.Collection("users"),
			Teams:       db.Collection("teams"),
		},
	}, nil
}
