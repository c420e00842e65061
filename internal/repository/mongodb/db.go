// Package mongodb implements the stores on MongoDB. Users embed their
// sessions; lists reference their owner and tasks reference their list.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/taskmanager/taskmanager-go/internal/repository"
)

const (
	usersCollection = "users"
	listsCollection = "lists"
	tasksCollection = "tasks"
)

// Connect opens a client for uri, pings the primary and ensures the indexes
// the stores rely on exist in database.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(database)
	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	return client, db, nil
}

// EnsureIndexes creates the unique email index and the ownership lookup indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("creating users index: %w", err)
	}

	if _, err := db.Collection(listsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "_userId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating lists index: %w", err)
	}

	if _, err := db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "_listId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating tasks index: %w", err)
	}

	return nil
}

// parseID converts a hex id from a URL or token claim. Malformed ids can
// never match a document, so they report the caller's not-found error.
func parseID(id string, notFound error) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return oid, nil
}

func parseUserID(id string) (primitive.ObjectID, error) {
	return parseID(id, repository.ErrUserNotFound)
}

func parseDocID(id string) (primitive.ObjectID, error) {
	return parseID(id, repository.ErrNotFound)
}

func now() time.Time {
	// BSON dates carry millisecond precision.
	return time.Now().UTC().Truncate(time.Millisecond)
}
