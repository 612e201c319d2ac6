package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a document does not exist or is not owned by
// the caller. Ownership mismatches are deliberately indistinguishable from
// missing documents.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or add hits a value that is
// already present.
var ErrDuplicate = errors.New("already exists")

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Info().Str("database", dbName).Msg("connected to MongoDB")
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) Collections() *mongo.Collection {
	return db.Database.Collection("collections")
}

func (db *DB) History() *mongo.Collection {
	return db.Database.Collection("history")
}

// EnsureIndexes creates the indexes the queries rely on: unique usernames
// and emails, one history row per (user, book), and the owner and public
// listing filters.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = db.Books().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "isPublic", Value: 1}, {Key: "averageRating", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.Collections().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = db.History().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "book", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "book", Value: 1}}},
	})
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
