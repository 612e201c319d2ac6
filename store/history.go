package store

import (
	"context"
	"time"

	"github.com/readnest/readnest-server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertHistory records that the user opened the book at the given time.
// The unique (user, book) index guarantees a single row per pair; repeat
// reads only refresh lastReadAt.
func (db *DB) UpsertHistory(ctx context.Context, userID, bookID primitive.ObjectID, at time.Time) error {
	_, err := db.History().UpdateOne(ctx,
		bson.M{"user": userID, "book": bookID},
		bson.M{"$set": bson.M{"lastReadAt": at}},
		options.Update().SetUpsert(true),
	)
	return err
}

// DistinctReaders counts the distinct users with a history row for the book.
func (db *DB) DistinctReaders(ctx context.Context, bookID primitive.ObjectID) (int64, error) {
	values, err := db.History().Distinct(ctx, "user", bson.M{"book": bookID})
	if err != nil {
		return 0, err
	}
	return int64(len(values)), nil
}

// HistoryByUser lists the user's history rows, most recently read first,
// with book documents joined in.
func (db *DB) HistoryByUser(ctx context.Context, userID primitive.ObjectID) ([]models.HistoryWithBook, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user": userID}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "lastReadAt", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "books",
			"localField":   "book",
			"foreignField": "_id",
			"as":           "bookInfo",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$bookInfo",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
	cur, err := db.History().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []models.HistoryWithBook
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.HistoryWithBook{}
	}
	for i := range rows {
		if rows[i].Book != nil {
			rows[i].Book.DeriveURLs()
		}
	}
	return rows, nil
}
