package store

import (
	"context"

	"github.com/readnest/readnest-server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) CreateCollection(ctx context.Context, c *models.Collection) (primitive.ObjectID, error) {
	res, err := db.Collections().InsertOne(ctx, c, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// CollectionsByOwner lists the owner's collections in creation order, with
// member books populated.
func (db *DB) CollectionsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CollectionWithBooks, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := db.Collections().Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var collections []models.Collection
	if err := cur.All(ctx, &collections); err != nil {
		return nil, err
	}

	var all []primitive.ObjectID
	for _, c := range collections {
		all = append(all, c.BookIDs...)
	}
	byID, err := db.booksByIDs(ctx, all)
	if err != nil {
		return nil, err
	}

	populated := make([]models.CollectionWithBooks, 0, len(collections))
	for _, c := range collections {
		populated = append(populated, populateCollection(c, byID))
	}
	return populated, nil
}

// CollectionWithBooksByID fetches one owned collection with members
// populated.
func (db *DB) CollectionWithBooksByID(ctx context.Context, id, owner primitive.ObjectID) (*models.CollectionWithBooks, error) {
	var c models.Collection
	err := db.Collections().FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	byID, err := db.booksByIDs(ctx, c.BookIDs)
	if err != nil {
		return nil, err
	}
	populated := populateCollection(c, byID)
	return &populated, nil
}

// populateCollection resolves member ids against fetched books, keeping
// member order and skipping references to deleted books.
func populateCollection(c models.Collection, byID map[primitive.ObjectID]models.Book) models.CollectionWithBooks {
	books := make([]models.Book, 0, len(c.BookIDs))
	for _, id := range c.BookIDs {
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}
	return models.CollectionWithBooks{Collection: c, Books: books}
}

// RenameCollection sets a new name on an owned collection.
func (db *DB) RenameCollection(ctx context.Context, id, owner primitive.ObjectID, name string) error {
	res, err := db.Collections().UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": bson.M{"name": name}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteCollection(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := db.Collections().DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddBookToCollection appends bookID to an owned collection. Adding a book
// that is already a member is reported as ErrDuplicate.
func (db *DB) AddBookToCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error {
	res, err := db.Collections().UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$addToSet": bson.M{"books": bookID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	if res.ModifiedCount == 0 {
		return ErrDuplicate
	}
	return nil
}

// RemoveBookFromCollection removes bookID from an owned collection. Removing
// a book that is not a member is reported as ErrNotFound.
func (db *DB) RemoveBookFromCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error {
	res, err := db.Collections().UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$pull": bson.M{"books": bookID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}
