package store

import (
	"context"

	"github.com/readnest/readnest-server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user, options.InsertOne())
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserProfile applies the non-nil fields and returns the updated user.
// Unique index collisions on username or email surface as ErrDuplicate.
func (db *DB) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, username, email, city, country *string) (*models.User, error) {
	updates := bson.M{}
	if username != nil {
		updates["username"] = *username
	}
	if email != nil {
		updates["email"] = *email
	}
	if city != nil {
		updates["city"] = *city
	}
	if country != nil {
		updates["country"] = *country
	}
	if len(updates) == 0 {
		return db.UserByID(ctx, id)
	}
	var u models.User
	err := db.Users().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

func (db *DB) UpdateUserPassword(ctx context.Context, id primitive.ObjectID, hashedPassword string) error {
	res, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hashedPassword}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateUserProfileImage(ctx context.Context, id primitive.ObjectID, key string) error {
	res, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"profileImage": key}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddFavorite adds bookID to the user's favorites. Adding a book that is
// already present is reported as ErrDuplicate.
func (db *DB) AddFavorite(ctx context.Context, userID, bookID primitive.ObjectID) error {
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"favorites": bookID}},
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

// RemoveFavorite removes bookID from the user's favorites. Removing a book
// that is not present is reported as ErrNotFound.
func (db *DB) RemoveFavorite(ctx context.Context, userID, bookID primitive.ObjectID) error {
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"favorites": bookID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FavoriteBooks resolves the user's favorites to full book documents, in
// favorites order. References to deleted books are skipped.
func (db *DB) FavoriteBooks(ctx context.Context, userID primitive.ObjectID) ([]models.Book, error) {
	u, err := db.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Favorites) == 0 {
		return []models.Book{}, nil
	}
	byID, err := db.booksByIDs(ctx, u.Favorites)
	if err != nil {
		return nil, err
	}
	books := make([]models.Book, 0, len(u.Favorites))
	for _, id := range u.Favorites {
		if b, ok := byID[id]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}
