package store

import (
	"context"
	"regexp"
	"time"

	"github.com/readnest/readnest-server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	trendingLimit    = 4
	authorPeersLimit = 5
)

// sortSpec maps a listing sort key onto a Mongo sort document. Multi-key
// sorts need bson.D; bson.M loses key order.
func sortSpec(sort string) bson.D {
	switch sort {
	case "rating":
		return bson.D{{Key: "averageRating", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

// windowStart resolves a recency filter to its inclusive lower bound:
// "today" since local midnight, "week" the last seven days, "month" one
// calendar month back. Unknown values report false.
func windowStart(window string, now time.Time) (time.Time, bool) {
	switch window {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case "week":
		return now.AddDate(0, 0, -7), true
	case "month":
		return now.AddDate(0, -1, 0), true
	}
	return time.Time{}, false
}

func caseInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	book.DeriveURLs()
	return &book, nil
}

// BookOwned fetches a book only when owner matches.
func (db *DB) BookOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	book.DeriveURLs()
	return &book, nil
}

// BookWithOwner fetches a book with its owner document joined in.
func (db *DB) BookWithOwner(ctx context.Context, id primitive.ObjectID) (*models.BookWithOwner, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"_id": id}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "owner",
			"foreignField": "_id",
			"as":           "ownerInfo",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$ownerInfo",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
	cur, err := db.Books().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var results []models.BookWithOwner
	if err := cur.All(ctx, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	book := results[0]
	book.DeriveURLs()
	return &book, nil
}

// PublicBooks returns one page of the public catalog plus the total count.
func (db *DB) PublicBooks(ctx context.Context, q models.PageQuery, sort string) ([]models.Book, int64, error) {
	return db.pagedBooks(ctx, bson.M{"isPublic": true}, q, sort)
}

// PersonalBooks returns one page of the owner's shelf plus the total count.
// A recognized window value restricts results to recently added books.
func (db *DB) PersonalBooks(ctx context.Context, owner primitive.ObjectID, window string, q models.PageQuery, sort string) ([]models.Book, int64, error) {
	filter := bson.M{"owner": owner}
	if since, ok := windowStart(window, time.Now()); ok {
		filter["createdAt"] = bson.M{"$gte": since}
	}
	return db.pagedBooks(ctx, filter, q, sort)
}

// SearchPublicBooks matches query against title, author, summary, and genre,
// case-insensitively. A genre value additionally restricts matches to books
// tagged with it. Empty arguments leave the public catalog unfiltered.
func (db *DB) SearchPublicBooks(ctx context.Context, query, genre string, q models.PageQuery) ([]models.Book, int64, error) {
	filter := bson.M{"isPublic": true}
	var and []bson.M
	if query != "" {
		re := caseInsensitive(query)
		and = append(and, bson.M{"$or": []bson.M{
			{"title": re},
			{"author": re},
			{"summary": re},
			{"genre": re},
		}})
	}
	if genre != "" {
		and = append(and, bson.M{"genre": caseInsensitive(genre)})
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return db.pagedBooks(ctx, filter, q, "")
}

func (db *DB) pagedBooks(ctx context.Context, filter bson.M, q models.PageQuery, sort string) ([]models.Book, int64, error) {
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(sortSpec(sort)).
		SetSkip(q.Skip()).
		SetLimit(q.Limit)
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, 0, err
	}
	return deriveAll(books), total, nil
}

// BooksByAuthor returns other public books by the same author, matched
// case-insensitively, capped at a handful of peers.
func (db *DB) BooksByAuthor(ctx context.Context, author string, exclude primitive.ObjectID) ([]models.Book, error) {
	filter := bson.M{"isPublic": true, "author": caseInsensitive(author)}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	opts := options.Find().
		SetSort(sortSpec("")).
		SetLimit(authorPeersLimit)
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return deriveAll(books), nil
}

// trendingSort ranks by average rating, then rating count, then unique
// readers, all descending.
var trendingSort = bson.D{
	{Key: "averageRating", Value: -1},
	{Key: "numberOfRatings", Value: -1},
	{Key: "uniqueReadersCount", Value: -1},
}

// TrendingBooks returns the top public books ordered by trendingSort.
func (db *DB) TrendingBooks(ctx context.Context) ([]models.Book, error) {
	opts := options.Find().
		SetSort(trendingSort).
		SetLimit(trendingLimit)
	cur, err := db.Books().Find(ctx, bson.M{"isPublic": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return deriveAll(books), nil
}

// DistinctGenres returns the raw stored genre values across public books.
// Values may be single genres or comma-delimited lists; callers normalize.
func (db *DB) DistinctGenres(ctx context.Context) ([]string, error) {
	values, err := db.Books().Distinct(ctx, "genre", bson.M{"isPublic": true})
	if err != nil {
		return nil, err
	}
	genres := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			genres = append(genres, s)
		}
	}
	return genres, nil
}

// BookUpdate carries the optional fields of a book edit. Nil fields are left
// untouched.
type BookUpdate struct {
	Title        *string
	Author       *string
	Summary      *string
	Genres       []string
	Public       *bool
	CoverKey     *string
	FileKey      *string
	OriginalName *string
}

// UpdateBookOwned applies upd to a book the owner holds and returns the
// updated document. A missing book and an ownership mismatch are both
// ErrNotFound.
func (db *DB) UpdateBookOwned(ctx context.Context, id, owner primitive.ObjectID, upd BookUpdate) (*models.Book, error) {
	updates := bson.M{}
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Author != nil {
		updates["author"] = *upd.Author
	}
	if upd.Summary != nil {
		updates["summary"] = *upd.Summary
	}
	if upd.Genres != nil {
		updates["genre"] = upd.Genres
	}
	if upd.Public != nil {
		updates["isPublic"] = *upd.Public
	}
	if upd.CoverKey != nil {
		updates["coverKey"] = *upd.CoverKey
	}
	if upd.FileKey != nil {
		updates["fileKey"] = *upd.FileKey
	}
	if upd.OriginalName != nil {
		updates["originalName"] = *upd.OriginalName
	}
	if len(updates) == 0 {
		return db.BookOwned(ctx, id, owner)
	}
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": updates},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	book.DeriveURLs()
	return &book, nil
}

// DeleteBookOwned removes a book the owner holds and returns the deleted
// document so callers can clean up its stored objects.
func (db *DB) DeleteBookOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// SaveRatingState persists a recomputed ratings slice and its aggregates.
func (db *DB) SaveRatingState(ctx context.Context, id primitive.ObjectID, entries []models.RatingEntry, average float64, count int) error {
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"ratings":         entries,
		"averageRating":   average,
		"numberOfRatings": count,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) SetUniqueReadersCount(ctx context.Context, id primitive.ObjectID, count int64) error {
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"uniqueReadersCount": count}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// booksByIDs fetches the given books in one query, keyed by id.
func (db *DB) booksByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Book, error) {
	byID := make(map[primitive.ObjectID]models.Book, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	cur, err := db.Books().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	for _, b := range deriveAll(books) {
		byID[b.ID] = b
	}
	return byID, nil
}

func deriveAll(books []models.Book) []models.Book {
	if books == nil {
		return []models.Book{}
	}
	for i := range books {
		books[i].DeriveURLs()
	}
	return books
}
