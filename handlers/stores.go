package handlers

import (
	"context"
	"io"

	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The handlers consume narrow slices of *store.DB so tests can stand in
// fakes. All of these are satisfied by *store.DB.

type AuthStore interface {
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id primitive.ObjectID, username, email, city, country *string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id primitive.ObjectID, hashedPassword string) error
	UpdateUserProfileImage(ctx context.Context, id primitive.ObjectID, key string) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
}

type PersonalBookStore interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	PersonalBooks(ctx context.Context, owner primitive.ObjectID, window string, q models.PageQuery, sort string) ([]models.Book, int64, error)
	BookOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error)
	UpdateBookOwned(ctx context.Context, id, owner primitive.ObjectID, upd store.BookUpdate) (*models.Book, error)
	DeleteBookOwned(ctx context.Context, id, owner primitive.ObjectID) (*models.Book, error)
	TrendingBooks(ctx context.Context) ([]models.Book, error)
}

type PublicBookStore interface {
	PublicBooks(ctx context.Context, q models.PageQuery, sort string) ([]models.Book, int64, error)
	SearchPublicBooks(ctx context.Context, query, genre string, q models.PageQuery) ([]models.Book, int64, error)
	BooksByAuthor(ctx context.Context, author string, exclude primitive.ObjectID) ([]models.Book, error)
	DistinctGenres(ctx context.Context) ([]string, error)
}

type CollectionStore interface {
	CreateCollection(ctx context.Context, c *models.Collection) (primitive.ObjectID, error)
	CollectionsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CollectionWithBooks, error)
	CollectionWithBooksByID(ctx context.Context, id, owner primitive.ObjectID) (*models.CollectionWithBooks, error)
	RenameCollection(ctx context.Context, id, owner primitive.ObjectID, name string) error
	DeleteCollection(ctx context.Context, id, owner primitive.ObjectID) error
	AddBookToCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error
	RemoveBookFromCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
}

type FavoriteStore interface {
	AddFavorite(ctx context.Context, userID, bookID primitive.ObjectID) error
	RemoveFavorite(ctx context.Context, userID, bookID primitive.ObjectID) error
	FavoriteBooks(ctx context.Context, userID primitive.ObjectID) ([]models.Book, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
}

type HistoryStore interface {
	HistoryByUser(ctx context.Context, userID primitive.ObjectID) ([]models.HistoryWithBook, error)
}

// FileSource resolves documents whose stored objects get streamed.
type FileSource interface {
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// FileStorage is the object storage surface the upload and streaming
// handlers use. Satisfied by *service.FileStore.
type FileStorage interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}
