package service

import (
	"context"

	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RatingBookStore is the slice of the book repository the rating flow needs.
type RatingBookStore interface {
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	SaveRatingState(ctx context.Context, id primitive.ObjectID, entries []models.RatingEntry, average float64, count int) error
	BookWithOwner(ctx context.Context, id primitive.ObjectID) (*models.BookWithOwner, error)
}

// RatingService records ratings on public books and keeps the embedded
// aggregates consistent with the entries.
type RatingService struct {
	Books    RatingBookStore
	Notifier Notifier
}

// Rate applies value for identity to the book, persists the recomputed
// state, and returns the refreshed book with its owner populated. Books that
// are not public rate as not found.
func (s *RatingService) Rate(ctx context.Context, bookID primitive.ObjectID, identity models.RaterIdentity, value int) (*models.BookWithOwner, error) {
	book, err := s.Books.BookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.Public {
		return nil, store.ErrNotFound
	}

	book.ApplyRating(identity, value)
	if err := s.Books.SaveRatingState(ctx, bookID, book.Ratings, book.AverageRating, book.NumberOfRatings); err != nil {
		return nil, err
	}

	full, err := s.Books.BookWithOwner(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		s.Notifier.BookRated(full)
	}
	return full, nil
}
