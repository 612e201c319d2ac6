package service

import (
	"context"
	"time"

	"github.com/readnest/readnest-server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReaderBookStore is the slice of the book repository the history flow needs.
type ReaderBookStore interface {
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	SetUniqueReadersCount(ctx context.Context, id primitive.ObjectID, count int64) error
	BookWithOwner(ctx context.Context, id primitive.ObjectID) (*models.BookWithOwner, error)
}

// ReaderHistoryStore records read events and counts distinct readers.
type ReaderHistoryStore interface {
	UpsertHistory(ctx context.Context, userID, bookID primitive.ObjectID, at time.Time) error
	DistinctReaders(ctx context.Context, bookID primitive.ObjectID) (int64, error)
}

// ReaderService maintains each book's unique reader count from its history
// rows.
type ReaderService struct {
	Books    ReaderBookStore
	History  ReaderHistoryStore
	Notifier Notifier
}

// Record upserts a history row for (user, book), recomputes the book's
// distinct reader count from history, persists it, and returns the refreshed
// book with its owner populated. Re-reads by a known reader leave the count
// unchanged.
func (s *ReaderService) Record(ctx context.Context, userID, bookID primitive.ObjectID) (*models.BookWithOwner, error) {
	if _, err := s.Books.BookByID(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.History.UpsertHistory(ctx, userID, bookID, time.Now()); err != nil {
		return nil, err
	}

	readers, err := s.History.DistinctReaders(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := s.Books.SetUniqueReadersCount(ctx, bookID, readers); err != nil {
		return nil, err
	}

	full, err := s.Books.BookWithOwner(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil {
		s.Notifier.ReadersCountChanged(full)
	}
	return full, nil
}
