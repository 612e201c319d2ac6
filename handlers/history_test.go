package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/service"
	"github.com/readnest/readnest-server/store"
)

type readerBooks struct {
	book *models.Book
}

func (f *readerBooks) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	if f.book == nil || f.book.ID != id {
		return nil, store.ErrNotFound
	}
	cp := *f.book
	return &cp, nil
}

func (f *readerBooks) SetUniqueReadersCount(ctx context.Context, id primitive.ObjectID, count int64) error {
	f.book.UniqueReadersCount = int(count)
	return nil
}

func (f *readerBooks) BookWithOwner(ctx context.Context, id primitive.ObjectID) (*models.BookWithOwner, error) {
	return &models.BookWithOwner{Book: *f.book}, nil
}

type readerHistory struct {
	rows map[primitive.ObjectID]map[primitive.ObjectID]time.Time
}

func newReaderHistory() *readerHistory {
	return &readerHistory{rows: make(map[primitive.ObjectID]map[primitive.ObjectID]time.Time)}
}

func (f *readerHistory) UpsertHistory(ctx context.Context, userID, bookID primitive.ObjectID, at time.Time) error {
	byUser, ok := f.rows[bookID]
	if !ok {
		byUser = make(map[primitive.ObjectID]time.Time)
		f.rows[bookID] = byUser
	}
	byUser[userID] = at
	return nil
}

func (f *readerHistory) DistinctReaders(ctx context.Context, bookID primitive.ObjectID) (int64, error) {
	return int64(len(f.rows[bookID])), nil
}

type fakeHistoryRows struct {
	rows []models.HistoryWithBook
}

func (f *fakeHistoryRows) HistoryByUser(ctx context.Context, userID primitive.ObjectID) ([]models.HistoryWithBook, error) {
	return f.rows, nil
}

func TestHistoryRecord(t *testing.T) {
	book := &models.Book{ID: primitive.NewObjectID(), Title: "Dune", Public: true}
	history := newReaderHistory()
	h := &HistoryHandler{
		Store:   &fakeHistoryRows{},
		Readers: &service.ReaderService{Books: &readerBooks{book: book}, History: history},
	}

	alice := primitive.NewObjectID()
	w := httptest.NewRecorder()
	h.Record(w, authed(jsonRequest(t, http.MethodPost, "/api/history", map[string]string{"bookId": book.ID.Hex()}), alice))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.BookWithOwner
	decodeResponse(t, w, &got)
	assert.Equal(t, 1, got.UniqueReadersCount)

	// Same reader again: count stays put.
	w = httptest.NewRecorder()
	h.Record(w, authed(jsonRequest(t, http.MethodPost, "/api/history", map[string]string{"bookId": book.ID.Hex()}), alice))
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &got)
	assert.Equal(t, 1, got.UniqueReadersCount)

	w = httptest.NewRecorder()
	h.Record(w, authed(jsonRequest(t, http.MethodPost, "/api/history", map[string]string{"bookId": book.ID.Hex()}), primitive.NewObjectID()))
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &got)
	assert.Equal(t, 2, got.UniqueReadersCount)
}

func TestHistoryRecordErrors(t *testing.T) {
	h := &HistoryHandler{
		Store:   &fakeHistoryRows{},
		Readers: &service.ReaderService{Books: &readerBooks{}, History: newReaderHistory()},
	}
	user := primitive.NewObjectID()

	w := httptest.NewRecorder()
	h.Record(w, authed(jsonRequest(t, http.MethodPost, "/api/history", map[string]string{"bookId": "zzz"}), user))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.Record(w, authed(jsonRequest(t, http.MethodPost, "/api/history", map[string]string{"bookId": primitive.NewObjectID().Hex()}), user))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "book not found")
}

func TestHistoryList(t *testing.T) {
	user := primitive.NewObjectID()
	rows := []models.HistoryWithBook{
		{
			History: models.History{ID: primitive.NewObjectID(), UserID: user, BookID: primitive.NewObjectID(), LastReadAt: time.Now()},
			Book:    &models.Book{Title: "Dune"},
		},
		{
			// The book was deleted after it was read.
			History: models.History{ID: primitive.NewObjectID(), UserID: user, BookID: primitive.NewObjectID(), LastReadAt: time.Now().Add(-time.Hour)},
		},
	}
	h := &HistoryHandler{Store: &fakeHistoryRows{rows: rows}}

	w := httptest.NewRecorder()
	h.List(w, authed(httptest.NewRequest(http.MethodGet, "/api/history", nil), user))
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.HistoryWithBook
	decodeResponse(t, w, &got)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Book)
	assert.Equal(t, "Dune", got[0].Book.Title)
	assert.Nil(t, got[1].Book)
}
