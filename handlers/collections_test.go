package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/store"
)

type fakeCollections struct {
	byID  map[primitive.ObjectID]*models.Collection
	books map[primitive.ObjectID]*models.Book
}

func newFakeCollections(books ...*models.Book) *fakeCollections {
	f := &fakeCollections{
		byID:  make(map[primitive.ObjectID]*models.Collection),
		books: make(map[primitive.ObjectID]*models.Book),
	}
	for _, b := range books {
		f.books[b.ID] = b
	}
	return f
}

func (f *fakeCollections) owned(id, owner primitive.ObjectID) (*models.Collection, error) {
	c, ok := f.byID[id]
	if !ok || c.OwnerID != owner {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCollections) populate(c *models.Collection) models.CollectionWithBooks {
	out := models.CollectionWithBooks{Collection: *c, Books: []models.Book{}}
	for _, id := range c.BookIDs {
		if b, ok := f.books[id]; ok {
			out.Books = append(out.Books, *b)
		}
	}
	return out
}

func (f *fakeCollections) CreateCollection(ctx context.Context, c *models.Collection) (primitive.ObjectID, error) {
	cp := *c
	cp.ID = primitive.NewObjectID()
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeCollections) CollectionsByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.CollectionWithBooks, error) {
	out := []models.CollectionWithBooks{}
	for _, c := range f.byID {
		if c.OwnerID == owner {
			out = append(out, f.populate(c))
		}
	}
	return out, nil
}

func (f *fakeCollections) CollectionWithBooksByID(ctx context.Context, id, owner primitive.ObjectID) (*models.CollectionWithBooks, error) {
	c, err := f.owned(id, owner)
	if err != nil {
		return nil, err
	}
	populated := f.populate(c)
	return &populated, nil
}

func (f *fakeCollections) RenameCollection(ctx context.Context, id, owner primitive.ObjectID, name string) error {
	c, err := f.owned(id, owner)
	if err != nil {
		return err
	}
	c.Name = name
	return nil
}

func (f *fakeCollections) DeleteCollection(ctx context.Context, id, owner primitive.ObjectID) error {
	if _, err := f.owned(id, owner); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCollections) AddBookToCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error {
	c, err := f.owned(id, owner)
	if err != nil {
		return err
	}
	if c.Contains(bookID) {
		return store.ErrDuplicate
	}
	c.BookIDs = append(c.BookIDs, bookID)
	return nil
}

func (f *fakeCollections) RemoveBookFromCollection(ctx context.Context, id, owner, bookID primitive.ObjectID) error {
	c, err := f.owned(id, owner)
	if err != nil {
		return err
	}
	for i, existing := range c.BookIDs {
		if existing == bookID {
			c.BookIDs = append(c.BookIDs[:i], c.BookIDs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeCollections) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func newCollectionsRouter(h *CollectionsHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/collections", h.List)
	r.Post("/api/collections", h.Create)
	r.Put("/api/collections/{id}", h.Rename)
	r.Delete("/api/collections/{id}", h.Delete)
	r.Post("/api/collections/{id}/books", h.AddBook)
	r.Delete("/api/collections/{id}/books/{bookId}", h.RemoveBook)
	r.Post("/api/public-books/{bookId}/add-to-collection", h.AddFromPublic)
	return r
}

func seedCollection(f *fakeCollections, owner primitive.ObjectID, books ...primitive.ObjectID) *models.Collection {
	c := &models.Collection{
		ID:        primitive.NewObjectID(),
		Name:      "to read",
		OwnerID:   owner,
		BookIDs:   append([]primitive.ObjectID{}, books...),
		CreatedAt: time.Now(),
	}
	f.byID[c.ID] = c
	return c
}

func TestCollectionsCreate(t *testing.T) {
	h := &CollectionsHandler{Store: newFakeCollections()}
	r := newCollectionsRouter(h)
	owner := primitive.NewObjectID()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, "/api/collections", map[string]string{"name": "  to read "}), owner))
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.CollectionWithBooks
	decodeResponse(t, w, &created)
	assert.Equal(t, "to read", created.Name)
	assert.Equal(t, owner, created.OwnerID)
	assert.NotNil(t, created.Books)
	assert.Empty(t, created.Books)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, "/api/collections", map[string]string{"name": "   "}), owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCollectionsAddBook(t *testing.T) {
	owner := primitive.NewObjectID()
	public := &models.Book{ID: primitive.NewObjectID(), Title: "Dune", Public: true}
	f := newFakeCollections(public)
	c := seedCollection(f, owner)
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	target := "/api/collections/" + c.ID.Hex() + "/books"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, target, map[string]string{"bookId": public.ID.Hex()}), owner))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.CollectionWithBooks
	decodeResponse(t, w, &got)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "Dune", got.Books[0].Title)

	// Second add of the same book is a duplicate.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, target, map[string]string{"bookId": public.ID.Hex()}), owner))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "book already in collection")

	// Unknown book.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, target, map[string]string{"bookId": primitive.NewObjectID().Hex()}), owner))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Someone else's collection looks missing.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, target, map[string]string{"bookId": public.ID.Hex()}), primitive.NewObjectID()))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "collection not found")
}

func TestCollectionsAddPrivateForeignBook(t *testing.T) {
	owner := primitive.NewObjectID()
	private := &models.Book{ID: primitive.NewObjectID(), Title: "Diary", Public: false, OwnerID: primitive.NewObjectID()}
	f := newFakeCollections(private)
	c := seedCollection(f, owner)
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, "/api/collections/"+c.ID.Hex()+"/books",
		map[string]string{"bookId": private.ID.Hex()}), owner))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "book not found")
	assert.Empty(t, c.BookIDs)

	// The owner can shelve their own private book.
	own := &models.Book{ID: primitive.NewObjectID(), Title: "Mine", Public: false, OwnerID: owner}
	f.books[own.ID] = own
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, "/api/collections/"+c.ID.Hex()+"/books",
		map[string]string{"bookId": own.ID.Hex()}), owner))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCollectionsAddFromPublic(t *testing.T) {
	owner := primitive.NewObjectID()
	public := &models.Book{ID: primitive.NewObjectID(), Title: "Dune", Public: true}
	f := newFakeCollections(public)
	c := seedCollection(f, owner)
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPost, "/api/public-books/"+public.ID.Hex()+"/add-to-collection",
		map[string]string{"collectionId": c.ID.Hex()}), owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, c.Contains(public.ID))
}

func TestCollectionsRemoveBook(t *testing.T) {
	owner := primitive.NewObjectID()
	book := &models.Book{ID: primitive.NewObjectID(), Public: true}
	f := newFakeCollections(book)
	c := seedCollection(f, owner, book.ID)
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodDelete,
		"/api/collections/"+c.ID.Hex()+"/books/"+book.ID.Hex(), nil), owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, c.BookIDs)

	// Removing a book that is not a member is a 404.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodDelete,
		"/api/collections/"+c.ID.Hex()+"/books/"+book.ID.Hex(), nil), owner))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "collection or book not found")
}

func TestCollectionsRenameAndDelete(t *testing.T) {
	owner := primitive.NewObjectID()
	f := newFakeCollections()
	c := seedCollection(f, owner)
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPut, "/api/collections/"+c.ID.Hex(),
		map[string]string{"name": "finished"}), primitive.NewObjectID()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(jsonRequest(t, http.MethodPut, "/api/collections/"+c.ID.Hex(),
		map[string]string{"name": "finished"}), owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "finished", c.Name)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodDelete, "/api/collections/"+c.ID.Hex(), nil), owner))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.byID)
}

func TestCollectionsList(t *testing.T) {
	owner := primitive.NewObjectID()
	f := newFakeCollections()
	seedCollection(f, owner)
	seedCollection(f, primitive.NewObjectID())
	h := &CollectionsHandler{Store: f}
	r := newCollectionsRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodGet, "/api/collections", nil), owner))
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.CollectionWithBooks
	decodeResponse(t, w, &got)
	assert.Len(t, got, 1)
}
