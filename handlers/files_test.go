package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/store"
)

type fakeFileSource struct {
	books map[primitive.ObjectID]*models.Book
	users map[primitive.ObjectID]*models.User
}

func newFakeFileSource() *fakeFileSource {
	return &fakeFileSource{
		books: make(map[primitive.ObjectID]*models.Book),
		users: make(map[primitive.ObjectID]*models.User),
	}
}

func (f *fakeFileSource) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeFileSource) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newFilesRouter(h *FilesHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/books/{id}/cover", h.Cover)
	r.Get("/api/books/{id}/file", h.BookFile)
	r.Get("/api/users/{id}/profile-image", h.ProfileImage)
	return r
}

func uploadObject(t *testing.T, files *fakeFiles, key, contentType string, data []byte) {
	t.Helper()
	files.mu.Lock()
	defer files.mu.Unlock()
	files.objects[key] = data
	files.types[key] = contentType
}

func TestCoverStreamsInline(t *testing.T) {
	source := newFakeFileSource()
	files := newFakeFiles()
	book := &models.Book{ID: primitive.NewObjectID(), Public: true, CoverKey: "books/covers/dune.jpg"}
	source.books[book.ID] = book
	uploadObject(t, files, book.CoverKey, "image/jpeg", []byte("jpg-bytes"))

	h := &FilesHandler{Source: source, Files: files}
	r := newFilesRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/"+book.ID.Hex()+"/cover", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "jpg-bytes", w.Body.String())
}

func TestCoverMissing(t *testing.T) {
	source := newFakeFileSource()
	book := &models.Book{ID: primitive.NewObjectID(), Public: true}
	source.books[book.ID] = book
	h := &FilesHandler{Source: source, Files: newFakeFiles()}
	r := newFilesRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/"+book.ID.Hex()+"/cover", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/"+primitive.NewObjectID().Hex()+"/cover", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookFileAttachment(t *testing.T) {
	source := newFakeFileSource()
	files := newFakeFiles()
	book := &models.Book{
		ID:           primitive.NewObjectID(),
		Public:       true,
		FileKey:      "books/files/dune.epub",
		OriginalName: "dune.epub",
	}
	source.books[book.ID] = book
	uploadObject(t, files, book.FileKey, "application/epub+zip", []byte("epub-bytes"))

	h := &FilesHandler{Source: source, Files: files}
	r := newFilesRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books/"+book.ID.Hex()+"/file", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/epub+zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dune.epub"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "epub-bytes", w.Body.String())
}

func TestBookFilePrivateVisibility(t *testing.T) {
	owner := primitive.NewObjectID()
	source := newFakeFileSource()
	files := newFakeFiles()
	book := &models.Book{
		ID:           primitive.NewObjectID(),
		Public:       false,
		OwnerID:      owner,
		FileKey:      "books/files/secret.pdf",
		OriginalName: "secret.pdf",
	}
	source.books[book.ID] = book
	uploadObject(t, files, book.FileKey, "application/pdf", []byte("pdf-bytes"))

	h := &FilesHandler{Source: source, Files: files}
	r := newFilesRouter(h)
	target := "/api/books/" + book.ID.Hex() + "/file"

	// Anonymous and foreign readers both see a missing book.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodGet, target, nil), primitive.NewObjectID()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authed(httptest.NewRequest(http.MethodGet, target, nil), owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf-bytes", w.Body.String())
}

func TestProfileImage(t *testing.T) {
	source := newFakeFileSource()
	files := newFakeFiles()
	user := &models.User{ID: primitive.NewObjectID(), Username: "ada", ProfileImage: "users/avatars/ada.png"}
	source.users[user.ID] = user
	uploadObject(t, files, user.ProfileImage, "image/png", []byte("png-bytes"))

	h := &FilesHandler{Source: source, Files: files}
	r := newFilesRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+user.ID.Hex()+"/profile-image", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())

	bare := &models.User{ID: primitive.NewObjectID(), Username: "grace"}
	source.users[bare.ID] = bare
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+bare.ID.Hex()+"/profile-image", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
