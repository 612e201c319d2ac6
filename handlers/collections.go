package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/models"
)

type CollectionsHandler struct {
	Store CollectionStore
}

type CollectionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type AddToCollectionRequest struct {
	BookID string `json:"bookId" validate:"required"`
}

type AddFromPublicRequest struct {
	CollectionID string `json:"collectionId" validate:"required"`
}

func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	collections, err := h.Store.CollectionsByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list collections")
		return
	}
	writeJSON(w, http.StatusOK, collections)
}

func (h *CollectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req CollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &models.Collection{
		Name:      req.Name,
		OwnerID:   userID,
		BookIDs:   []primitive.ObjectID{},
		CreatedAt: time.Now(),
	}
	id, err := h.Store.CreateCollection(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create collection")
		return
	}
	c.ID = id
	writeJSON(w, http.StatusCreated, models.CollectionWithBooks{Collection: *c, Books: []models.Book{}})
}

func (h *CollectionsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}
	var req CollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.RenameCollection(r.Context(), id, userID, req.Name); err != nil {
		writeStoreError(w, err, "collection not found", "")
		return
	}
	h.respondWithCollection(w, r, id, userID)
}

func (h *CollectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}
	if err := h.Store.DeleteCollection(r.Context(), id, userID); err != nil {
		writeStoreError(w, err, "collection not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddBook appends a book to an owned collection. The book must exist, and
// private books can only be shelved by their owner.
func (h *CollectionsHandler) AddBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}
	var req AddToCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	h.addBook(w, r, id, userID, bookID)
}

// AddFromPublic shelves a public book into one of the caller's collections.
func (h *CollectionsHandler) AddFromPublic(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	var req AddFromPublicRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := primitive.ObjectIDFromHex(req.CollectionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}

	h.addBook(w, r, id, userID, bookID)
}

func (h *CollectionsHandler) addBook(w http.ResponseWriter, r *http.Request, id, userID, bookID primitive.ObjectID) {
	book, err := h.Store.BookByID(r.Context(), bookID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	if !book.Public && book.OwnerID != userID {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := h.Store.AddBookToCollection(r.Context(), id, userID, bookID); err != nil {
		writeStoreError(w, err, "collection not found", "book already in collection")
		return
	}
	h.respondWithCollection(w, r, id, userID)
}

func (h *CollectionsHandler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection id")
		return
	}
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.Store.RemoveBookFromCollection(r.Context(), id, userID, bookID); err != nil {
		writeStoreError(w, err, "collection or book not found", "")
		return
	}
	h.respondWithCollection(w, r, id, userID)
}

func (h *CollectionsHandler) respondWithCollection(w http.ResponseWriter, r *http.Request, id, userID primitive.ObjectID) {
	c, err := h.Store.CollectionWithBooksByID(r.Context(), id, userID)
	if err != nil {
		writeStoreError(w, err, "collection not found", "")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
