package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
)

type FavoritesHandler struct {
	Store FavoriteStore
}

type FavoriteRequest struct {
	BookID string `json:"bookId" validate:"required"`
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	h.respondWithList(w, r, userID, http.StatusOK)
}

// Add stars a book. The book must exist, and private books can only be
// starred by their owner. Returns the refreshed list.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req FavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := h.Store.BookByID(r.Context(), bookID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	if !book.Public && book.OwnerID != userID {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	if err := h.Store.AddFavorite(r.Context(), userID, bookID); err != nil {
		writeStoreError(w, err, "user not found", "book already in favorites")
		return
	}
	h.respondWithList(w, r, userID, http.StatusOK)
}

// Remove unstars a book; removing one that was never starred is a 404.
// Returns the refreshed list.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.Store.RemoveFavorite(r.Context(), userID, bookID); err != nil {
		writeStoreError(w, err, "book not in favorites", "")
		return
	}
	h.respondWithList(w, r, userID, http.StatusOK)
}

func (h *FavoritesHandler) respondWithList(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, status int) {
	books, err := h.Store.FavoriteBooks(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	writeJSON(w, status, books)
}
