package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/service"
	"github.com/readnest/readnest-server/utils"
)

type PublicBooksHandler struct {
	Books  PublicBookStore
	Rating *service.RatingService
}

// List returns one page of the public catalog. Supported query parameters:
// page, limit, sort (date|rating).
func (h *PublicBooksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := pageQueryFromRequest(r)
	sort := r.URL.Query().Get("sort")

	books, total, err := h.Books.PublicBooks(r.Context(), q, sort)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, models.NewPagedBooks(books, q, total))
}

// Search matches q against title, author, summary, and genre; a genre
// parameter narrows results to that tag. Empty parameters list everything.
func (h *PublicBooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := pageQueryFromRequest(r)
	query := r.URL.Query().Get("q")
	genre := r.URL.Query().Get("genre")

	books, total, err := h.Books.SearchPublicBooks(r.Context(), query, genre, q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, models.NewPagedBooks(books, q, total))
}

// ByAuthor lists other public books by the named author. The optional
// exclude parameter drops the book the client is already showing.
func (h *PublicBooksHandler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	author := chi.URLParam(r, "authorName")
	exclude := primitive.NilObjectID
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid exclude id")
			return
		}
		exclude = id
	}

	books, err := h.Books.BooksByAuthor(r.Context(), author, exclude)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// Genres returns the distinct genre tags across public books as a sorted
// flat list. Stored values may be arrays or comma-delimited strings.
func (h *PublicBooksHandler) Genres(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Books.DistinctGenres(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list genres")
		return
	}
	writeJSON(w, http.StatusOK, models.DistinctGenres(raw))
}

type RateRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

// Rate records a rating on a public book. The rating identity is the
// authenticated user when a valid token came along, otherwise the client IP.
func (h *PublicBooksHandler) Rate(w http.ResponseWriter, r *http.Request) {
	bookID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "bookId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	var req RateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	identity := models.RaterIdentity{IP: utils.ClientIP(r)}
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		identity.UserID = userID
	}

	book, err := h.Rating.Rate(r.Context(), bookID, identity, req.Rating)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	writeJSON(w, http.StatusOK, book)
}
