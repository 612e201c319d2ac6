package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/service"
)

type HistoryHandler struct {
	Store   HistoryStore
	Readers *service.ReaderService
}

type RecordHistoryRequest struct {
	BookID string `json:"bookId" validate:"required"`
}

// List returns the caller's reading history, most recent first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	rows, err := h.Store.HistoryByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Record marks a book as read by the caller and returns the refreshed book
// with its updated reader count.
func (h *HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	var req RecordHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := h.Readers.Record(r.Context(), userID, bookID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	writeJSON(w, http.StatusOK, book)
}
