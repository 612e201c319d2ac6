package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/utils"
)

// FilesHandler streams stored objects through the API so documents only ever
// hold object keys.
type FilesHandler struct {
	Source FileSource
	Files  FileStorage
}

// Cover streams a book's cover image inline so it works as an img src.
func (h *FilesHandler) Cover(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := h.Source.BookByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	if book.CoverKey == "" || h.Files == nil {
		writeError(w, http.StatusNotFound, "no cover")
		return
	}
	h.stream(w, r, book.CoverKey, "")
}

// BookFile streams the book file. Public books are readable by anyone; a
// private book is only served to its owner and otherwise looks missing.
// Document formats are sent as attachments under their original name.
func (h *FilesHandler) BookFile(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := h.Source.BookByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	if !book.Public {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok || userID != book.OwnerID {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
	}
	if book.FileKey == "" || h.Files == nil {
		writeError(w, http.StatusNotFound, "no file")
		return
	}
	disposition := ""
	if utils.IsDocumentFormat(book.OriginalName) {
		disposition = utils.AttachmentDisposition(book.OriginalName)
	}
	h.stream(w, r, book.FileKey, disposition)
}

// ProfileImage streams a user's avatar inline.
func (h *FilesHandler) ProfileImage(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.Source.UserByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "user not found", "")
		return
	}
	if user.ProfileImage == "" || h.Files == nil {
		writeError(w, http.StatusNotFound, "no profile image")
		return
	}
	h.stream(w, r, user.ProfileImage, "")
}

func (h *FilesHandler) stream(w http.ResponseWriter, r *http.Request, key, disposition string) {
	body, contentType, err := h.Files.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load object")
		return
	}
	defer body.Close()
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	_, _ = io.Copy(w, body)
}
