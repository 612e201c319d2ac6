package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
	"github.com/readnest/readnest-server/models"
	"github.com/readnest/readnest-server/service"
	"github.com/readnest/readnest-server/store"
)

const (
	contentTypeEPUB = "application/epub+zip"
	contentTypePDF  = "application/pdf"
)

var errBookFormat = errors.New("only epub and pdf files are allowed")

type PersonalBooksHandler struct {
	Books    PersonalBookStore
	Files    FileStorage
	MaxBytes int64
}

// List returns one page of the caller's shelf. Supported query parameters:
// page, limit, sort (date|rating), filter (today|week|month).
func (h *PersonalBooksHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	q := pageQueryFromRequest(r)
	sort := r.URL.Query().Get("sort")
	window := r.URL.Query().Get("filter")

	books, total, err := h.Books.PersonalBooks(r.Context(), userID, window, q, sort)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, models.NewPagedBooks(books, q, total))
}

// Create stores a new book from a multipart form: metadata fields plus a
// required "file" part and an optional "cover" part. Both objects upload in
// parallel.
func (h *PersonalBooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if h.Files == nil {
		writeError(w, http.StatusServiceUnavailable, "upload not configured")
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	author := strings.TrimSpace(r.FormValue("author"))
	if title == "" || author == "" {
		writeError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	summary := strings.TrimSpace(r.FormValue("summary"))
	genres := genresFromForm(r)
	isPublic, err := boolFromForm(r, "isPublic")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid isPublic value")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing book file")
		return
	}
	defer file.Close()
	fileContentType, err := bookContentType(fileHeader)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cover, coverHeader, err := r.FormFile("cover")
	hasCover := err == nil
	if hasCover {
		defer cover.Close()
		if !strings.HasPrefix(coverHeader.Header.Get("Content-Type"), "image/") {
			writeError(w, http.StatusBadRequest, "cover must be an image")
			return
		}
	}

	// The file and cover are independent objects; upload them in parallel so
	// total time is the slower of the two.
	var (
		wg       sync.WaitGroup
		fileKey  string
		fileErr  error
		coverKey string
		coverErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		fileKey, fileErr = h.Files.Upload(r.Context(), service.PrefixBookFiles, fileHeader.Filename, file, fileContentType)
	}()
	if hasCover {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coverKey, coverErr = h.Files.Upload(r.Context(), service.PrefixBookCovers, coverHeader.Filename, cover, coverHeader.Header.Get("Content-Type"))
		}()
	}
	wg.Wait()

	if fileErr != nil || (hasCover && coverErr != nil) {
		writeError(w, http.StatusInternalServerError, "failed to upload to storage")
		return
	}

	book := &models.Book{
		Title:        title,
		Author:       author,
		Genres:       models.GenreList(genres),
		Summary:      summary,
		OwnerID:      userID,
		Public:       isPublic != nil && *isPublic,
		CoverKey:     coverKey,
		FileKey:      fileKey,
		OriginalName: fileHeader.Filename,
		Ratings:      []models.RatingEntry{},
		CreatedAt:    time.Now(),
	}
	id, err := h.Books.InsertBook(r.Context(), book)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save book record")
		return
	}
	book.ID = id
	book.DeriveURLs()
	writeJSON(w, http.StatusCreated, book)
}

func (h *PersonalBooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := h.Books.BookOwned(r.Context(), id, userID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Update edits an owned book from a multipart form. Absent fields are left
// unchanged; fresh "file" or "cover" parts replace the stored objects.
func (h *PersonalBooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	var upd store.BookUpdate
	upd.Title = trimmedFormValue(r, "title")
	upd.Author = trimmedFormValue(r, "author")
	upd.Summary = trimmedFormValue(r, "summary")
	if hasFormValue(r, "genre") {
		upd.Genres = genresFromForm(r)
	}
	upd.Public, err = boolFromForm(r, "isPublic")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid isPublic value")
		return
	}
	if upd.Title != nil && *upd.Title == "" {
		writeError(w, http.StatusBadRequest, "title cannot be empty")
		return
	}
	if upd.Author != nil && *upd.Author == "" {
		writeError(w, http.StatusBadRequest, "author cannot be empty")
		return
	}

	// Look the book up first so replaced objects can be cleaned up after the
	// update lands. The owned filter also masks other users' books.
	current, err := h.Books.BookOwned(r.Context(), id, userID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}

	var replacedKeys []string
	if file, fileHeader, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		if h.Files == nil {
			writeError(w, http.StatusServiceUnavailable, "upload not configured")
			return
		}
		contentType, cerr := bookContentType(fileHeader)
		if cerr != nil {
			writeError(w, http.StatusBadRequest, cerr.Error())
			return
		}
		key, uerr := h.Files.Upload(r.Context(), service.PrefixBookFiles, fileHeader.Filename, file, contentType)
		if uerr != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload to storage")
			return
		}
		upd.FileKey = &key
		name := fileHeader.Filename
		upd.OriginalName = &name
		if current.FileKey != "" {
			replacedKeys = append(replacedKeys, current.FileKey)
		}
	}
	if cover, coverHeader, cerr := r.FormFile("cover"); cerr == nil {
		defer cover.Close()
		if h.Files == nil {
			writeError(w, http.StatusServiceUnavailable, "upload not configured")
			return
		}
		contentType := coverHeader.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			writeError(w, http.StatusBadRequest, "cover must be an image")
			return
		}
		key, uerr := h.Files.Upload(r.Context(), service.PrefixBookCovers, coverHeader.Filename, cover, contentType)
		if uerr != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload to storage")
			return
		}
		upd.CoverKey = &key
		if current.CoverKey != "" {
			replacedKeys = append(replacedKeys, current.CoverKey)
		}
	}

	book, err := h.Books.UpdateBookOwned(r.Context(), id, userID, upd)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	for _, key := range replacedKeys {
		_ = h.Files.Delete(r.Context(), key)
	}
	writeJSON(w, http.StatusOK, book)
}

// Trending returns the top public books by rating. It sits on the personal
// shelf surface because the web client renders it there, but needs no auth.
func (h *PersonalBooksHandler) Trending(w http.ResponseWriter, r *http.Request) {
	books, err := h.Books.TrendingBooks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trending books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *PersonalBooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := h.Books.DeleteBookOwned(r.Context(), id, userID)
	if err != nil {
		writeStoreError(w, err, "book not found", "")
		return
	}
	if h.Files != nil {
		if book.FileKey != "" {
			_ = h.Files.Delete(r.Context(), book.FileKey)
		}
		if book.CoverKey != "" {
			_ = h.Files.Delete(r.Context(), book.CoverKey)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// pageQueryFromRequest parses page and limit, tolerating junk values.
func pageQueryFromRequest(r *http.Request) models.PageQuery {
	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	return models.NewPageQuery(page, limit)
}

// genresFromForm collects repeated "genre" values; each may itself be a
// comma-delimited list.
func genresFromForm(r *http.Request) []string {
	if r.MultipartForm == nil {
		return models.NormalizeGenres(nil)
	}
	return models.NormalizeGenres(r.MultipartForm.Value["genre"])
}

func hasFormValue(r *http.Request, key string) bool {
	if r.MultipartForm == nil {
		return false
	}
	_, ok := r.MultipartForm.Value[key]
	return ok
}

// trimmedFormValue returns the trimmed field when present, nil otherwise.
func trimmedFormValue(r *http.Request, key string) *string {
	if !hasFormValue(r, key) {
		return nil
	}
	v := strings.TrimSpace(r.FormValue(key))
	return &v
}

// boolFromForm parses an optional boolean field. Absent fields return nil.
func boolFromForm(r *http.Request, key string) (*bool, error) {
	if !hasFormValue(r, key) {
		return nil, nil
	}
	v, err := strconv.ParseBool(r.FormValue(key))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// bookContentType validates the uploaded part and resolves the content type
// to store. Only EPUB and PDF files are accepted.
func bookContentType(header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(header.Filename)))
	partContentType := header.Header.Get("Content-Type")

	allowedByExt := ext == ".epub" || ext == ".pdf"
	allowedByMime := strings.HasPrefix(partContentType, contentTypeEPUB) || strings.HasPrefix(partContentType, contentTypePDF)
	if !allowedByExt && !allowedByMime {
		return "", errBookFormat
	}
	if ext == ".epub" || strings.HasPrefix(partContentType, contentTypeEPUB) {
		return contentTypeEPUB, nil
	}
	return contentTypePDF, nil
}
