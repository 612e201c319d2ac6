package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/readnest/readnest-server/store"
)

// validate checks request structs; rules live on their `validate` tags.
var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeStoreError maps repository errors onto statuses: masked or missing
// documents become 404, duplicate adds 400, anything else 500. The notFound
// message names what was being looked up.
func writeStoreError(w http.ResponseWriter, err error, notFound, duplicate string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, duplicate)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
