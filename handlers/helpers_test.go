package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/readnest/readnest-server/middleware"
)

// fakeFiles is an in-memory FileStorage. Keys are prefix plus the original
// filename so tests can assert on them.
type fakeFiles struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	deleted    []string
	failUpload bool
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeFiles) Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	if f.failUpload {
		return "", errors.New("upload failed")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prefix + originalFilename
	f.objects[key] = data
	f.types[key] = contentType
	return key, nil
}

func (f *fakeFiles) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeFiles) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[key], nil
}

func (f *fakeFiles) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// authed attaches userID to the request the way the auth middleware does.
func authed(r *http.Request, userID primitive.ObjectID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}
