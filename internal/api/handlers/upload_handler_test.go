package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compressly/compressly/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploads   []string
	uploadErr error
}

func (f *fakeStore) Upload(ctx context.Context, reader io.Reader, objectName, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, objectName)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) Delete(ctx context.Context, objectName string) error { return nil }
func (f *fakeStore) ObjectURL(ctx context.Context, objectName string) (string, error) {
	return "http://example.test/" + objectName, nil
}
func (f *fakeStore) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}
func (f *fakeStore) Diagnose(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                       { return nil }

// fakeProvider treats any "Bearer <user>" token as that user's identity.
type fakeProvider struct{}

func (fakeProvider) Identify(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) <= len("Bearer ") {
		return "", false
	}
	return header[len("Bearer "):], true
}

func uploadRequest(t *testing.T, userID string, fileName string, fileData []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	if userID != "" {
		require.NoError(t, writer.WriteField("userId", userID))
	}
	require.NoError(t, writer.Close())

	r := httptest.NewRequest("POST", "/api/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}

func newUploadRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/upload", NewUploadHandler(store, fakeProvider{}).Upload)
	return r
}

func TestUploadRequiresAuthentication(t *testing.T) {
	r := newUploadRouter(&fakeStore{})

	req := uploadRequest(t, "user-1", "photo.jpg", []byte("data"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	r := newUploadRouter(&fakeStore{})

	req := uploadRequest(t, "user-1", "", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsUserIDMismatch(t *testing.T) {
	r := newUploadRouter(&fakeStore{})

	req := uploadRequest(t, "someone-else", "photo.jpg", []byte("data"))
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadStoresFile(t *testing.T) {
	store := &fakeStore{}
	r := newUploadRouter(store)

	req := uploadRequest(t, "user-1", "my photo.jpg", []byte("data"))
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.uploads, 1)
	assert.Regexp(t, `^\d+_my_photo\.jpg$`, store.uploads[0])
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestUploadReportsStorageFailure(t *testing.T) {
	store := &fakeStore{uploadErr: errors.New("connection refused")}
	r := newUploadRouter(store)

	req := uploadRequest(t, "user-1", "photo.jpg", []byte("data"))
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
