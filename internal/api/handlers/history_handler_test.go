package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/compressly/compressly/internal/history"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newHistoryRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewHistoryHandler(history.New(&fakeRepo{}, &fakeStore{}), fakeProvider{})

	r := gin.New()
	r.GET("/api/history", handler.List)
	r.GET("/api/history/stats", handler.Stats)
	r.DELETE("/api/history/:id", handler.Delete)
	return r
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	r := newHistoryRouter()

	for _, route := range []struct{ method, path string }{
		{"GET", "/api/history"},
		{"GET", "/api/history/stats"},
		{"DELETE", "/api/history/00000000-0000-0000-0000-000000000000"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestHistoryListEmpty(t *testing.T) {
	r := newHistoryRouter()

	req := httptest.NewRequest("GET", "/api/history", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestHistoryDeleteRejectsBadID(t *testing.T) {
	r := newHistoryRouter()

	req := httptest.NewRequest("DELETE", "/api/history/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
