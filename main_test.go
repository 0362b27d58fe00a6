package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"csv-json-stream/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T, cfg common.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := common.TestDBInit()
	t.Cleanup(func() { common.TestDBFree(db) })
	Migrate(db)

	return setupRouter(cfg)
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t, common.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	r := setupTestRouter(t, common.Config{AuthRequired: true, JWTSecret: "secret"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/conversions/some-job", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader("a\n1\n")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// registration stays public
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"email":"a@example.com","password":"password1"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestConvertWithoutAuth(t *testing.T) {
	r := setupTestRouter(t, common.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader("a\n1\n")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"a":"1"}`+"\n", w.Body.String())
}
