package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"csv-json-stream/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := common.TestDBInit()
	t.Cleanup(func() { common.TestDBFree(db) })
	require.NoError(t, AutoMigrate(db))

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1/users"), testSecret)

	protected := router.Group("/api/v1/private", AuthMiddleware(testSecret))
	protected.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name   string
		req    CredentialsRequest
		valid  bool
		fields []string
	}{
		{"ok", CredentialsRequest{Email: "ana@example.com", Password: "longenough"}, true, nil},
		{"bad email", CredentialsRequest{Email: "ana", Password: "longenough"}, false, []string{"email"}},
		{"short password", CredentialsRequest{Email: "ana@example.com", Password: "short"}, false, []string{"password"}},
		{"both", CredentialsRequest{Email: " ", Password: " "}, false, []string{"email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRegistration(tt.req)
			assert.Equal(t, tt.valid, result.Valid)
			var fields []string
			for _, e := range result.Errors {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestTokens(t *testing.T) {
	now := time.Now()
	token, err := IssueToken(testSecret, "user-1", now)
	require.NoError(t, err)

	subject, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)

	_, err = ParseToken([]byte("other"), token)
	assert.Error(t, err)

	expired, err := IssueToken(testSecret, "user-1", now.Add(-2*TokenTTL))
	require.NoError(t, err)
	_, err = ParseToken(testSecret, expired)
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/api/v1/users/register", `{"email":"Ana@Example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var registered TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.UserID)
	assert.NotEmpty(t, registered.Token)

	var user UserModel
	require.NoError(t, common.GetDB().Where("id = ?", registered.UserID).First(&user).Error)
	assert.Equal(t, "ana@example.com", user.Email)

	w = postJSON(router, "/api/v1/users/register", `{"email":"ana@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(router, "/api/v1/users/login", `{"email":"ana@example.com","password":"wrong-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(router, "/api/v1/users/login", `{"email":"ANA@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var loggedIn TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loggedIn))
	assert.Equal(t, registered.UserID, loggedIn.UserID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/private", nil)
	req.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), registered.UserID)
}

func TestRegister_Validation(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/api/v1/users/register", `{"email":"nope","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email format")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	router := setupRouter(t)

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/private", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
