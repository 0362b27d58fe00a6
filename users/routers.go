package users

import (
	"net/http"
	"time"

	"csv-json-stream/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenResponse is returned by register and login
type TokenResponse struct {
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// RegisterRoutes mounts the user endpoints
func RegisterRoutes(router *gin.RouterGroup, secret []byte) {
	router.POST("/register", Register(secret))
	router.POST("/login", Login(secret))
}

// Register godoc
// @Summary Register an API user
// @Tags users
// @Accept json
// @Produce json
// @Param user body CredentialsRequest true "Credentials"
// @Success 201 {object} TokenResponse
// @Failure 400 {object} map[string]interface{} "Validation errors"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /users/register [post]
func Register(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if result := ValidateRegistration(req); !result.Valid {
			c.JSON(http.StatusBadRequest, gin.H{"errors": result.Errors})
			return
		}

		db := common.GetDB()
		email := NormalizeEmail(req.Email)

		var count int64
		db.Model(&UserModel{}).Where("email = ?", email).Count(&count)
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		now := time.Now()
		user := UserModel{
			ID:           uuid.New().String(),
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		respondWithToken(c, http.StatusCreated, secret, user.ID, now)
	}
}

// Login godoc
// @Summary Exchange credentials for a token
// @Tags users
// @Accept json
// @Produce json
// @Param user body CredentialsRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /users/login [post]
func Login(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CredentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user UserModel
		if err := common.GetDB().Where("email = ?", NormalizeEmail(req.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !CheckPassword(user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		respondWithToken(c, http.StatusOK, secret, user.ID, time.Now())
	}
}

func respondWithToken(c *gin.Context, status int, secret []byte, userID string, now time.Time) {
	token, err := IssueToken(secret, userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(status, TokenResponse{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(TokenTTL).Format(time.RFC3339),
	})
}
