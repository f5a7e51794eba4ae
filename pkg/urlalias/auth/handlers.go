package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/models"
)

// Handler handles registration, token and user requests
type Handler struct {
	db     *gorm.DB
	tokens *Tokens
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, tokens *Tokens) *Handler {
	return &Handler{db: db, tokens: tokens}
}

// CredentialsRequest represents the registration and login request body
type CredentialsRequest struct {
	Username string `json:"username" binding:"required,min=1,max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Username already taken"
// @Router /register [post]
func (h *Handler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: hashedPassword,
	}
	if err := h.db.Create(&user).Error; err != nil {
		// The unique index on username turns a duplicate into a conflict
		c.JSON(http.StatusConflict, gin.H{"error": "User with this username already exists"})
		return
	}

	c.JSON(http.StatusCreated, UserResponse{ID: user.ID, Username: user.Username})
}

// Token handles login and issues an access/refresh token pair
// @Summary Obtain tokens
// @Description Authenticate with username and password to receive a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Credentials"
// @Success 200 {object} TokenPair
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /token [post]
func (h *Handler) Token(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	findErr := h.db.Where("username = ?", req.Username).First(&user).Error

	// Always run the bcrypt compare so unknown usernames cost the same
	// as wrong passwords.
	hash := string(dummyHash)
	if findErr == nil {
		hash = user.PasswordHash
	}
	if !CheckPassword(req.Password, hash) || findErr != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	pair, err := h.tokens.GeneratePair(user.ID, user.TokenVersion)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh exchanges a valid refresh token for a new token pair
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access/refresh pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} TokenPair
// @Failure 401 {object} map[string]string "Invalid or revoked token"
// @Router /token/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.tokens.Validate(req.RefreshToken, TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if claims.TokenVersion != user.TokenVersion {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token revoked"})
		return
	}

	pair, err := h.tokens.GeneratePair(user.ID, user.TokenVersion)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Get the authenticated user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, _ := GetUserID(c)
	username, _ := GetUsername(c)
	c.JSON(http.StatusOK, UserResponse{ID: userID, Username: username})
}

// RevokeTokens invalidates all tokens previously issued to the user
// @Summary Revoke tokens
// @Description Invalidate every outstanding token for the user by bumping the token version
// @Tags auth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "Tokens revoked"
// @Failure 403 {object} map[string]string "Not your account"
// @Security BearerAuth
// @Router /users/{id}/revoke_tokens [post]
func (h *Handler) RevokeTokens(c *gin.Context) {
	userID, _ := GetUserID(c)

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if uint(targetID) != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This action can only be performed on your own account"})
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tokens revoked"})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authRequired := Middleware(h.db, h.tokens)

	rg.POST("/register", h.Register)
	rg.POST("/token", h.Token)
	rg.POST("/token/refresh", h.Refresh)
	rg.GET("/users/me", authRequired, h.Me)
	rg.POST("/users/:id/revoke_tokens", authRequired, h.RevokeTokens)
}
