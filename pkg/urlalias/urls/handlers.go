package urls

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/auth"
	"urlalias/pkg/urlalias/models"
	"urlalias/pkg/urlalias/shortcode"
)

// ErrCodeConflict is returned when a desired short code is already taken
var ErrCodeConflict = errors.New("desired short code is already in use")

// Handler handles short URL management requests
type Handler struct {
	db *gorm.DB
	// defaultExpireMinutes applies when a create request omits expire_minutes
	defaultExpireMinutes int
	log                  zerolog.Logger
}

// NewHandler creates a new urls handler
func NewHandler(db *gorm.DB, defaultExpireMinutes int, log zerolog.Logger) *Handler {
	return &Handler{db: db, defaultExpireMinutes: defaultExpireMinutes, log: log}
}

// CreateURLRequest represents the request to shorten a URL.
// ExpireMinutes may be negative; the URL is then created already expired.
type CreateURLRequest struct {
	OriginalURL      string `json:"original_url" binding:"required,url"`
	ExpireMinutes    *int   `json:"expire_minutes"`
	ClicksLeft       *int64 `json:"clicks_left" binding:"omitempty,gte=0"`
	DesiredShortCode string `json:"desired_short_code" binding:"omitempty,min=1,max=50"`
	Tag              string `json:"tag" binding:"omitempty,max=255"`
}

// URLResponse represents a short URL in API responses
type URLResponse struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	ExpiresAt   int64  `json:"expires_at"`
	ClicksLeft  *int64 `json:"clicks_left,omitempty"`
	IsActive    bool   `json:"is_active"`
	Tag         string `json:"tag,omitempty"`
}

func urlToResponse(url models.ShortURL) URLResponse {
	resp := URLResponse{
		OriginalURL: url.OriginalURL,
		ExpiresAt:   url.ExpiresAt,
		ClicksLeft:  url.ClicksLeft,
		IsActive:    url.IsActive,
	}
	if url.ShortCode != nil {
		resp.ShortCode = *url.ShortCode
	}
	if url.Tag != nil {
		resp.Tag = *url.Tag
	}
	return resp
}

// Create shortens a URL
// @Summary Create a short URL
// @Description Shorten a URL, optionally with a desired code, expiry and click budget
// @Tags urls
// @Accept json
// @Produce json
// @Param request body CreateURLRequest true "URL details"
// @Success 201 {object} URLResponse
// @Failure 400 {object} map[string]string "Validation error or code conflict"
// @Security BearerAuth
// @Router /urls [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DesiredShortCode != "" {
		if err := shortcode.ValidateDesired(req.DesiredShortCode); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	expireMinutes := h.defaultExpireMinutes
	if req.ExpireMinutes != nil {
		expireMinutes = *req.ExpireMinutes
	}

	url := models.ShortURL{
		OriginalURL: req.OriginalURL,
		UserID:      userID,
		ClicksLeft:  req.ClicksLeft,
		IsActive:    true,
		ExpiresAt:   time.Now().UTC().Add(time.Duration(expireMinutes) * time.Minute).Unix(),
	}
	if req.Tag != "" {
		url.Tag = &req.Tag
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if req.DesiredShortCode != "" {
			var existing models.ShortURL
			if err := tx.Where("short_code = ?", req.DesiredShortCode).First(&existing).Error; err == nil {
				return ErrCodeConflict
			}
			code := req.DesiredShortCode
			url.ShortCode = &code
			return tx.Create(&url).Error
		}

		// The generated code is a function of the row id, which exists
		// only after the insert: insert without a code, then backfill.
		if err := tx.Create(&url).Error; err != nil {
			return err
		}
		code := shortcode.Generate(uint64(url.ID))
		url.ShortCode = &code
		return tx.Model(&url).Update("short_code", code).Error
	})

	if err != nil {
		// A concurrent create can slip past the existence check; the
		// unique index rejects its insert, which still means conflict.
		if errors.Is(err, ErrCodeConflict) || isUniqueViolation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrCodeConflict.Error()})
			return
		}
		h.log.Error().Err(err).Msg("failed to create short URL")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create short URL"})
		return
	}

	c.JSON(http.StatusCreated, urlToResponse(url))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// List returns the user's URLs with filtering and pagination
// @Summary List short URLs
// @Description Get the authenticated user's URLs with optional filters
// @Tags urls
// @Produce json
// @Param short_code query string false "Filter by short code"
// @Param original_url query string false "Filter by original URL"
// @Param is_active query bool false "Filter by active status"
// @Param tag query string false "Filter by tag"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Items per page (default 10, max 100)"
// @Success 200 {array} URLResponse
// @Security BearerAuth
// @Router /urls [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	page, pageSize := Pagination(c)

	query := ApplyFilters(h.db.Where("user_id = ?", userID), c, "")

	var urls []models.ShortURL
	if err := query.Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&urls).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch URLs"})
		return
	}

	responses := make([]URLResponse, len(urls))
	for i, url := range urls {
		responses[i] = urlToResponse(url)
	}

	c.JSON(http.StatusOK, responses)
}

// Deactivate turns a short URL off
// @Summary Deactivate a short URL
// @Description Permanently deactivate a short URL; only the owner may do this
// @Tags urls
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string "Deactivated"
// @Failure 403 {object} map[string]string "Not the owner, or already deactivated"
// @Failure 404 {object} map[string]string "Unknown code"
// @Security BearerAuth
// @Router /urls/{code} [patch]
func (h *Handler) Deactivate(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	code := c.Param("code")

	var url models.ShortURL
	if err := h.db.Where("short_code = ?", code).First(&url).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
		return
	}

	if url.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to deactivate this URL"})
		return
	}

	// Conditional update so concurrent deactivations serialize on the
	// row: only the request that flips the flag sees RowsAffected == 1
	res := h.db.Model(&models.ShortURL{}).
		Where("id = ? AND is_active = ?", url.ID, true).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate URL"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "URL already deactivated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Short URL deactivated successfully", "short_code": code})
}

// RegisterRoutes registers url management routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/urls", h.Create)
	rg.GET("/urls", h.List)
	rg.PATCH("/urls/:code", h.Deactivate)
}
