package redirect

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/models"
)

var (
	ErrNotFound  = errors.New("URL not found")
	ErrInactive  = errors.New("URL is no longer active")
	ErrExpired   = errors.New("URL has expired")
	ErrExhausted = errors.New("click limit reached")
)

// Handler handles redirect requests
type Handler struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewHandler creates a new redirect handler
func NewHandler(db *gorm.DB, log zerolog.Logger) *Handler {
	return &Handler{db: db, log: log}
}

// Redirect resolves a short code and sends the client to the original URL.
// The lookup, click budget decrement and click event insert run in one
// transaction: an aborted request leaves no trace, and no click is ever
// recorded on a failing path.
//
// Checks run in a fixed order so the client always sees the same error
// when several apply: not found, inactive, expired, exhausted.
// @Summary Redirect to the original URL
// @Description Resolve a short code, apply one click against the budget, and redirect
// @Tags redirect
// @Param code path string true "Short code"
// @Success 307 "Temporary redirect to the original URL"
// @Failure 404 {object} map[string]string "Unknown code"
// @Failure 410 {object} map[string]string "Inactive, expired or exhausted"
// @Router /{code} [get]
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("code")

	var destination string
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var url models.ShortURL
		if err := tx.Where("short_code = ?", code).First(&url).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if !url.IsActive {
			return ErrInactive
		}

		now := time.Now().UTC().Unix()
		if now > url.ExpiresAt {
			return ErrExpired
		}

		if url.ClicksLeft != nil {
			// Conditional atomic decrement: the WHERE clause, not an
			// application-level read, decides whether budget remains.
			// Two racing redirects at clicks_left = 1 serialize on the
			// row and exactly one sees RowsAffected == 0.
			res := tx.Model(&models.ShortURL{}).
				Where("id = ? AND clicks_left > 0", url.ID).
				UpdateColumn("clicks_left", gorm.Expr("clicks_left - 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrExhausted
			}
		}

		if err := tx.Create(&models.ClickEvent{ShortURLID: url.ID, ClickedAt: now}).Error; err != nil {
			return err
		}

		destination = url.OriginalURL
		return nil
	})

	switch {
	case err == nil:
		c.Redirect(http.StatusTemporaryRedirect, destination)
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.Is(err, ErrInactive):
		c.JSON(http.StatusGone, gin.H{"error": ErrInactive.Error()})
	case errors.Is(err, ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": ErrExpired.Error()})
	case errors.Is(err, ErrExhausted):
		c.JSON(http.StatusGone, gin.H{"error": ErrExhausted.Error()})
	default:
		h.log.Error().Err(err).Str("code", code).Msg("redirect failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store unavailable"})
	}
}

// RegisterRoutes registers redirect routes on the root router
// This should be called AFTER all other routes to avoid conflicts
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:code", h.Redirect)
}
