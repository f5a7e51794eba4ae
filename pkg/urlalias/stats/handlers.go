package stats

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/auth"
	"urlalias/pkg/urlalias/models"
	"urlalias/pkg/urlalias/urls"
)

// Handler handles click statistics requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new stats handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// URLClickStats represents windowed click counts for one URL
type URLClickStats struct {
	OriginalURL    string `json:"original_url"`
	ShortCode      string `json:"short_code"`
	ClicksLastHour int64  `json:"clicks_last_hour"`
	ClicksLastDay  int64  `json:"clicks_last_day"`
}

// Stats returns per-URL click counts over the trailing hour and day
// @Summary Get click statistics
// @Description Windowed click counts for the user's URLs, most clicked first
// @Tags stats
// @Produce json
// @Param short_code query string false "Filter by short code"
// @Param original_url query string false "Filter by original URL"
// @Param is_active query bool false "Filter by active status"
// @Param tag query string false "Filter by tag"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Items per page (default 10, max 100)"
// @Success 200 {array} URLClickStats
// @Security BearerAuth
// @Router /urls/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	page, pageSize := urls.Pagination(c)

	// Both windows are anchored to the same instant so they never drift
	// apart within one call.
	now := time.Now().UTC()
	hourAgo := now.Add(-time.Hour).Unix()
	dayAgo := now.Add(-24 * time.Hour).Unix()

	query := h.db.Model(&models.ShortURL{}).
		Select(`short_urls.original_url,
			short_urls.short_code,
			COALESCE(SUM(CASE WHEN click_events.clicked_at >= ? THEN 1 ELSE 0 END), 0) AS clicks_last_hour,
			COALESCE(SUM(CASE WHEN click_events.clicked_at >= ? THEN 1 ELSE 0 END), 0) AS clicks_last_day`,
			hourAgo, dayAgo).
		Joins("LEFT JOIN click_events ON click_events.short_url_id = short_urls.id").
		Where("short_urls.user_id = ?", userID)

	query = urls.ApplyFilters(query, c, "short_urls.")

	var results []URLClickStats
	if err := query.
		Group("short_urls.id").
		Order("clicks_last_day DESC, short_urls.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch statistics"})
		return
	}

	if results == nil {
		results = []URLClickStats{}
	}

	c.JSON(http.StatusOK, results)
}

// RegisterRoutes registers stats routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/urls/stats", h.Stats)
}
