package urls

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ApplyFilters applies the optional equality filters shared by the list
// and stats endpoints. prefix qualifies column names for joined queries
// (e.g. "short_urls.").
func ApplyFilters(query *gorm.DB, c *gin.Context, prefix string) *gorm.DB {
	if shortCode := c.Query("short_code"); shortCode != "" {
		query = query.Where(prefix+"short_code = ?", shortCode)
	}
	if originalURL := c.Query("original_url"); originalURL != "" {
		query = query.Where(prefix+"original_url = ?", originalURL)
	}
	if isActive := c.Query("is_active"); isActive != "" {
		query = query.Where(prefix+"is_active = ?", isActive == "true")
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where(prefix+"tag = ?", tag)
	}
	return query
}

// Pagination parses the 1-indexed page and bounded page_size query params
func Pagination(c *gin.Context) (page, pageSize int) {
	page = 1
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed >= 1 {
			page = parsed
		}
	}

	pageSize = 10
	if ps := c.Query("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed >= 1 && parsed <= 100 {
			pageSize = parsed
		}
	}
	return page, pageSize
}
