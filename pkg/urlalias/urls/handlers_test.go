package urls

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"urlalias/pkg/urlalias/auth"
	"urlalias/pkg/urlalias/models"
	"urlalias/pkg/urlalias/shortcode"
)

const testDefaultExpireMinutes = 60

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)

	// One connection so concurrent requests share the in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db
}

// testAuth stands in for the JWT middleware and pins the request owner
func testAuth(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, userID)
		c.Next()
	}
}

func setupTestRouter(db *gorm.DB, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, testDefaultExpireMinutes, zerolog.Nop())
	handler.RegisterRoutes(r.Group("/api/v1", testAuth(userID)))
	return r
}

func createURL(t *testing.T, router *gin.Engine, req CreateURLRequest) (URLResponse, *httptest.ResponseRecorder) {
	jsonBody, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", "/api/v1/urls", bytes.NewBuffer(jsonBody))
	httpReq.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httpReq)

	var created URLResponse
	json.Unmarshal(resp.Body.Bytes(), &created)
	return created, resp
}

func TestCreateGeneratedCode(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	created, resp := createURL(t, router, CreateURLRequest{OriginalURL: "https://example.com/long/path"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	if !strings.HasSuffix(created.ShortCode, shortcode.Marker) {
		t.Errorf("Generated code %q should end with the marker", created.ShortCode)
	}
	if created.OriginalURL != "https://example.com/long/path" {
		t.Errorf("Expected original URL to round-trip, got %q", created.OriginalURL)
	}
	if !created.IsActive {
		t.Error("New URL should be active")
	}

	// Default expiry applies when expire_minutes is omitted
	wantExpiry := time.Now().UTC().Add(testDefaultExpireMinutes * time.Minute).Unix()
	if created.ExpiresAt < wantExpiry-5 || created.ExpiresAt > wantExpiry+5 {
		t.Errorf("Expected expires_at near %d, got %d", wantExpiry, created.ExpiresAt)
	}
}

// Negative expire_minutes is allowed and yields an already-expired URL
func TestCreateNegativeExpireMinutes(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	minutes := -1
	created, resp := createURL(t, router, CreateURLRequest{
		OriginalURL:   "https://example.com",
		ExpireMinutes: &minutes,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}
	if created.ExpiresAt >= time.Now().UTC().Unix() {
		t.Errorf("Expected expires_at in the past, got %d", created.ExpiresAt)
	}
}

func TestCreateGeneratedCodesDistinct(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		created, resp := createURL(t, router, CreateURLRequest{OriginalURL: "https://example.com"})
		if resp.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", resp.Code)
		}
		if seen[created.ShortCode] {
			t.Fatalf("Duplicate generated code %q", created.ShortCode)
		}
		seen[created.ShortCode] = true
	}
}

func TestCreateDesiredCode(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	created, resp := createURL(t, router, CreateURLRequest{
		OriginalURL:      "https://example.com",
		DesiredShortCode: "promo2024",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if created.ShortCode != "promo2024" {
		t.Errorf("Expected short code promo2024, got %q", created.ShortCode)
	}

	var stored models.ShortURL
	if err := db.Where("short_code = ?", "promo2024").First(&stored).Error; err != nil {
		t.Fatalf("Created URL not found in store: %v", err)
	}
	if stored.OriginalURL != "https://example.com" {
		t.Errorf("Stored original URL %q does not match input", stored.OriginalURL)
	}
}

func TestCreateDesiredCodeConflict(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	req := CreateURLRequest{OriginalURL: "https://example.com", DesiredShortCode: "taken"}
	if _, resp := createURL(t, router, req); resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.Code)
	}

	_, resp := createURL(t, router, req)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate desired code, got %d", resp.Code)
	}

	// The loser must not have been given a generated code instead
	var count int64
	db.Model(&models.ShortURL{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 stored URL, got %d", count)
	}
}

// Two concurrent creates requesting the same desired code: exactly one
// succeeds, the other sees the conflict, and exactly one row exists
func TestCreateDesiredCodeRace(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	var wg sync.WaitGroup
	start := make(chan struct{})
	statuses := make([]int, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			body, _ := json.Marshal(CreateURLRequest{
				OriginalURL:      "https://example.com",
				DesiredShortCode: "contested",
			})
			req, _ := http.NewRequest("POST", "/api/v1/urls", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			statuses[i] = resp.Code
		}(i)
	}

	close(start)
	wg.Wait()

	created, conflicted := 0, 0
	for _, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			conflicted++
		}
	}
	if created != 1 || conflicted != 1 {
		t.Errorf("Expected one 201 and one 400, got statuses %v", statuses)
	}

	var count int64
	db.Model(&models.ShortURL{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 stored URL, got %d", count)
	}
}

func TestCreateDesiredCodeMarkerRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	_, resp := createURL(t, router, CreateURLRequest{
		OriginalURL:      "https://example.com",
		DesiredShortCode: "bad~code",
	})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for marker in desired code, got %d", resp.Code)
	}
}

func TestCreateInvalidURL(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	_, resp := createURL(t, router, CreateURLRequest{OriginalURL: "not-a-url"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid URL, got %d", resp.Code)
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	createURL(t, router, CreateURLRequest{OriginalURL: "https://a.example.com", Tag: "work"})
	createURL(t, router, CreateURLRequest{OriginalURL: "https://b.example.com", Tag: "work"})
	createURL(t, router, CreateURLRequest{OriginalURL: "https://c.example.com", Tag: "home"})

	// Another user's URL must never appear
	otherRouter := setupTestRouter(db, 2)
	createURL(t, otherRouter, CreateURLRequest{OriginalURL: "https://other.example.com"})

	list := func(query string) []URLResponse {
		req, _ := http.NewRequest("GET", "/api/v1/urls"+query, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.Code)
		}
		var urls []URLResponse
		json.Unmarshal(resp.Body.Bytes(), &urls)
		return urls
	}

	if got := list(""); len(got) != 3 {
		t.Errorf("Expected 3 URLs, got %d", len(got))
	}
	if got := list("?tag=work"); len(got) != 2 {
		t.Errorf("Expected 2 URLs with tag=work, got %d", len(got))
	}
	if got := list("?original_url=https://c.example.com"); len(got) != 1 {
		t.Errorf("Expected 1 URL by original_url, got %d", len(got))
	}
	if got := list("?page=2&page_size=2"); len(got) != 1 {
		t.Errorf("Expected 1 URL on page 2 with page_size 2, got %d", len(got))
	}
}

func TestDeactivate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	createURL(t, router, CreateURLRequest{OriginalURL: "https://example.com", DesiredShortCode: "mine"})

	patch := func(r *gin.Engine, code string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest("PATCH", "/api/v1/urls/"+code, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp
	}

	// Unknown code
	if resp := patch(router, "nope"); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}

	// Someone else's URL
	otherRouter := setupTestRouter(db, 2)
	if resp := patch(otherRouter, "mine"); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for foreign URL, got %d", resp.Code)
	}

	// Owner deactivates
	if resp := patch(router, "mine"); resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var url models.ShortURL
	db.Where("short_code = ?", "mine").First(&url)
	if url.IsActive {
		t.Error("URL should be inactive after deactivation")
	}

	// Deactivating twice is an error
	if resp := patch(router, "mine"); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for repeated deactivation, got %d", resp.Code)
	}
}

// Two concurrent deactivations of the same URL: only the one that flips
// the flag succeeds, the other sees AlreadyDeactivated
func TestDeactivateRace(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, 1)

	createURL(t, router, CreateURLRequest{OriginalURL: "https://example.com", DesiredShortCode: "once"})

	var wg sync.WaitGroup
	start := make(chan struct{})
	statuses := make([]int, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			req, _ := http.NewRequest("PATCH", "/api/v1/urls/once", nil)
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			statuses[i] = resp.Code
		}(i)
	}

	close(start)
	wg.Wait()

	ok, forbidden := 0, 0
	for _, status := range statuses {
		switch status {
		case http.StatusOK:
			ok++
		case http.StatusForbidden:
			forbidden++
		}
	}
	if ok != 1 || forbidden != 1 {
		t.Errorf("Expected one 200 and one 403, got statuses %v", statuses)
	}
}
