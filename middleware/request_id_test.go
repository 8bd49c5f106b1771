package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/pkg/logger"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/bid_packages", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	req := httptest.NewRequest("GET", "/api/bid_packages", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDMiddlewareWithExistingID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/bid_packages", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	existingID := "client-supplied-id-123"
	req := httptest.NewRequest("GET", "/api/bid_packages", nil)
	req.Header.Set("X-Request-ID", existingID)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != existingID {
		t.Errorf("Expected request ID '%s', got '%s'", existingID, got)
	}
}

func TestRequestIDReachesRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/api/bid_packages", func(c *gin.Context) {
		if v, ok := c.Request.Context().Value(logger.RequestIDKey).(string); ok {
			fromContext = v
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/bid_packages", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if fromContext == "" {
		t.Error("Expected request id propagated into the request context")
	}
	if fromContext != w.Header().Get("X-Request-ID") {
		t.Error("Context and header request ids must match")
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if requestID := GetRequestID(c); requestID != "" {
		t.Errorf("Expected empty string, got '%s'", requestID)
	}
}
