package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("pos-bridge"), "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks requests past the limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("pos-bridge"))
		}
		assert.False(t, limiter.Allow("pos-bridge"))
	})

	t.Run("keys are limited independently", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("terminal-a"))
		assert.True(t, limiter.Allow("terminal-a"))
		assert.False(t, limiter.Allow("terminal-a"))

		assert.True(t, limiter.Allow("terminal-b"))
		assert.True(t, limiter.Allow("terminal-b"))
	})

	t.Run("tokens reset after the window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("terminal-a"))
		assert.True(t, limiter.Allow("terminal-a"))
		assert.False(t, limiter.Allow("terminal-a"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("terminal-a"))
	})

	t.Run("remaining tracks consumed tokens", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("fresh-key"))

		limiter.Allow("fresh-key")
		limiter.Allow("fresh-key")

		assert.Equal(t, 3, limiter.Remaining("fresh-key"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared-key") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newLimitedRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/balances", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("allows requests within limit", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(3, time.Minute))

		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/balances", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("returns 429 past the limit", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(2, time.Minute))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/balances", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/balances", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(5, time.Minute))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/balances", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("location header partitions the key", func(t *testing.T) {
		router := newLimitedRouter(NewRateLimiter(1, time.Minute))

		send := func(locationID string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/balances", nil)
			req.Header.Set("X-Location-ID", locationID)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		assert.Equal(t, http.StatusOK, send("loc-downtown").Code)
		assert.Equal(t, http.StatusTooManyRequests, send("loc-downtown").Code)
		// a different location from the same IP is counted separately
		assert.Equal(t, http.StatusOK, send("loc-airport").Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(1, time.Minute)
	byWorker := func(c *gin.Context) string {
		return c.GetHeader("X-Worker-ID")
	}

	router := gin.New()
	router.Use(RateLimitByKey(limiter, byWorker))
	router.POST("/payouts", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(workerID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/payouts", nil)
		req.Header.Set("X-Worker-ID", workerID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("w-1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("w-1").Code)
	assert.Equal(t, http.StatusOK, send("w-2").Code)
}
