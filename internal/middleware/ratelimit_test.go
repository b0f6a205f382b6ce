package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/user/resend-email-otp", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/user/forgot-password/request-otp", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doRequest(r http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDefaultRateLimitConfig(t *testing.T) {
	config := DefaultRateLimitConfig()
	assert.Equal(t, 100, config.Requests)
	assert.Equal(t, time.Minute, config.Window)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/live", nil)
	assert.True(t, config.SkipFunc(c))

	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/counselor", nil)
	assert.False(t, config.SkipFunc(c))
}

func TestOTPRateLimitConfig_Defaults(t *testing.T) {
	config := OTPRateLimitConfig(0, 0)
	assert.Equal(t, 5, config.Requests)
	assert.Equal(t, 15*time.Minute, config.Window)
	assert.Equal(t, "otp", config.Name)
}

func TestRateLimiter_RedisBlocksAfterLimit(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := NewRateLimiter(RateLimitConfig{Name: "test", Requests: 2, Window: time.Minute}, client, nil)
	r := newLimitedRouter(rl)

	for i := 0; i < 2; i++ {
		w := doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get(RetryAfterHeader))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Too many requests, please try again later.", body["message"])

	assert.True(t, s.Exists("ratelimit:test:10.0.0.1"))
	ttl := s.TTL("ratelimit:test:10.0.0.1")
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	// another client has its own budget
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.2").Code)

	require.NoError(t, rl.Reset(context.Background(), "10.0.0.1"))
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
}

func TestRateLimiter_LocalFallbackWindow(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: 50 * time.Millisecond}, nil, nil)
	r := newLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
}

func TestRateLimiter_OTPKeysPerRoute(t *testing.T) {
	rl := NewRateLimiter(OTPRateLimitConfig(1, time.Minute), nil, nil)
	r := newLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/forgot-password/request-otp", "10.0.0.1").Code)
}

func TestRateLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s.Close()

	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute}, client, nil)
	r := newLimitedRouter(rl)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/v1/user/resend-email-otp", "10.0.0.1").Code)
	}
}
