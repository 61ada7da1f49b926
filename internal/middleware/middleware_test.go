package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitcrush/config"
	"fitcrush/internal/auth"
	"fitcrush/pkg/limits"

	"github.com/gin-gonic/gin"
)

var testJWT = &config.JWTConfig{
	AccessSecret:  "access",
	RefreshSecret: "refresh",
	AccessExpiry:  time.Hour,
	RefreshExpiry: time.Hour,
	Issuer:        "fitcrush-test",
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(testJWT), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	valid, err := auth.GenerateAccessToken(testJWT, 42, "a@example.com")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	refresh, err := auth.GenerateRefreshToken(testJWT, 42)
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestInMemoryRateLimiter(t *testing.T) {
	t.Parallel()
	l := NewInMemoryRateLimiter(3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "ip:1") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow(ctx, "ip:1") {
		t.Fatal("fourth request should be limited")
	}
	if !l.Allow(ctx, "ip:2") {
		t.Fatal("other keys have their own budget")
	}
}

type brokenCounter struct{}

func (brokenCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func (brokenCounter) Get(context.Context, string) (int64, error) {
	return 0, errors.New("redis down")
}

func TestCounterRateLimiter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewCounterRateLimiter(limits.NewMemoryCounter(), 2, time.Hour)
	got := []bool{l.Allow(ctx, "user:1"), l.Allow(ctx, "user:1"), l.Allow(ctx, "user:1")}
	if !got[0] || !got[1] || got[2] {
		t.Fatalf("allow sequence = %v", got)
	}

	open := NewCounterRateLimiter(brokenCounter{}, 1, time.Hour)
	for i := 0; i < 3; i++ {
		if !open.Allow(ctx, "user:1") {
			t.Fatal("counter outage should let traffic through")
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(NewInMemoryRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
