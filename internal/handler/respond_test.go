package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fitcrush/internal/auth"
	"fitcrush/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient balance", domain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
		{"duplicate edge", domain.ErrDuplicateEdge, http.StatusConflict, "already_sent"},
		{"wrapped not matched", fmt.Errorf("send: %w", domain.ErrNotMatched), http.StatusForbidden, "not_matched"},
		{"upgrade", domain.ErrCapabilityRequired, http.StatusPaymentRequired, "upgrade_required"},
		{"bad signature", domain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
		{"token", auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{"unexpected", errors.New("db gone"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Fatalf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && body["error"] != "internal error" {
				t.Fatalf("internal errors must not leak details: %q", body["error"])
			}
		})
	}
}

func TestIDParamAndPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/users/:id", func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		limit, offset := page(c, 20)
		c.JSON(http.StatusOK, gin.H{"id": id, "limit": limit, "offset": offset})
	})

	tests := []struct {
		path       string
		wantStatus int
		wantLimit  float64
		wantOffset float64
	}{
		{"/users/7", http.StatusOK, 20, 0},
		{"/users/7?limit=5&offset=10", http.StatusOK, 5, 10},
		{"/users/7?limit=500&offset=-3", http.StatusOK, 20, 0},
		{"/users/0", http.StatusBadRequest, 0, 0},
		{"/users/abc", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if w.Code != tt.wantStatus {
			t.Fatalf("%s: status = %d, want %d", tt.path, w.Code, tt.wantStatus)
		}
		if w.Code != http.StatusOK {
			continue
		}
		var body map[string]float64
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		if body["limit"] != tt.wantLimit || body["offset"] != tt.wantOffset {
			t.Fatalf("%s: got %v", tt.path, body)
		}
	}
}
