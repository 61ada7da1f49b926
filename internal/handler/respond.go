package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fitcrush/internal/auth"
	"fitcrush/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError writes a business error with its own status and code. Anything
// else is logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.JSON(de.Status, gin.H{"error": de.Message, "code": de.Code})
		return
	}
	if errors.Is(err, auth.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": "invalid_token"})
		return
	}
	_ = c.Error(err)
	slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}

// idParam parses a positive uint path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// page reads limit/offset query parameters with a default limit.
func page(c *gin.Context, def int) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
