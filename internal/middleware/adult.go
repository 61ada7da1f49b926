package middleware

import (
	"net/http"
	"time"

	"fitcrush/internal/domain"
	"fitcrush/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdultOnly ensures the user has a date of birth on file and is 18+. Google
// sign-ups pass only after adding one. Use after AuthRequired.
func AdultOnly(userRepo *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}
		u, err := userRepo.GetByID(userID)
		if err != nil || u.DateOfBirth == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "age verification required", "code": "age_required"})
			return
		}
		if u.Age(time.Now()) < domain.MinAge {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrAgeRequired.Message, "code": domain.ErrAgeRequired.Code})
			return
		}
		c.Next()
	}
}
