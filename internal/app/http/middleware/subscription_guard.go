package middleware

import (
	"net/http"

	"hosting-app/database"
	"hosting-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

// RequireProvisionedSubscription gates routes that only make sense once
// the caller owns at least one fully provisioned hosting plan.
func RequireProvisionedSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var count int64
		if err := database.DB.Model(&billing.Subscription{}).
			Where("email = ? AND provisioning_status = ?", email, billing.StatusCompleted).
			Count(&count).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check subscription"})
			return
		}

		if count == 0 {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "No active hosting subscription",
			})
			return
		}

		c.Next()
	}
}
