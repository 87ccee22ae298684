package billing

import (
	"net/http"

	"hosting-app/database"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

func GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	// payments are recorded by the webhook keyed on the purchaser email
	var payments []billing.Payment
	if err := database.DB.
		Where("user_id = ? OR email = ?", userID, user.Email).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
