package users

import (
	"net/http"

	"hosting-app/database"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type meResponse struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Lastname     string  `json:"lastname"`
	Tel          *string `json:"tel"`
	Role         string  `json:"role"`
	AuthProvider string  `json:"auth_provider"`
	IsVerified   bool    `json:"is_verified"`

	ActiveSubscriptions int64 `json:"active_subscriptions"`
	PendingProvisioning int64 `json:"pending_provisioning"`
}

func GetCurrentUser(c *gin.Context) {
	email := c.GetString("email")
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp := meResponse{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Lastname:     user.Lastname,
		Tel:          stringPtrIfNotEmpty(user.Tel),
		Role:         user.Role,
		AuthProvider: user.AuthProvider,
		IsVerified:   user.IsVerified,
	}

	database.DB.Model(&billing.Subscription{}).
		Where("email = ? AND provisioning_status = ?", user.Email, billing.StatusCompleted).
		Count(&resp.ActiveSubscriptions)
	database.DB.Model(&billing.Subscription{}).
		Where("email = ? AND provisioning_status IN ?", user.Email, []string{billing.StatusPending, billing.StatusInProgress}).
		Count(&resp.PendingProvisioning)

	c.JSON(http.StatusOK, resp)
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
