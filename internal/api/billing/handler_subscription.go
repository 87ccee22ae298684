package billing

import (
	"net/http"

	"hosting-app/database"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type subscriptionResponse struct {
	ID                 uint    `json:"id"`
	PlanName           string  `json:"plan_name"`
	Term               string  `json:"term"`
	ProvisioningStatus string  `json:"provisioning_status"`
	StripeStatus       string  `json:"stripe_status"`
	TenantID           *string `json:"tenant_id,omitempty"`
	ProvisioningError  *string `json:"provisioning_error,omitempty"`
	ProvisionedAt      *string `json:"provisioned_at,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

// GetSubscriptions lists the authenticated user's hosting subscriptions
// with their provisioning state. Subscriptions are keyed by the email
// Stripe reported at checkout, so guests who register later still see
// their purchases.
func GetSubscriptions(c *gin.Context) {
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

	var subs []billing.Subscription
	if err := database.DB.
		Where("email = ?", user.Email).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp := subscriptionResponse{
			ID:                 s.ID,
			PlanName:           s.PlanName,
			Term:               s.Term,
			ProvisioningStatus: s.ProvisioningStatus,
			StripeStatus:       s.StripeStatus,
			TenantID:           s.TenantID,
			ProvisioningError:  s.ProvisioningError,
			CreatedAt:          s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if s.ProvisionedAt != nil {
			ts := s.ProvisionedAt.Format("2006-01-02T15:04:05Z07:00")
			resp.ProvisionedAt = &ts
		}
		out = append(out, resp)
	}

	c.JSON(http.StatusOK, out)
}
