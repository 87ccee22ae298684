package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"hosting-app/database"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// Retrier re-runs provisioning for a failed subscription.
type Retrier interface {
	Retry(ctx context.Context, subscriptionID uint) error
}

type Handler struct {
	Retrier Retrier
}

type AdminUser struct {
	ID               uint    `json:"id"`
	Name             string  `json:"name"`
	Lastname         string  `json:"lastname"`
	Tel              string  `json:"tel"`
	Email            string  `json:"email"`
	Role             string  `json:"role"`
	IsVerified       bool    `json:"is_verified"`
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`
}

type AdminSubscription struct {
	ID                 uint    `json:"id"`
	Email              string  `json:"email"`
	PlanName           string  `json:"plan_name"`
	Term               string  `json:"term"`
	ProvisioningStatus string  `json:"provisioning_status"`
	StripeStatus       string  `json:"stripe_status"`
	TenantID           *string `json:"tenant_id,omitempty"`
	ProvisioningError  *string `json:"provisioning_error,omitempty"`
	CheckoutSessionID  string  `json:"checkout_session_id"`
	CreatedAt          string  `json:"created_at"`
}

type AdminStats struct {
	TotalUsers             int            `json:"total_users"`
	TotalRevenue           float64        `json:"total_revenue"`
	RecentRevenue          float64        `json:"recent_revenue"`
	SubscriptionsPerStatus map[string]int `json:"subscriptions_per_status"`
	SubscriptionsPerPlan   map[string]int `json:"subscriptions_per_plan"`
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the admin dashboard 👑",
	})
}

func (h *Handler) ListAllUsers(c *gin.Context) {
	var all []users.User
	if err := database.DB.Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var adminUsers []AdminUser
	for _, u := range all {
		adminUsers = append(adminUsers, AdminUser{
			ID:               u.ID,
			Name:             u.Name,
			Lastname:         u.Lastname,
			Tel:              u.Tel,
			Email:            u.Email,
			Role:             u.Role,
			IsVerified:       u.IsVerified,
			StripeCustomerID: u.StripeCustomerID,
		})
	}

	c.JSON(http.StatusOK, adminUsers)
}

// ListSubscriptions returns all subscriptions, optionally filtered by
// provisioning status (?status=failed is the common call).
func (h *Handler) ListSubscriptions(c *gin.Context) {
	q := database.DB.Model(&billing.Subscription{}).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("provisioning_status = ?", status)
	}

	var subs []billing.Subscription
	if err := q.Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}

	out := make([]AdminSubscription, 0, len(subs))
	for _, s := range subs {
		out = append(out, AdminSubscription{
			ID:                 s.ID,
			Email:              s.Email,
			PlanName:           s.PlanName,
			Term:               s.Term,
			ProvisioningStatus: s.ProvisioningStatus,
			StripeStatus:       s.StripeStatus,
			TenantID:           s.TenantID,
			ProvisioningError:  s.ProvisioningError,
			CheckoutSessionID:  s.CheckoutSessionID,
			CreatedAt:          s.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, out)
}

// GetProvisioningLog returns the append-only step history for one
// subscription, oldest first, for failure diagnosis.
func (h *Handler) GetProvisioningLog(c *gin.Context) {
	subID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription id"})
		return
	}

	var sub billing.Subscription
	if err := database.DB.First(&sub, subID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	var entries []billing.ProvisioningLog
	if err := database.DB.
		Where("subscription_id = ?", subID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load provisioning log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub, "log": entries})
}

// RetryProvisioning re-runs the saga for a subscription. Completed
// subscriptions are acknowledged without side effects.
func (h *Handler) RetryProvisioning(c *gin.Context) {
	subID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription id"})
		return
	}

	if err := h.Retrier.Retry(c.Request.Context(), uint(subID)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var sub billing.Subscription
	if err := database.DB.First(&sub, subID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Retry finished",
		"provisioning_status": sub.ProvisioningStatus,
	})
}

func (h *Handler) ListAllPayments(c *gin.Context) {
	var payments []billing.Payment
	if err := database.DB.Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) GetAdminStats(c *gin.Context) {
	var stats AdminStats

	var totalUsers int64
	var totalRevenue float64
	var recentRevenue float64

	database.DB.Model(&users.User{}).Count(&totalUsers)
	database.DB.Model(&billing.Payment{}).Where("status = ?", "paid").Select("COALESCE(SUM(amount_eur), 0)").Scan(&totalRevenue)

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	database.DB.Model(&billing.Payment{}).
		Where("status = ? AND created_at >= ?", "paid", thirtyDaysAgo).
		Select("COALESCE(SUM(amount_eur), 0)").Scan(&recentRevenue)

	stats.TotalUsers = int(totalUsers)
	stats.TotalRevenue = totalRevenue
	stats.RecentRevenue = recentRevenue

	type groupCount struct {
		Key   string
		Count int
	}

	var byStatus []groupCount
	database.DB.Model(&billing.Subscription{}).
		Select("provisioning_status as key, COUNT(id) as count").
		Group("provisioning_status").
		Scan(&byStatus)

	stats.SubscriptionsPerStatus = map[string]int{}
	for _, g := range byStatus {
		stats.SubscriptionsPerStatus[g.Key] = g.Count
	}

	var byPlan []groupCount
	database.DB.Model(&billing.Subscription{}).
		Select("plan_name as key, COUNT(id) as count").
		Group("plan_name").
		Scan(&byPlan)

	stats.SubscriptionsPerPlan = map[string]int{}
	for _, g := range byPlan {
		stats.SubscriptionsPerPlan[g.Key] = g.Count
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var subs []billing.Subscription
	if err := database.DB.Where("email = ?", user.Email).Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch subscriptions"})
		return
	}

	var payments []billing.Payment
	if err := database.DB.Where("user_id = ? OR email = ?", user.ID, user.Email).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"subscriptions": subs,
		"payments":      payments,
	})
}
