package routes

import (
	adminapi "hosting-app/internal/api/admin"
	authapi "hosting-app/internal/api/auth"
	"hosting-app/internal/api/billing"
	cartapi "hosting-app/internal/api/cart"
	"hosting-app/internal/api/plans"
	stripewebhooks "hosting-app/internal/api/stripewebhook"
	"hosting-app/internal/api/users"
	"hosting-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

// Deps carries the handlers that need wiring beyond the global DB.
type Deps struct {
	Webhook  *stripewebhooks.Handler
	Cart     *cartapi.Handler
	Checkout *billing.CheckoutHandler
	Plans    *plans.Handler
	Admin    *adminapi.Handler
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	// raw-body route, no sanitization: the Stripe signature is computed
	// over the exact payload bytes
	r.POST("/webhooks/stripe", deps.Webhook.HandleWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/plans", deps.Plans.ListPlans)
	public.GET("/verify", authapi.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Cart works for guests (cookie session) and signed-in users alike
	cart := r.Group("/cart")
	cart.Use(middleware.SanitizeAndCleanInputMiddleware(), middleware.OptionalAuth())
	cart.GET("", deps.Cart.GetCart)
	cart.POST("/items", deps.Cart.AddItem)
	cart.PATCH("/items/:id", deps.Cart.UpdateItemQuantity)
	cart.DELETE("/items/:id", deps.Cart.RemoveItem)
	cart.DELETE("", deps.Cart.ClearCart)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", users.GetCurrentUser)
	auth.GET("/payments", billing.GetPaymentHistory)
	auth.GET("/subscriptions", billing.GetSubscriptions)
	auth.POST("/create-checkout-session", deps.Checkout.CreateCheckoutSession)
	auth.POST("/change-password", authapi.ChangePassword)

	// Billing portal needs an existing Stripe customer, which only
	// provisioned customers have
	subscribed := auth.Group("/")
	subscribed.Use(middleware.RequireProvisionedSubscription())
	subscribed.POST("/billing-portal", billing.CreateBillingPortal)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", deps.Admin.AdminDashboard)
	admin.GET("/stats", deps.Admin.GetAdminStats)
	admin.GET("/users", deps.Admin.ListAllUsers)
	admin.GET("/user/:id", deps.Admin.GetUserDetails)
	admin.GET("/payments", deps.Admin.ListAllPayments)
	admin.GET("/subscriptions", deps.Admin.ListSubscriptions)
	admin.GET("/subscriptions/:id/log", deps.Admin.GetProvisioningLog)
	admin.POST("/subscriptions/:id/retry", deps.Admin.RetryProvisioning)
	admin.GET("/catalog-drift", deps.Plans.CatalogDrift)
}
