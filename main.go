package main

import (
	"log"
	"os"
	"time"

	"hosting-app/config"
	"hosting-app/database"
	adminapi "hosting-app/internal/api/admin"
	"hosting-app/internal/api/billing"
	cartapi "hosting-app/internal/api/cart"
	plansapi "hosting-app/internal/api/plans"
	stripewebhooks "hosting-app/internal/api/stripewebhook"
	routes "hosting-app/internal/app/http"
	"hosting-app/internal/catalog"
	"hosting-app/internal/infra/mpanel"
	"hosting-app/internal/infra/tenantapi"
	"hosting-app/internal/provisioning"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	stripe.Key = config.STRIPE_SECRET_KEY

	priceCatalog, err := catalog.Load(config.PRICE_CATALOG_PATH)
	if err != nil {
		log.Fatal("❌ Failed to load price catalog:", err)
	}

	orchestrator := &provisioning.Orchestrator{
		DB:       database.DB,
		Accounts: mpanel.NewClient(config.MPANEL_API_URL, config.MPANEL_API_KEY),
		Tenants:  tenantapi.NewClient(config.TENANT_API_URL, config.TENANT_API_KEY),
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Webhook: &stripewebhooks.Handler{
			DB:            database.DB,
			Catalog:       priceCatalog,
			Provisioner:   orchestrator,
			LineItems:     &stripewebhooks.StripeLineItems{},
			WebhookSecret: config.STRIPE_WEBHOOK_SECRET,
		},
		Cart:     &cartapi.Handler{Catalog: priceCatalog},
		Checkout: &billing.CheckoutHandler{Catalog: priceCatalog},
		Plans:    &plansapi.Handler{Catalog: priceCatalog},
		Admin:    &adminapi.Handler{Retrier: orchestrator},
	})

	r.Run(":" + config.PORT)
}
