package database

import (
	"fmt"
	"log"
	"os"

	"hosting-app/internal/domain/billing"
	"hosting-app/internal/domain/cart"
	"hosting-app/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("❌ DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("❌ Failed to connect to database:", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		// accounts
		&users.User{},
		&users.VerificationToken{},

		// cart
		&cart.GuestSession{},
		&cart.Cart{},
		&cart.CartItem{},

		// billing and provisioning
		&billing.Subscription{},
		&billing.ProvisioningLog{},
		&billing.Payment{},
		&billing.WebhookEvent{},
	); err != nil {
		log.Fatal("❌ AutoMigrate error:", err)
	}

	fmt.Println("✅ Connected and migrated successfully")
}
