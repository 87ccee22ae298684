package billing

import (
	"time"

	"hosting-app/internal/domain/users"
)

// Payment records one settled checkout, for the customer-facing payment
// history. Provisioning state lives on Subscription, not here.
type Payment struct {
	ID                   uint `gorm:"primaryKey"`
	UserID               *uint
	User                 *users.User
	Email                string `gorm:"index"`
	StripeSessionID      string `gorm:"uniqueIndex"`
	StripeSubscriptionID *string
	AmountEUR            float64
	Status               string
	InvoiceID            *string
	ReceiptURL           *string
	CreatedAt            time.Time
}
