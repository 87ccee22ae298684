package billing

import "time"

// Provisioning status values. Transitions move forward only, except on
// retry which may take failed -> in_progress -> completed.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Subscription tracks one purchased hosting plan and the state of its
// provisioning in mPanel and the tenant API.
type Subscription struct {
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"not null;index"`
	PlanName string `gorm:"type:varchar(64);not null;uniqueIndex:idx_subscriptions_session_plan,priority:2"`
	Term      string  `gorm:"type:varchar(16)"`
	Quantity  int64   `gorm:"not null;default:1"`
	AmountEUR float64 `gorm:"not null;default:0"`

	ProvisioningStatus string  `gorm:"type:varchar(16);not null;default:'pending'"`
	TenantID           *string `gorm:"type:varchar(64)"`
	ProvisioningError  *string
	ProvisionedAt      *time.Time

	MpanelAccountID      *string `gorm:"type:varchar(64)"`
	MpanelSubscriptionID *string `gorm:"type:varchar(64)"`

	CheckoutSessionID    string  `gorm:"type:varchar(128);not null;uniqueIndex:idx_subscriptions_session_plan,priority:1"`
	StripeSubscriptionID *string `gorm:"type:varchar(128)"`
	StripeCustomerID     *string `gorm:"type:varchar(128)"`
	StripeStatus         string  `gorm:"type:varchar(32);not null;default:'none'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
