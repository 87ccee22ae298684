package billing

import (
	"time"

	"gorm.io/datatypes"
)

// Provisioning log actions, one per orchestration step that calls the
// tenant API.
const (
	ActionCreateTenant      = "create_tenant"
	ActionProvisionServices = "provision_services"
	ActionSendWelcome       = "send_welcome"
)

const (
	LogPending = "pending"
	LogSuccess = "success"
	LogFailed  = "failed"
)

// ProvisioningLog is the append-only audit trail of provisioning
// attempts. Rows are never updated or deleted; every attempt writes a
// pending row before the external call and a terminal row after, with
// the literal request and response payloads for manual replay.
type ProvisioningLog struct {
	ID             uint         `gorm:"primaryKey"`
	SubscriptionID uint         `gorm:"not null;index"`
	Subscription   Subscription `gorm:"constraint:OnDelete:CASCADE"`
	Action         string       `gorm:"type:varchar(32);not null"`
	Status         string       `gorm:"type:varchar(16);not null"`
	Request        datatypes.JSON
	Response       datatypes.JSON
	ErrorMessage   *string
	CreatedAt      time.Time
}
