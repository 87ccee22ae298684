package billing

import "time"

// WebhookEvent marks a Stripe event id as processed. Stripe redelivers
// events, so the webhook handler inserts here before dispatching and
// skips anything it has already seen.
type WebhookEvent struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"type:varchar(128);not null;uniqueIndex:idx_webhook_events_event_id"`
	Type      string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
}
