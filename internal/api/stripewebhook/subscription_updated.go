package stripewebhooks

import (
	"context"
	"fmt"

	"hosting-app/internal/domain/billing"
	stripeinfra "hosting-app/internal/infra/stripe"

	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionUpdated keeps the stored Stripe status in sync so
// the account pages can show past_due/canceled without calling Stripe.
// Provisioning state is not touched here.
func (h *Handler) handleSubscriptionUpdated(_ context.Context, sub *stripe.Subscription) error {
	if sub.ID == "" {
		return nil
	}

	status := string(sub.Status)
	normalized := stripeinfra.NormalizeStripeStatus(&status)

	res := h.DB.Model(&billing.Subscription{}).
		Where("stripe_subscription_id = ?", sub.ID).
		Update("stripe_status", normalized)
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// subscription.updated can land before checkout.session.completed
		fmt.Printf("⚠️ no local subscription for stripe subscription %s yet\n", sub.ID)
	}
	return nil
}
