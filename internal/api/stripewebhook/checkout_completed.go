package stripewebhooks

import (
	"context"
	"fmt"

	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/provisioning"

	"github.com/stripe/stripe-go/v75"
)

func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	email := sessionEmail(session)
	if email == "" {
		// no resolvable purchaser, nothing to provision
		fmt.Printf("⚠️ checkout session %s has no email, dropping\n", session.ID)
		return nil
	}
	name := sessionName(session)

	items, err := h.LineItems.SessionLineItems(session.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch line items for session %s: %w", session.ID, err)
	}

	mapped := h.Catalog.MapLineItems(items)
	if len(mapped) == 0 {
		fmt.Printf("⚠️ checkout session %s has no mapped line items\n", session.ID)
	}

	for _, m := range mapped {
		switch m.Kind {
		case catalog.KindRecurring:
			term := m.Term
			if term == "" || term == catalog.TermNone {
				term = catalog.TermMonth
			}
			req := provisioning.SubscriptionRequest{
				Email:             email,
				DisplayName:       name,
				SKU:               m.SKU,
				Term:              term,
				Quantity:          m.Quantity,
				AmountEUR:         m.AmountEUR,
				CheckoutSessionID: session.ID,
			}
			if session.Subscription != nil {
				req.StripeSubscriptionID = session.Subscription.ID
			}
			if session.Customer != nil {
				req.StripeCustomerID = session.Customer.ID
			}
			if err := h.Provisioner.ProvisionSubscription(ctx, req); err != nil {
				return fmt.Errorf("provisioning failed for sku %s: %w", m.SKU, err)
			}

		case catalog.KindSetup:
			req := provisioning.OrderRequest{
				Email:       email,
				DisplayName: name,
				SKU:         m.SKU + "-setup",
				Quantity:    1,
				Reference:   session.ID,
			}
			if err := h.Provisioner.ProvisionOrder(ctx, req); err != nil {
				return fmt.Errorf("setup order failed for sku %s: %w", m.SKU, err)
			}
		}
	}

	h.recordPayment(session, email)
	return nil
}

// recordPayment stores the settled checkout for the customer-facing
// payment history. The unique session id keeps redeliveries from
// inserting twice; a failed insert never fails the webhook.
func (h *Handler) recordPayment(session *stripe.CheckoutSession, email string) {
	payment := billing.Payment{
		Email:           email,
		StripeSessionID: session.ID,
		AmountEUR:       float64(session.AmountTotal) / 100.0,
		Status:          "paid",
	}
	if session.Subscription != nil && session.Subscription.ID != "" {
		payment.StripeSubscriptionID = &session.Subscription.ID
	}
	if err := h.DB.Where("stripe_session_id = ?", session.ID).
		FirstOrCreate(&payment).Error; err != nil {
		fmt.Printf("❌ failed to record payment for session %s: %v\n", session.ID, err)
	}
}

func sessionEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	if session.CustomerEmail != "" {
		return session.CustomerEmail
	}
	if session.Customer != nil && session.Customer.Email != "" {
		return session.Customer.Email
	}
	return ""
}

func sessionName(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Name != "" {
		return session.CustomerDetails.Name
	}
	if session.Customer != nil && session.Customer.Name != "" {
		return session.Customer.Name
	}
	return ""
}
