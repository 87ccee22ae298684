package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/billing"
	"hosting-app/internal/provisioning"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

// Provisioner is what the webhook needs from the orchestrator.
type Provisioner interface {
	ProvisionSubscription(ctx context.Context, req provisioning.SubscriptionRequest) error
	ProvisionOrder(ctx context.Context, req provisioning.OrderRequest) error
}

// LineItemSource fetches the full line-item list for a checkout
// session. The event payload only carries a truncated view.
type LineItemSource interface {
	SessionLineItems(sessionID string) ([]catalog.LineItem, error)
}

type Handler struct {
	DB            *gorm.DB
	Catalog       *catalog.Catalog
	Provisioner   Provisioner
	LineItems     LineItemSource
	WebhookSecret string
}

// HandleWebhook verifies and dispatches incoming Stripe events.
// Signature verification runs over the raw body; a re-serialized
// payload would never verify. Invalid signatures get a 400 (Stripe
// must not retry those), handler failures a 500 (Stripe should).
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := readRawBody(c, 65536)
	if err != nil {
		c.String(http.StatusServiceUnavailable, "Webhook Error: could not read request body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		fmt.Println("❌ Stripe signature verification failed:", err)
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	// Stripe redelivers events; anything already marked processed is
	// acknowledged without re-running provisioning.
	fresh, err := h.markEventProcessed(event)
	if err != nil {
		c.String(http.StatusInternalServerError, "Webhook Error: %s", err.Error())
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	if err := h.dispatch(c.Request.Context(), event); err != nil {
		// free the event id so the redelivery gets another attempt
		h.unmarkEvent(event.ID)
		fmt.Printf("❌ webhook handler failed for %s (%s): %v\n", event.ID, event.Type, err)
		c.String(http.StatusInternalServerError, "Webhook Error: %s", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) dispatch(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("failed to parse checkout session payload: %w", err)
		}
		return h.handleCheckoutSessionCompleted(ctx, &session)

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("failed to parse invoice payload: %w", err)
		}
		return h.handleInvoicePaid(ctx, &invoice)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("failed to parse subscription payload: %w", err)
		}
		return h.handleSubscriptionUpdated(ctx, &sub)

	default:
		// unknown event types are acknowledged, never failed
		return nil
	}
}

func (h *Handler) markEventProcessed(event stripe.Event) (bool, error) {
	var existing billing.WebhookEvent
	err := h.DB.Where("event_id = ?", event.ID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	record := billing.WebhookEvent{EventID: event.ID, Type: string(event.Type)}
	if err := h.DB.Create(&record).Error; err != nil {
		// unique index lost the race against a concurrent delivery
		return false, nil
	}
	return true, nil
}

func (h *Handler) unmarkEvent(eventID string) {
	h.DB.Where("event_id = ?", eventID).Delete(&billing.WebhookEvent{})
}

func readRawBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
