package stripewebhooks

import (
	"hosting-app/internal/catalog"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// StripeLineItems fetches session line items from the Stripe API.
type StripeLineItems struct{}

func (StripeLineItems) SessionLineItems(sessionID string) ([]catalog.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}

	var items []catalog.LineItem
	it := checkoutsession.ListLineItems(params)
	for it.Next() {
		li := it.LineItem()
		if li.Price == nil {
			continue
		}
		items = append(items, catalog.LineItem{PriceID: li.Price.ID, Quantity: li.Quantity})
	}
	return items, it.Err()
}
