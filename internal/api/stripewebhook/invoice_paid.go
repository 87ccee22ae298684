package stripewebhooks

import (
	"context"
	"fmt"

	"hosting-app/internal/catalog"
	"hosting-app/internal/provisioning"

	"github.com/stripe/stripe-go/v75"
)

// handleInvoicePaid acknowledges a billing cycle. Renewals never re-run
// tenant creation; each mapped recurring line becomes a lightweight
// mPanel order with the SKU suffixed -renewal.
func (h *Handler) handleInvoicePaid(ctx context.Context, invoice *stripe.Invoice) error {
	email := invoiceEmail(invoice)
	if email == "" {
		fmt.Printf("⚠️ invoice %s has no email, dropping\n", invoice.ID)
		return nil
	}

	mapped := h.Catalog.MapLineItems(invoiceLineItems(invoice))
	for _, m := range mapped {
		if m.Kind != catalog.KindRecurring {
			continue
		}
		req := provisioning.OrderRequest{
			Email:       email,
			DisplayName: invoice.CustomerName,
			SKU:         m.SKU + "-renewal",
			Quantity:    m.Quantity,
			Reference:   invoice.ID,
		}
		if err := h.Provisioner.ProvisionOrder(ctx, req); err != nil {
			return fmt.Errorf("renewal order failed for sku %s: %w", m.SKU, err)
		}
	}
	return nil
}

func invoiceEmail(invoice *stripe.Invoice) string {
	if invoice.CustomerEmail != "" {
		return invoice.CustomerEmail
	}
	if invoice.Customer != nil && invoice.Customer.Email != "" {
		return invoice.Customer.Email
	}
	return ""
}

func invoiceLineItems(invoice *stripe.Invoice) []catalog.LineItem {
	if invoice.Lines == nil {
		return nil
	}
	var items []catalog.LineItem
	for _, line := range invoice.Lines.Data {
		if line == nil || line.Price == nil {
			continue
		}
		items = append(items, catalog.LineItem{PriceID: line.Price.ID, Quantity: line.Quantity})
	}
	return items
}
