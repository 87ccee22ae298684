package plans

import (
	"net/http"
	"os"
	"sort"

	"hosting-app/internal/catalog"
	"hosting-app/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
)

type Handler struct {
	Catalog *catalog.Catalog
}

type planOption struct {
	PriceID   string  `json:"price_id"`
	Term      string  `json:"term"`
	AmountEUR float64 `json:"amount_eur"`
}

type planResponse struct {
	SKU         string       `json:"sku"`
	DisplayName string       `json:"display_name"`
	DiskMB      int          `json:"disk_mb"`
	Mailboxes   int          `json:"mailboxes"`
	Databases   int          `json:"databases"`
	Domains     int          `json:"domains"`
	Options     []planOption `json:"options"`
	Setup       []planOption `json:"setup,omitempty"`
}

// ListPlans publishes the sellable plans: resource limits from the
// sizing table joined with every catalog price for that SKU.
func (h *Handler) ListPlans(c *gin.Context) {
	options := map[string][]planOption{}
	var setup []planOption

	for priceID, entry := range h.Catalog.Entries() {
		opt := planOption{PriceID: priceID, Term: string(entry.Term), AmountEUR: entry.AmountEUR}
		if entry.Kind == catalog.KindSetup {
			setup = append(setup, opt)
			continue
		}
		options[entry.SKU] = append(options[entry.SKU], opt)
	}
	sort.Slice(setup, func(i, j int) bool { return setup[i].AmountEUR < setup[j].AmountEUR })

	var out []planResponse
	for _, cfg := range plans.All() {
		opts := options[cfg.SKU]
		sort.Slice(opts, func(i, j int) bool { return opts[i].AmountEUR < opts[j].AmountEUR })
		out = append(out, planResponse{
			SKU:         cfg.SKU,
			DisplayName: cfg.DisplayName,
			DiskMB:      cfg.Resources.DiskMB,
			Mailboxes: cfg.Resources.Mailboxes,
			Databases: cfg.Resources.Databases,
			Domains:   cfg.Resources.Domains,
			Options:   opts,
			Setup:     setup,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiskMB < out[j].DiskMB })

	c.JSON(http.StatusOK, out)
}

type driftEntry struct {
	PriceID    string  `json:"price_id"`
	ProductID  string  `json:"product_id"`
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	UnitAmount float64 `json:"unit_amount"`
	Interval   string  `json:"interval"`
}

// CatalogDrift compares the live Stripe price list against the loaded
// catalog. Prices Stripe sells that the catalog cannot map would be
// silently dropped by the webhook, so admins need to see them.
func (h *Handler) CatalogDrift(c *gin.Context) {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.AddExpand("data.product")

	it := price.List(params)

	unmapped := []driftEntry{}
	mapped := 0
	for it.Next() {
		p := it.Price()

		if !p.Active || p.Product == nil || !p.Product.Active {
			continue
		}
		if p.Metadata["visible"] == "false" {
			continue
		}

		if _, ok := h.Catalog.Lookup(p.ID); ok {
			mapped++
			continue
		}

		entry := driftEntry{
			PriceID:    p.ID,
			ProductID:  p.Product.ID,
			Name:       p.Product.Name,
			Currency:   string(p.Currency),
			UnitAmount: float64(p.UnitAmount) / 100.0,
		}
		if p.Recurring != nil {
			entry.Interval = string(p.Recurring.Interval)
		}
		unmapped = append(unmapped, entry)
	}

	if err := it.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Stripe prices", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog_size": h.Catalog.Len(),
		"mapped":       mapped,
		"unmapped":     unmapped,
	})
}
