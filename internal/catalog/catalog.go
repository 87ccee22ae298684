package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

type Term string

const (
	TermMonth  Term = "month"
	TermYear   Term = "year"
	Term2Years Term = "2years"
	Term3Years Term = "3years"
	TermNone   Term = "none"
)

type LineKind string

const (
	KindRecurring LineKind = "recurring"
	KindSetup     LineKind = "setup"
)

// Entry maps one Stripe price id to an internal product.
type Entry struct {
	SKU       string   `json:"sku"`
	Term      Term     `json:"term"`
	AmountEUR float64  `json:"amount_eur"`
	Kind      LineKind `json:"kind"`
}

// LineItem is the processor-side input: a price id plus quantity.
type LineItem struct {
	PriceID  string
	Quantity int64
}

type MappedItem struct {
	PriceID   string
	SKU       string
	Term      Term
	AmountEUR float64
	Kind      LineKind
	Quantity  int64
}

// Catalog is loaded once at startup and never mutated afterwards, so it
// is safe to share across request handlers without locking.
type Catalog struct {
	entries map[string]Entry
}

func New(entries map[string]Entry) *Catalog {
	m := make(map[string]Entry, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Catalog{entries: m}
}

// Load builds the catalog from a JSON file when path is set, otherwise
// from the compiled-in defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(defaultEntries), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price catalog %s: %w", path, err)
	}

	var entries map[string]Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse price catalog %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("price catalog %s contains no entries", path)
	}

	return New(entries), nil
}

func (c *Catalog) Lookup(priceID string) (Entry, bool) {
	e, ok := c.entries[priceID]
	return e, ok
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the mapping for read-only listing.
func (c *Catalog) Entries() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// MapLineItems translates processor line items into internal items,
// preserving input order. Unknown price ids are skipped, not errors:
// externally configured prices may coexist with internally known SKUs.
func (c *Catalog) MapLineItems(items []LineItem) []MappedItem {
	var mapped []MappedItem
	for _, li := range items {
		entry, ok := c.entries[li.PriceID]
		if !ok {
			continue
		}
		qty := li.Quantity
		if qty < 1 {
			qty = 1
		}
		mapped = append(mapped, MappedItem{
			PriceID:   li.PriceID,
			SKU:       entry.SKU,
			Term:      entry.Term,
			AmountEUR: entry.AmountEUR,
			Kind:      entry.Kind,
			Quantity:  qty,
		})
	}
	return mapped
}

var defaultEntries = map[string]Entry{
	"price_web_starter_month":  {SKU: "web-starter", Term: TermMonth, AmountEUR: 4.99, Kind: KindRecurring},
	"price_web_starter_year":   {SKU: "web-starter", Term: TermYear, AmountEUR: 49.90, Kind: KindRecurring},
	"price_web_pro_month":      {SKU: "web-pro", Term: TermMonth, AmountEUR: 9.99, Kind: KindRecurring},
	"price_web_pro_year":       {SKU: "web-pro", Term: TermYear, AmountEUR: 99.90, Kind: KindRecurring},
	"price_web_pro_2years":     {SKU: "web-pro", Term: Term2Years, AmountEUR: 179.80, Kind: KindRecurring},
	"price_web_business_month": {SKU: "web-business", Term: TermMonth, AmountEUR: 19.99, Kind: KindRecurring},
	"price_web_business_year":  {SKU: "web-business", Term: TermYear, AmountEUR: 199.90, Kind: KindRecurring},
	"price_web_business_3years": {
		SKU: "web-business", Term: Term3Years, AmountEUR: 539.70, Kind: KindRecurring,
	},
	"price_setup_standard":  {SKU: "setup-standard", Term: TermNone, AmountEUR: 14.99, Kind: KindSetup},
	"price_setup_migration": {SKU: "setup-migration", Term: TermNone, AmountEUR: 39.99, Kind: KindSetup},
}
