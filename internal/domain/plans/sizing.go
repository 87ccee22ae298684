package plans

import (
	"strings"

	"hosting-app/internal/catalog"
)

var configs = map[string]Config{
	"web-starter": {
		SKU:         "web-starter",
		DisplayName: "Web Starter",
		Resources:   Resources{DiskMB: 10240, Mailboxes: 5, Databases: 1, Domains: 1, SSL: true},
	},
	"web-pro": {
		SKU:         "web-pro",
		DisplayName: "Web Pro",
		Resources:   Resources{DiskMB: 51200, Mailboxes: 25, Databases: 5, Domains: 3, SSL: true},
	},
	"web-business": {
		SKU:         "web-business",
		DisplayName: "Web Business",
		Resources:   Resources{DiskMB: 204800, Mailboxes: 100, Databases: 20, Domains: 10, SSL: true},
	},
}

// ForSKU resolves the plan configuration for a SKU. Derived SKUs
// ("web-pro-setup", "web-pro-renewal") resolve to their base plan.
func ForSKU(sku string) (Config, bool) {
	if cfg, ok := configs[sku]; ok {
		return cfg, true
	}
	base := strings.TrimSuffix(strings.TrimSuffix(sku, "-setup"), "-renewal")
	cfg, ok := configs[base]
	return cfg, ok
}

// All returns every configured plan, for the public plan listing.
func All() []Config {
	out := make([]Config, 0, len(configs))
	for _, sku := range []string{"web-starter", "web-pro", "web-business"} {
		out = append(out, configs[sku])
	}
	return out
}

// BillingMonths translates a billing term into its month count. A
// missing or one-off term bills as a single month.
func BillingMonths(term catalog.Term) int {
	switch term {
	case catalog.TermYear:
		return 12
	case catalog.Term2Years:
		return 24
	case catalog.Term3Years:
		return 36
	default:
		return 1
	}
}
