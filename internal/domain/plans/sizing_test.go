package plans

import (
	"testing"

	"hosting-app/internal/catalog"

	"github.com/stretchr/testify/assert"
)

func TestForSKUResolvesDerivedSKUs(t *testing.T) {
	base, ok := ForSKU("web-pro")
	assert.True(t, ok)

	setup, ok := ForSKU("web-pro-setup")
	assert.True(t, ok)
	assert.Equal(t, base.SKU, setup.SKU)

	renewal, ok := ForSKU("web-pro-renewal")
	assert.True(t, ok)
	assert.Equal(t, base.Resources, renewal.Resources)

	_, ok = ForSKU("unknown-plan")
	assert.False(t, ok)
}

func TestAllReturnsPlansSmallestFirst(t *testing.T) {
	all := All()
	assert.Len(t, all, 3)
	assert.Equal(t, "web-starter", all[0].SKU)
	assert.Equal(t, "web-business", all[2].SKU)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Resources.DiskMB, all[i-1].Resources.DiskMB)
	}
}

func TestBillingMonths(t *testing.T) {
	assert.Equal(t, 1, BillingMonths(catalog.TermMonth))
	assert.Equal(t, 12, BillingMonths(catalog.TermYear))
	assert.Equal(t, 24, BillingMonths(catalog.Term2Years))
	assert.Equal(t, 36, BillingMonths(catalog.Term3Years))
	assert.Equal(t, 1, BillingMonths(catalog.TermNone))
}
