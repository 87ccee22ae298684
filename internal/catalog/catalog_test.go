package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMapLineItemsPreservesOrder(t *testing.T) {
	c := New(map[string]Entry{
		"price_a": {SKU: "web-starter", Term: TermMonth, AmountEUR: 4.99, Kind: KindRecurring},
		"price_b": {SKU: "web-pro", Term: TermYear, AmountEUR: 99.90, Kind: KindRecurring},
		"price_c": {SKU: "setup-standard", Term: TermNone, AmountEUR: 14.99, Kind: KindSetup},
	})

	mapped := c.MapLineItems([]LineItem{
		{PriceID: "price_c", Quantity: 1},
		{PriceID: "price_a", Quantity: 2},
		{PriceID: "price_b", Quantity: 1},
	})

	if len(mapped) != 3 {
		t.Fatalf("expected 3 mapped items, got %d", len(mapped))
	}
	wantSKUs := []string{"setup-standard", "web-starter", "web-pro"}
	for i, want := range wantSKUs {
		if mapped[i].SKU != want {
			t.Fatalf("item %d: expected sku %q, got %q", i, want, mapped[i].SKU)
		}
	}
	if mapped[1].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", mapped[1].Quantity)
	}
}

func TestMapLineItemsSkipsUnknownPrices(t *testing.T) {
	c := New(map[string]Entry{
		"price_known": {SKU: "web-pro", Term: TermMonth, AmountEUR: 9.99, Kind: KindRecurring},
	})

	mapped := c.MapLineItems([]LineItem{
		{PriceID: "price_unknown", Quantity: 1},
		{PriceID: "price_known", Quantity: 1},
		{PriceID: "price_also_unknown", Quantity: 3},
	})

	if len(mapped) != 1 {
		t.Fatalf("expected unknown prices to be dropped, got %d items", len(mapped))
	}
	if mapped[0].PriceID != "price_known" {
		t.Fatalf("expected price_known, got %q", mapped[0].PriceID)
	}
}

func TestMapLineItemsClampsQuantity(t *testing.T) {
	c := New(map[string]Entry{
		"price_x": {SKU: "web-starter", Term: TermMonth, AmountEUR: 4.99, Kind: KindRecurring},
	})

	mapped := c.MapLineItems([]LineItem{{PriceID: "price_x", Quantity: 0}})
	if len(mapped) != 1 || mapped[0].Quantity != 1 {
		t.Fatalf("expected quantity clamped to 1, got %+v", mapped)
	}
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	entry, ok := c.Lookup("price_web_pro_month")
	if !ok {
		t.Fatal("expected price_web_pro_month in default catalog")
	}
	if entry.SKU != "web-pro" || entry.Term != TermMonth || entry.Kind != KindRecurring {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `{"price_custom": {"sku": "web-custom", "term": "year", "amount_eur": 120, "kind": "recurring"}}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entry, ok := c.Lookup("price_custom")
	if !ok {
		t.Fatal("expected price_custom entry")
	}
	if entry.SKU != "web-custom" || entry.Term != TermYear {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
