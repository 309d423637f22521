package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"medipos/internal/domain"
	"medipos/internal/store"
)

func TestApplySaleRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("MEDIPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set MEDIPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	stamp := time.Now().UnixNano()
	itemID := fmt.Sprintf("item-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_lines WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, itemID)
	})

	if _, err := s.CreateItem(ctx, domain.InventoryItem{
		ID:            itemID,
		Name:          "Paracetamol 500mg",
		Batch:         "PCM-IT-01",
		Quantity:      10,
		PurchasePrice: decimal.RequireFromString("1.20"),
		SellingPrice:  decimal.RequireFromString("2.50"),
		ExpiryDate:    "2099-01-01",
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	sale := domain.Sale{
		ID:   saleID,
		Date: "2026-03-15",
		Lines: []domain.SaleLine{{
			ItemID:    itemID,
			Name:      "Paracetamol 500mg",
			Batch:     "PCM-IT-01",
			Quantity:  4,
			UnitPrice: decimal.RequireFromString("2.50"),
			LineTotal: decimal.RequireFromString("10.00"),
		}},
		GrandTotal: decimal.RequireFromString("10.00"),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.ApplySale(ctx, sale); err != nil {
		t.Fatalf("apply sale: %v", err)
	}

	item, err := s.GetItemByID(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 6 {
		t.Fatalf("expected stock 6 after sale, got %d", item.Quantity)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	var got *domain.Sale
	for i := range sales {
		if sales[i].ID == saleID {
			got = &sales[i]
			break
		}
	}
	if got == nil {
		t.Fatalf("expected sale %s in listing", saleID)
	}
	if len(got.Lines) != 1 {
		t.Fatalf("expected one sale line, got %d", len(got.Lines))
	}
	line := got.Lines[0]
	if line.ItemID != itemID || line.Quantity != 4 {
		t.Fatalf("unexpected sale line: %+v", line)
	}
	if !line.UnitPrice.Equal(decimal.RequireFromString("2.50")) || !line.LineTotal.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("unexpected line amounts: %s / %s", line.UnitPrice, line.LineTotal)
	}

	// A second sale exceeding the remaining stock must fail with a shortfall
	// and leave the quantity untouched.
	oversell := sale
	oversell.ID = saleID + "-over"
	oversell.Lines = []domain.SaleLine{{
		ItemID:    itemID,
		Name:      "Paracetamol 500mg",
		Batch:     "PCM-IT-01",
		Quantity:  99,
		UnitPrice: decimal.RequireFromString("2.50"),
		LineTotal: decimal.RequireFromString("247.50"),
	}}
	_, err = s.ApplySale(ctx, oversell)
	if !errors.Is(err, store.ErrOutOfStock) {
		t.Fatalf("expected out-of-stock, got %v", err)
	}
	item, err = s.GetItemByID(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Quantity != 6 {
		t.Fatalf("expected stock unchanged at 6, got %d", item.Quantity)
	}
}
