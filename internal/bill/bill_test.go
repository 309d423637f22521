package bill

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"medipos/internal/domain"
	"medipos/internal/store"
)

func testItem(id, name, price string) domain.InventoryItem {
	return domain.InventoryItem{
		ID:           id,
		Name:         name,
		Batch:        "B-" + id,
		Quantity:     100,
		SellingPrice: decimal.RequireFromString(price),
		ExpiryDate:   "2027-01-01",
	}
}

func TestAddLineMergesSameItem(t *testing.T) {
	draft := NewDraft()
	item := testItem("item-1", "Paracetamol 500mg", "2.50")

	if err := draft.AddLine(item, 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := draft.AddLine(item, 2); err != nil {
		t.Fatalf("second add: %v", err)
	}

	lines := draft.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].SoldQuantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].SoldQuantity)
	}
	if !lines[0].LineTotal.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("expected line total 7.50, got %s", lines[0].LineTotal)
	}
}

func TestAddLineRejectsZeroQuantity(t *testing.T) {
	draft := NewDraft()
	if err := draft.AddLine(testItem("item-1", "X", "1.00"), 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetLineQuantity(t *testing.T) {
	draft := NewDraft()
	item := testItem("item-1", "Cetirizine 10mg", "3.25")
	if err := draft.AddLine(item, 5); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := draft.SetLineQuantity("item-1", 2); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	lines := draft.Lines()
	if lines[0].SoldQuantity != 2 {
		t.Fatalf("expected quantity 2, got %d", lines[0].SoldQuantity)
	}
	if !lines[0].LineTotal.Equal(decimal.RequireFromString("6.50")) {
		t.Fatalf("expected line total 6.50, got %s", lines[0].LineTotal)
	}

	if err := draft.SetLineQuantity("item-1", 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected zero quantity rejection, got %v", err)
	}
	if err := draft.SetLineQuantity("absent", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not-found for absent line, got %v", err)
	}
}

func TestRemoveLineIsNoOpWhenAbsent(t *testing.T) {
	draft := NewDraft()
	if err := draft.AddLine(testItem("item-1", "X", "1.00"), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	draft.RemoveLine("absent")
	if len(draft.Lines()) != 1 {
		t.Fatalf("removing an absent line must not change the bill")
	}

	draft.RemoveLine("item-1")
	if !draft.Empty() {
		t.Fatalf("expected empty bill after removing the only line")
	}
}

func TestGrandTotal(t *testing.T) {
	draft := NewDraft()
	if err := draft.AddLine(testItem("item-1", "A", "2.50"), 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := draft.AddLine(testItem("item-2", "B", "3.33"), 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !draft.GrandTotal().Equal(decimal.RequireFromString("14.99")) {
		t.Fatalf("expected grand total 14.99, got %s", draft.GrandTotal())
	}

	draft.Clear()
	if !draft.GrandTotal().Equal(decimal.Zero) {
		t.Fatalf("expected zero total after clear, got %s", draft.GrandTotal())
	}
}
