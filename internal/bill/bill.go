// Package bill holds the in-progress draft bill. The draft is working state
// only; nothing here touches inventory or the ledgers until checkout.
package bill

import (
	"sync"

	"github.com/shopspring/decimal"

	"medipos/internal/domain"
	"medipos/internal/store"
)

// Draft is the single mutable bill under construction. Adding an item that is
// already on the bill bumps its quantity instead of adding a second line.
type Draft struct {
	mu    sync.Mutex
	lines []domain.BillLine
}

func NewDraft() *Draft {
	return &Draft{lines: make([]domain.BillLine, 0, 8)}
}

func (d *Draft) AddLine(item domain.InventoryItem, quantity int) error {
	if quantity < 1 {
		return store.ErrValidation
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.lines {
		if d.lines[i].ItemID == item.ID {
			d.lines[i].SoldQuantity += quantity
			d.lines[i].LineTotal = d.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(d.lines[i].SoldQuantity)))
			return nil
		}
	}
	d.lines = append(d.lines, domain.BillLine{
		ItemID:       item.ID,
		Name:         item.Name,
		Batch:        item.Batch,
		ExpiryDate:   item.ExpiryDate,
		UnitPrice:    item.SellingPrice,
		SoldQuantity: quantity,
		LineTotal:    item.SellingPrice.Mul(decimal.NewFromInt(int64(quantity))),
	})
	return nil
}

// SetLineQuantity replaces the quantity on an existing line. Quantities below
// one are rejected; lines leave the bill through RemoveLine, not zeroing.
func (d *Draft) SetLineQuantity(itemID string, quantity int) error {
	if quantity < 1 {
		return store.ErrValidation
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.lines {
		if d.lines[i].ItemID == itemID {
			d.lines[i].SoldQuantity = quantity
			d.lines[i].LineTotal = d.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
			return nil
		}
	}
	return store.ErrNotFound
}

// RemoveLine drops the line for itemID. Removing an absent line is a no-op.
func (d *Draft) RemoveLine(itemID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.lines {
		if d.lines[i].ItemID == itemID {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
			return
		}
	}
}

func (d *Draft) Lines() []domain.BillLine {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.BillLine, len(d.lines))
	copy(out, d.lines)
	return out
}

func (d *Draft) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lines) == 0
}

// GrandTotal sums the line totals at full precision; rounding happens at the
// display edge, not here.
func (d *Draft) GrandTotal() decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := decimal.Zero
	for _, line := range d.lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

func (d *Draft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = d.lines[:0]
}
