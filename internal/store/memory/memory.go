package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"medipos/internal/domain"
	"medipos/internal/store"
	"medipos/internal/xid"
)

// Store keeps the four collections in process memory. Inventory preserves
// insertion order; the ledgers are plain append-only slices.
type Store struct {
	mu         sync.RWMutex
	items      []domain.InventoryItem
	itemIndex  map[string]int
	sales      []domain.Sale
	recoveries []domain.Recovery
	expenses   []domain.Expense
}

func New() *Store {
	return &Store{
		itemIndex:  make(map[string]int),
		sales:      make([]domain.Sale, 0, 64),
		recoveries: make([]domain.Recovery, 0, 32),
		expenses:   make([]domain.Expense, 0, 32),
	}
}

// NewSeeded returns a store preloaded with a small demo catalog for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	nextYear := domain.FormatDay(now.AddDate(1, 0, 0))
	seed := []struct {
		name     string
		batch    string
		qty      int
		purchase string
		selling  string
	}{
		{"Amoxicillin 500mg", "AMX-2301", 120, "8.50", "12.00"},
		{"Paracetamol 500mg", "PCM-1145", 300, "1.20", "2.50"},
		{"Ibuprofen 400mg", "IBU-0907", 180, "2.10", "4.00"},
		{"Cetirizine 10mg", "CTZ-5521", 90, "1.80", "3.25"},
		{"Oxytetracycline Inj", "OXY-7812", 40, "95.00", "140.00"},
		{"Ivermectin 1%", "IVM-3304", 25, "210.00", "310.00"},
	}
	for _, row := range seed {
		purchase, _ := decimal.NewFromString(row.purchase)
		selling, _ := decimal.NewFromString(row.selling)
		item := domain.InventoryItem{
			ID:            xid.New("item"),
			Name:          row.name,
			Batch:         row.batch,
			Quantity:      row.qty,
			PurchasePrice: purchase,
			SellingPrice:  selling,
			ExpiryDate:    nextYear,
			CreatedAt:     now,
		}
		s.itemIndex[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}
	return s
}

func (s *Store) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.itemIndex[item.ID]; exists {
		return nil, store.ErrValidation
	}
	s.itemIndex[item.ID] = len(s.items)
	s.items = append(s.items, item)
	created := item
	return &created, nil
}

func (s *Store) GetItemByID(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.itemIndex[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item := s.items[idx]
	return &item, nil
}

func (s *Store) SearchItems(_ context.Context, term string) ([]domain.InventoryItem, error) {
	needle := strings.ToLower(term)
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]domain.InventoryItem, 0, 8)
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.Batch), needle) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

func (s *Store) ApplySale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check every line before touching anything so a shortfall leaves the
	// inventory exactly as it was.
	for _, line := range sale.Lines {
		idx, ok := s.itemIndex[line.ItemID]
		if !ok {
			return nil, &store.OutOfStockError{
				ItemID:    line.ItemID,
				Name:      line.Name,
				Batch:     line.Batch,
				Available: 0,
				Requested: line.Quantity,
			}
		}
		if s.items[idx].Quantity < line.Quantity {
			return nil, &store.OutOfStockError{
				ItemID:    line.ItemID,
				Name:      s.items[idx].Name,
				Batch:     s.items[idx].Batch,
				Available: s.items[idx].Quantity,
				Requested: line.Quantity,
			}
		}
	}

	for _, line := range sale.Lines {
		idx := s.itemIndex[line.ItemID]
		s.items[idx].Quantity -= line.Quantity
	}

	stored := sale
	stored.Lines = make([]domain.SaleLine, len(sale.Lines))
	copy(stored.Lines, sale.Lines)
	s.sales = append(s.sales, stored)

	created := stored
	return &created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sale, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

func (s *Store) CreateRecovery(_ context.Context, recovery domain.Recovery) (*domain.Recovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveries = append(s.recoveries, recovery)
	created := recovery
	return &created, nil
}

func (s *Store) ListRecoveries(_ context.Context) ([]domain.Recovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Recovery, len(s.recoveries))
	copy(out, s.recoveries)
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out, nil
}
