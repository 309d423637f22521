package kvledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"medipos/internal/domain"
	"medipos/internal/kv"
	"medipos/internal/store"
)

const (
	recordInventory  = "inventory"
	recordSales      = "sales"
	recordRecoveries = "recoveries"
	recordExpenses   = "expenses"
)

// Store is a Repository backed by four JSON records in a key-value store.
// All state is held in memory; every mutation writes the full record set back
// so the persisted view is always a consistent snapshot.
type Store struct {
	mu         sync.Mutex
	kv         kv.Store
	items      []domain.InventoryItem
	itemIndex  map[string]int
	sales      []domain.Sale
	recoveries []domain.Recovery
	expenses   []domain.Expense
}

func New(ctx context.Context, backend kv.Store) (*Store, error) {
	s := &Store{
		kv:        backend,
		itemIndex: make(map[string]int),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the four records. A missing or unparseable record falls back to
// an empty collection rather than failing startup; corruption in one record
// must not take the other three down with it.
func (s *Store) load(ctx context.Context) error {
	if err := loadRecord(ctx, s.kv, recordInventory, &s.items); err != nil {
		return err
	}
	if err := loadRecord(ctx, s.kv, recordSales, &s.sales); err != nil {
		return err
	}
	if err := loadRecord(ctx, s.kv, recordRecoveries, &s.recoveries); err != nil {
		return err
	}
	if err := loadRecord(ctx, s.kv, recordExpenses, &s.expenses); err != nil {
		return err
	}
	for i, item := range s.items {
		s.itemIndex[item.ID] = i
	}
	return nil
}

func loadRecord[T any](ctx context.Context, backend kv.Store, key string, dst *[]T) error {
	data, found, err := backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("kvledger: load %s: %w", key, err)
	}
	if !found {
		*dst = []T{}
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("[kvledger] record %s is unreadable, starting empty: %v", key, err)
		*dst = []T{}
	}
	return nil
}

// persist writes all four records under the caller's lock.
func (s *Store) persist(ctx context.Context) error {
	records := []struct {
		key   string
		value any
	}{
		{recordInventory, s.items},
		{recordSales, s.sales},
		{recordRecoveries, s.recoveries},
		{recordExpenses, s.expenses},
	}
	for _, rec := range records {
		data, err := json.Marshal(rec.value)
		if err != nil {
			return fmt.Errorf("kvledger: encode %s: %w", rec.key, err)
		}
		if err := s.kv.Set(ctx, rec.key, data); err != nil {
			return fmt.Errorf("kvledger: persist %s: %w", rec.key, err)
		}
	}
	return nil
}

func (s *Store) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.InventoryItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.itemIndex[item.ID]; exists {
		return nil, store.ErrValidation
	}
	s.itemIndex[item.ID] = len(s.items)
	s.items = append(s.items, item)
	if err := s.persist(ctx); err != nil {
		s.items = s.items[:len(s.items)-1]
		delete(s.itemIndex, item.ID)
		return nil, err
	}
	created := item
	return &created, nil
}

func (s *Store) GetItemByID(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.itemIndex[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	item := s.items[idx]
	return &item, nil
}

func (s *Store) SearchItems(_ context.Context, term string) ([]domain.InventoryItem, error) {
	needle := strings.ToLower(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]domain.InventoryItem, 0, 8)
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.Batch), needle) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

func (s *Store) ApplySale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		s.items[s.itemIndex[line.ItemID]].Quantity -= line.Quantity
	}
	stored := sale
	stored.Lines = make([]domain.SaleLine, len(sale.Lines))
	copy(stored.Lines, sale.Lines)
	s.sales = append(s.sales, stored)

	if err := s.persist(ctx); err != nil {
		// Roll the in-memory state back so memory and disk stay in step.
		for _, line := range sale.Lines {
			s.items[s.itemIndex[line.ItemID]].Quantity += line.Quantity
		}
		s.sales = s.sales[:len(s.sales)-1]
		return nil, err
	}
	created := stored
	return &created, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Sale, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

func (s *Store) CreateRecovery(ctx context.Context, recovery domain.Recovery) (*domain.Recovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveries = append(s.recoveries, recovery)
	if err := s.persist(ctx); err != nil {
		s.recoveries = s.recoveries[:len(s.recoveries)-1]
		return nil, err
	}
	created := recovery
	return &created, nil
}

func (s *Store) ListRecoveries(_ context.Context) ([]domain.Recovery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Recovery, len(s.recoveries))
	copy(out, s.recoveries)
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, expense)
	if err := s.persist(ctx); err != nil {
		s.expenses = s.expenses[:len(s.expenses)-1]
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out, nil
}
