package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"medipos/internal/bill"
	"medipos/internal/cache"
	"medipos/internal/domain"
	"medipos/internal/report"
	"medipos/internal/store"
	"medipos/internal/xid"
)

// searchMinChars is the minimum query length before inventory search returns
// anything. Shorter terms produce an empty result, not an error.
const searchMinChars = 3

const reportCacheTTL = 10 * time.Minute

// Service owns the business rules. The draft bill lives here because checkout
// consumes it; commitMu serializes checkouts so the validate pass and the
// apply pass of one sale can never interleave with another.
type Service struct {
	repo     store.Repository
	reports  cache.ReportCache
	draft    *bill.Draft
	commitMu sync.Mutex
	now      func() time.Time
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	return &Service{
		repo:    repo,
		reports: reports,
		draft:   bill.NewDraft(),
		now:     time.Now,
	}
}

func (s *Service) today() string {
	return domain.FormatDay(s.now())
}

// ---- inventory ----

func (s *Service) AddItem(ctx context.Context, req domain.ItemCreateRequest) (*domain.InventoryItem, error) {
	name := strings.TrimSpace(req.Name)
	batch := strings.TrimSpace(req.Batch)
	if name == "" {
		return nil, fmt.Errorf("%w: medicine name is required", store.ErrValidation)
	}
	if batch == "" {
		return nil, fmt.Errorf("%w: batch number is required", store.ErrValidation)
	}

	if strings.TrimSpace(req.Quantity) == "" {
		return nil, fmt.Errorf("%w: quantity is required", store.ErrValidation)
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(req.Quantity))
	if err != nil || quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be a positive whole number", store.ErrValidation)
	}

	purchase, err := parsePrice(req.PurchasePrice)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase price %v", store.ErrValidation, err)
	}
	selling, err := parsePrice(req.SellingPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: selling price %v", store.ErrValidation, err)
	}

	expiry, err := domain.ParseDay(strings.TrimSpace(req.ExpiryDate))
	if err != nil {
		return nil, fmt.Errorf("%w: expiry date must be YYYY-MM-DD", store.ErrValidation)
	}
	today, _ := domain.ParseDay(s.today())
	if expiry.Before(today) {
		return nil, fmt.Errorf("%w: expiry date is already in the past", store.ErrValidation)
	}

	item := domain.InventoryItem{
		ID:            xid.New("item"),
		Name:          name,
		Batch:         batch,
		Quantity:      quantity,
		PurchasePrice: purchase,
		SellingPrice:  selling,
		ExpiryDate:    domain.FormatDay(expiry),
		CreatedAt:     s.now().UTC(),
	}
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return nil, err
	}
	log.Printf("[service] item added id=%s name=%q batch=%s qty=%d", created.ID, created.Name, created.Batch, created.Quantity)
	return created, nil
}

// parsePrice accepts zero (free or promotional items) but not negatives.
func parsePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("is required")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("must be a number")
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return amount, nil
}

func parsePositiveAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("is required")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("must be a number")
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("must be greater than zero")
	}
	return amount, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: item id is required", store.ErrValidation)
	}
	return s.repo.GetItemByID(ctx, id)
}

// SearchInventory matches the term case-insensitively against name and batch.
// Terms shorter than three characters return an empty result so that typing
// the first letters of a name does not flood the screen.
func (s *Service) SearchInventory(ctx context.Context, term string) ([]domain.InventoryItem, error) {
	trimmed := strings.TrimSpace(term)
	if utf8.RuneCountInString(trimmed) < searchMinChars {
		return []domain.InventoryItem{}, nil
	}
	return s.repo.SearchItems(ctx, trimmed)
}

// ---- draft bill ----

func (s *Service) AddToBill(ctx context.Context, itemID string, quantity int) ([]domain.BillLine, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.draft.AddLine(*item, quantity); err != nil {
		return nil, fmt.Errorf("%w: quantity must be at least one", store.ErrValidation)
	}
	return s.draft.Lines(), nil
}

func (s *Service) UpdateBillLine(itemID string, quantity int) ([]domain.BillLine, error) {
	if err := s.draft.SetLineQuantity(itemID, quantity); err != nil {
		return nil, err
	}
	return s.draft.Lines(), nil
}

func (s *Service) RemoveBillLine(itemID string) []domain.BillLine {
	s.draft.RemoveLine(itemID)
	return s.draft.Lines()
}

func (s *Service) BillLines() []domain.BillLine {
	return s.draft.Lines()
}

func (s *Service) BillTotal() decimal.Decimal {
	return s.draft.GrandTotal().Round(2)
}

func (s *Service) ClearBill() {
	s.draft.Clear()
}

// ---- checkout ----

// CommitSale turns the draft bill into a sale. It runs in two passes: first
// every line is checked against live inventory (stock level and expiry), then
// the decrements and the ledger append happen atomically in the repository.
// A failure in either pass leaves inventory, ledgers and the draft untouched.
func (s *Service) CommitSale(ctx context.Context) (*domain.Sale, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	lines := s.draft.Lines()
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: bill is empty", store.ErrValidation)
	}

	saleDate := s.today()
	today, _ := domain.ParseDay(saleDate)

	saleLines := make([]domain.SaleLine, 0, len(lines))
	grandTotal := decimal.Zero
	for _, line := range lines {
		item, err := s.repo.GetItemByID(ctx, line.ItemID)
		if err != nil {
			// A drafted item that vanished from inventory is a stock failure,
			// not a lookup failure: the sale wants units that do not exist.
			if errors.Is(err, store.ErrNotFound) {
				return nil, &store.OutOfStockError{
					ItemID:    line.ItemID,
					Name:      line.Name,
					Batch:     line.Batch,
					Available: 0,
					Requested: line.SoldQuantity,
				}
			}
			return nil, err
		}
		if item.Quantity < line.SoldQuantity {
			return nil, &store.OutOfStockError{
				ItemID:    item.ID,
				Name:      item.Name,
				Batch:     item.Batch,
				Available: item.Quantity,
				Requested: line.SoldQuantity,
			}
		}
		expiry, err := domain.ParseDay(item.ExpiryDate)
		if err != nil || expiry.Before(today) {
			return nil, &store.ExpiredStockError{
				ItemID:     item.ID,
				Name:       item.Name,
				Batch:      item.Batch,
				ExpiryDate: item.ExpiryDate,
			}
		}
		// Live inventory decides whether the sale may happen; the recorded
		// line keeps the draft's snapshot, which is what the customer saw.
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.SoldQuantity)))
		saleLines = append(saleLines, domain.SaleLine{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Batch:     line.Batch,
			Quantity:  line.SoldQuantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		grandTotal = grandTotal.Add(lineTotal)
	}

	sale := domain.Sale{
		ID:         xid.New("sale"),
		Date:       saleDate,
		Lines:      saleLines,
		GrandTotal: grandTotal.Round(2),
		CreatedAt:  s.now().UTC(),
	}
	created, err := s.repo.ApplySale(ctx, sale)
	if err != nil {
		return nil, err
	}
	s.draft.Clear()
	if err := s.reports.DeleteDailySummary(ctx, saleDate); err != nil {
		log.Printf("[service] report cache invalidation failed for %s: %v", saleDate, err)
	}
	log.Printf("[service] sale committed id=%s lines=%d total=%s", created.ID, len(created.Lines), created.GrandTotal.StringFixed(2))
	return created, nil
}

// ---- ledgers ----

func (s *Service) AddRecovery(ctx context.Context, req domain.RecoveryCreateRequest) (*domain.Recovery, error) {
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %v", store.ErrValidation, err)
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, fmt.Errorf("%w: recovery source is required", store.ErrValidation)
	}
	day, err := s.entryDay(req.Date)
	if err != nil {
		return nil, err
	}
	recovery := domain.Recovery{
		ID:          xid.New("rcv"),
		Date:        day,
		Amount:      amount,
		Source:      source,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.now().UTC(),
	}
	created, err := s.repo.CreateRecovery(ctx, recovery)
	if err != nil {
		return nil, err
	}
	if err := s.reports.DeleteDailySummary(ctx, day); err != nil {
		log.Printf("[service] report cache invalidation failed for %s: %v", day, err)
	}
	log.Printf("[service] recovery recorded id=%s amount=%s source=%q", created.ID, created.Amount.StringFixed(2), created.Source)
	return created, nil
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	amount, err := parsePositiveAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %v", store.ErrValidation, err)
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: expense category is required", store.ErrValidation)
	}
	day, err := s.entryDay(req.Date)
	if err != nil {
		return nil, err
	}
	expense := domain.Expense{
		ID:          xid.New("exp"),
		Date:        day,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.now().UTC(),
	}
	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}
	if err := s.reports.DeleteDailySummary(ctx, day); err != nil {
		log.Printf("[service] report cache invalidation failed for %s: %v", day, err)
	}
	log.Printf("[service] expense recorded id=%s amount=%s category=%q", created.ID, created.Amount.StringFixed(2), created.Category)
	return created, nil
}

// entryDay resolves an optional ledger-entry date: blank means today.
func (s *Service) entryDay(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return s.today(), nil
	}
	parsed, err := domain.ParseDay(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	return domain.FormatDay(parsed), nil
}

func (s *Service) ListRecoveries(ctx context.Context) ([]domain.Recovery, error) {
	return s.repo.ListRecoveries(ctx)
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx)
}

// ---- reports ----

// DailySummary aggregates one calendar day. A blank day means today. The
// result is cached; any write to that day evicts the cached entry.
func (s *Service) DailySummary(ctx context.Context, day string) (*domain.DailySummary, error) {
	resolved, err := s.entryDay(day)
	if err != nil {
		return nil, err
	}
	if cached, found, cacheErr := s.reports.GetDailySummary(ctx, resolved); cacheErr != nil {
		log.Printf("[service] report cache read failed for %s: %v", resolved, cacheErr)
	} else if found {
		return cached, nil
	}

	sales, recoveries, expenses, err := s.loadLedgers(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := report.Daily(resolved, sales, recoveries, expenses)
	if err != nil {
		return nil, err
	}
	if err := s.reports.SetDailySummary(ctx, resolved, summary, reportCacheTTL); err != nil {
		log.Printf("[service] report cache write failed for %s: %v", resolved, err)
	}
	return summary, nil
}

func (s *Service) RangeReport(ctx context.Context, start, end string) (*domain.RangeResult, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, fmt.Errorf("%w: both start and end dates are required", store.ErrValidation)
	}
	sales, recoveries, expenses, err := s.loadLedgers(ctx)
	if err != nil {
		return nil, err
	}
	return report.Range(strings.TrimSpace(start), strings.TrimSpace(end), sales, recoveries, expenses)
}

func (s *Service) loadLedgers(ctx context.Context) ([]domain.Sale, []domain.Recovery, []domain.Expense, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	recoveries, err := s.repo.ListRecoveries(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return sales, recoveries, expenses, nil
}

// ---- stock alerts ----

// StockAlerts scans inventory for expired stock, stock expiring within
// horizonDays, and items at or below lowStockThreshold units.
func (s *Service) StockAlerts(ctx context.Context, horizonDays, lowStockThreshold int) (*domain.StockAlertResponse, error) {
	if horizonDays < 0 || lowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: alert thresholds must not be negative", store.ErrValidation)
	}
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	today, _ := domain.ParseDay(s.today())
	horizon := today.AddDate(0, 0, horizonDays)

	alerts := make([]domain.StockAlert, 0, 8)
	for _, item := range items {
		expiry, err := domain.ParseDay(item.ExpiryDate)
		switch {
		case err != nil || expiry.Before(today):
			alerts = append(alerts, stockAlert(domain.AlertExpired, item))
		case !expiry.After(horizon):
			alerts = append(alerts, stockAlert(domain.AlertExpiringSoon, item))
		}
		if item.Quantity <= lowStockThreshold {
			alerts = append(alerts, stockAlert(domain.AlertLowStock, item))
		}
	}
	return &domain.StockAlertResponse{
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
		Alerts:      alerts,
	}, nil
}

func stockAlert(code string, item domain.InventoryItem) domain.StockAlert {
	return domain.StockAlert{
		Code:       code,
		ItemID:     item.ID,
		Name:       item.Name,
		Batch:      item.Batch,
		Quantity:   item.Quantity,
		ExpiryDate: item.ExpiryDate,
	}
}
