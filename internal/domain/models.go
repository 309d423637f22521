package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayFormat is the calendar-date layout used everywhere dates are stored or
// compared. All date comparisons in this system are date-only: time-of-day
// is zeroed.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD calendar date into a UTC midnight time.
func ParseDay(value string) (time.Time, error) {
	parsed, err := time.Parse(DayFormat, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

// FormatDay renders a time as its YYYY-MM-DD calendar day.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

type InventoryItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Batch         string          `json:"batch"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	ExpiryDate    string          `json:"expiry_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ItemCreateRequest carries raw form input. Numeric fields arrive as strings
// so that "missing" and "not a number" stay distinguishable during validation.
type ItemCreateRequest struct {
	Name          string `json:"name"`
	Batch         string `json:"batch"`
	Quantity      string `json:"quantity"`
	PurchasePrice string `json:"purchase_price"`
	SellingPrice  string `json:"selling_price"`
	ExpiryDate    string `json:"expiry_date"`
}

// BillLine is one entry of the draft bill. Name, batch, expiry and unit price
// are snapshots taken when the line was added; they are display values only.
// Stock and expiry decisions at commit time always use live inventory.
type BillLine struct {
	ItemID       string          `json:"item_id"`
	Name         string          `json:"name"`
	Batch        string          `json:"batch"`
	ExpiryDate   string          `json:"expiry_date"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	SoldQuantity int             `json:"sold_quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type SaleLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Batch     string          `json:"batch"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Sale is an immutable ledger record. Never edited, never deleted.
type Sale struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Lines      []SaleLine      `json:"line_items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Recovery struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Expense struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RecoveryCreateRequest struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

type ExpenseCreateRequest struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DailySummary is the read model for one calendar day. The decimal totals are
// rounded to 2 places at construction; the ledgers themselves stay untouched.
type DailySummary struct {
	Date            string          `json:"date"`
	Sales           []Sale          `json:"sales"`
	Recoveries      []Recovery      `json:"recoveries"`
	Expenses        []Expense       `json:"expenses"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	TotalRecoveries decimal.Decimal `json:"total_recoveries"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	Net             decimal.Decimal `json:"net"`
}

// RangeResult surfaces the three ledgers filtered to an inclusive date range.
// No aggregate totals are computed for ranges.
type RangeResult struct {
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Sales      []Sale     `json:"sales"`
	Recoveries []Recovery `json:"recoveries"`
	Expenses   []Expense  `json:"expenses"`
}

const (
	AlertExpired      = "expired"
	AlertExpiringSoon = "expiring_soon"
	AlertLowStock     = "low_stock"
)

type StockAlert struct {
	Code       string `json:"code"`
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Batch      string `json:"batch"`
	Quantity   int    `json:"quantity"`
	ExpiryDate string `json:"expiry_date"`
}

type StockAlertResponse struct {
	GeneratedAt string       `json:"generated_at"`
	Alerts      []StockAlert `json:"alerts"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the authenticated session. The store has a single
// operator, so there are no roles.
type Actor struct {
	Subject string
}
