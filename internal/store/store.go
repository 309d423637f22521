package store

import (
	"context"
	"errors"
	"fmt"

	"medipos/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrOutOfStock   = errors.New("out of stock")
	ErrExpiredStock = errors.New("expired stock")
)

// OutOfStockError reports a sale line that requested more than the live
// inventory holds (or references an item that no longer exists, in which
// case Available is 0).
type OutOfStockError struct {
	ItemID    string
	Name      string
	Batch     string
	Available int
	Requested int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (batch %s): available %d, requested %d",
		e.Name, e.Batch, e.Available, e.Requested)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// ExpiredStockError reports an attempt to sell an item whose live expiry date
// is strictly before the sale date.
type ExpiredStockError struct {
	ItemID     string
	Name       string
	Batch      string
	ExpiryDate string
}

func (e *ExpiredStockError) Error() string {
	return fmt.Sprintf("cannot sell expired stock %s (batch %s): expired on %s",
		e.Name, e.Batch, e.ExpiryDate)
}

func (e *ExpiredStockError) Unwrap() error { return ErrExpiredStock }

// Repository owns the four collections: inventory plus the three append-only
// ledgers (sales, recoveries, expenses). Ledger records are immutable once
// written; inventory items are mutated only by ApplySale's quantity
// decrements.
type Repository interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	GetItemByID(ctx context.Context, id string) (*domain.InventoryItem, error)
	SearchItems(ctx context.Context, term string) ([]domain.InventoryItem, error)

	// ApplySale decrements inventory for every sale line and appends the sale
	// as one unit: either every decrement plus the append happens, or nothing
	// does. Implementations re-check quantities and return *OutOfStockError
	// on a shortfall; callers are expected to have validated beforehand, so a
	// failure here means a concurrent writer got in between.
	ApplySale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)

	CreateRecovery(ctx context.Context, recovery domain.Recovery) (*domain.Recovery, error)
	ListRecoveries(ctx context.Context) ([]domain.Recovery, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
}
